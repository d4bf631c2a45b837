package db

import (
	"context"

	"payment-service/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Create(ctx context.Context, tx pgx.Tx, entity *OrderEntity) (*OrderEntity, error) {
	query := `INSERT INTO paypal_order (id, user_ref, paypal_order_id, amount, currency, status, date_created)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := pick(r.pool, tx).QueryRow(ctx, query,
		entity.ID, entity.UserRef, entity.PaypalOrderID, entity.Amount,
		entity.Currency, string(entity.Status), entity.DateCreated).Scan(&entity.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return entity, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*OrderEntity, error) {
	query := `SELECT id, user_ref, paypal_order_id, amount, currency, status, date_created
	          FROM paypal_order WHERE id = $1`
	return r.scanOne(pick(r.pool, tx).QueryRow(ctx, query, id))
}

func (r *OrderRepository) GetByPaypalOrderID(ctx context.Context, tx pgx.Tx, paypalOrderID string) (*OrderEntity, error) {
	query := `SELECT id, user_ref, paypal_order_id, amount, currency, status, date_created
	          FROM paypal_order WHERE paypal_order_id = $1`
	return r.scanOne(pick(r.pool, tx).QueryRow(ctx, query, paypalOrderID))
}

func (r *OrderRepository) ListByUserRef(ctx context.Context, tx pgx.Tx, userRef string) ([]*OrderEntity, error) {
	query := `SELECT id, user_ref, paypal_order_id, amount, currency, status, date_created
	          FROM paypal_order WHERE user_ref = $1 ORDER BY date_created`
	rows, err := pick(r.pool, tx).Query(ctx, query, userRef)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entities []*OrderEntity
	for rows.Next() {
		entity, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) (int64, error) {
	query := `UPDATE paypal_order SET status = $2 WHERE id = $1`
	tag, err := pick(r.pool, tx).Exec(ctx, query, id, string(status))
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *OrderRepository) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int64, error) {
	query := `DELETE FROM paypal_order WHERE id = $1`
	tag, err := pick(r.pool, tx).Exec(ctx, query, id)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *OrderRepository) scanOne(row pgx.Row) (*OrderEntity, error) {
	var entity OrderEntity
	var status string
	err := row.Scan(&entity.ID, &entity.UserRef, &entity.PaypalOrderID,
		&entity.Amount, &entity.Currency, &status, &entity.DateCreated)
	if err != nil {
		return nil, mapError(err)
	}
	entity.Status, err = model.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
