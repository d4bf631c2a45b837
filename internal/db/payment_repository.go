package db

import (
	"context"

	"payment-service/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Create(ctx context.Context, tx pgx.Tx, entity *PaymentEntity) (*PaymentEntity, error) {
	query := `INSERT INTO paypal_payment (id, order_ref, paypal_payment_id, payer_id, amount, currency, status, date_captured)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := pick(r.pool, tx).QueryRow(ctx, query,
		entity.ID, entity.OrderRef, entity.PaypalPaymentID, entity.PayerID,
		entity.Amount, entity.Currency, string(entity.Status), entity.DateCaptured).Scan(&entity.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return entity, nil
}

// CreateIfAbsent inserts the payment unless one with the same
// (order_ref, paypal_payment_id) already exists, and reports whether a row
// was inserted. A conflict is resolved by the statement itself, so the
// surrounding transaction stays usable.
func (r *PaymentRepository) CreateIfAbsent(ctx context.Context, tx pgx.Tx, entity *PaymentEntity) (bool, error) {
	query := `INSERT INTO paypal_payment (id, order_ref, paypal_payment_id, payer_id, amount, currency, status, date_captured)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (order_ref, paypal_payment_id) DO NOTHING`
	tag, err := pick(r.pool, tx).Exec(ctx, query,
		entity.ID, entity.OrderRef, entity.PaypalPaymentID, entity.PayerID,
		entity.Amount, entity.Currency, string(entity.Status), entity.DateCaptured)
	if err != nil {
		return false, mapError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*PaymentEntity, error) {
	query := `SELECT id, order_ref, paypal_payment_id, payer_id, amount, currency, status, date_captured
	          FROM paypal_payment WHERE id = $1`
	return r.scanOne(pick(r.pool, tx).QueryRow(ctx, query, id))
}

func (r *PaymentRepository) ListByOrderRef(ctx context.Context, tx pgx.Tx, orderRef uuid.UUID) ([]*PaymentEntity, error) {
	query := `SELECT id, order_ref, paypal_payment_id, payer_id, amount, currency, status, date_captured
	          FROM paypal_payment WHERE order_ref = $1 ORDER BY date_captured`
	rows, err := pick(r.pool, tx).Query(ctx, query, orderRef)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entities []*PaymentEntity
	for rows.Next() {
		entity, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func (r *PaymentRepository) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int64, error) {
	query := `DELETE FROM paypal_payment WHERE id = $1`
	tag, err := pick(r.pool, tx).Exec(ctx, query, id)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *PaymentRepository) scanOne(row pgx.Row) (*PaymentEntity, error) {
	var entity PaymentEntity
	var status string
	err := row.Scan(&entity.ID, &entity.OrderRef, &entity.PaypalPaymentID, &entity.PayerID,
		&entity.Amount, &entity.Currency, &status, &entity.DateCaptured)
	if err != nil {
		return nil, mapError(err)
	}
	entity.Status, err = model.ParsePaymentStatus(status)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
