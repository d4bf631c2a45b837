package db

import (
	"context"
	"net/http"
	"time"

	"payment-service/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// placeholderStatus marks a log row whose call has not returned yet.
const placeholderStatus = http.StatusInternalServerError

type LogRepository struct {
	pool *pgxpool.Pool
}

func NewLogRepository(pool *pgxpool.Pool) *LogRepository {
	return &LogRepository{pool: pool}
}

// Begin durably records the outbound request before the remote call is
// issued. The row carries the failure-coded placeholder status until
// Complete or Fail updates it.
func (r *LogRepository) Begin(ctx context.Context, tx pgx.Tx, requestType model.RequestType, requestData string) (uuid.UUID, error) {
	id := uuid.New()
	query := `INSERT INTO paypal_log (id, request_type, request_data, date_request, response_status)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := pick(r.pool, tx).Exec(ctx, query, id, string(requestType), requestData, time.Now(), placeholderStatus)
	if err != nil {
		return uuid.Nil, mapError(err)
	}
	return id, nil
}

func (r *LogRepository) Complete(ctx context.Context, tx pgx.Tx, id uuid.UUID, responseStatus int, responseData string) error {
	query := `UPDATE paypal_log SET response_status = $2, response_data = $3, date_response = $4 WHERE id = $1`
	tag, err := pick(r.pool, tx).Exec(ctx, query, id, responseStatus, responseData, time.Now())
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LogRepository) Fail(ctx context.Context, tx pgx.Tx, id uuid.UUID, responseStatus int, errorData string) error {
	query := `UPDATE paypal_log SET response_status = $2, response_data = $3, date_response = $4 WHERE id = $1`
	tag, err := pick(r.pool, tx).Exec(ctx, query, id, responseStatus, errorData, time.Now())
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkUnknown records a transport failure for an attempt whose provider
// outcome is unknown. date_response stays NULL so ListDangling keeps
// surfacing the row until reconciliation resolves it against the provider.
func (r *LogRepository) MarkUnknown(ctx context.Context, tx pgx.Tx, id uuid.UUID, errorData string) error {
	query := `UPDATE paypal_log SET response_data = $2 WHERE id = $1`
	tag, err := pick(r.pool, tx).Exec(ctx, query, id, errorData)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LogRepository) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*LogEntity, error) {
	query := `SELECT id, request_type, request_data, date_request, response_data, response_status, date_response
	          FROM paypal_log WHERE id = $1`
	return r.scanOne(pick(r.pool, tx).QueryRow(ctx, query, id))
}

// ListDangling returns begun entries older than the cutoff that never saw a
// Complete or Fail. These are the unknown-outcome attempts a reconciliation
// process has to resolve against the provider.
func (r *LogRepository) ListDangling(ctx context.Context, tx pgx.Tx, olderThan time.Time) ([]*LogEntity, error) {
	query := `SELECT id, request_type, request_data, date_request, response_data, response_status, date_response
	          FROM paypal_log WHERE date_response IS NULL AND date_request < $1 ORDER BY date_request`
	rows, err := pick(r.pool, tx).Query(ctx, query, olderThan)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entities []*LogEntity
	for rows.Next() {
		entity, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func (r *LogRepository) scanOne(row pgx.Row) (*LogEntity, error) {
	var entity LogEntity
	var requestType string
	err := row.Scan(&entity.ID, &requestType, &entity.RequestData, &entity.DateRequest,
		&entity.ResponseData, &entity.ResponseStatus, &entity.DateResponse)
	if err != nil {
		return nil, mapError(err)
	}
	entity.RequestType, err = model.ParseRequestType(requestType)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
