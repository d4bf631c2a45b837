package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"payment-service/internal/db"
	"payment-service/internal/event"
	"payment-service/internal/logging"
	"payment-service/internal/model"
	"payment-service/internal/paypal"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	captureSuccessCounter    = metrics.GetOrCreateCounter(`paypal_order_capture_total{result="success"}`)
	captureApiErrorCounter   = metrics.GetOrCreateCounter(`paypal_order_capture_total{result="api_error"}`)
	captureTransportCounter  = metrics.GetOrCreateCounter(`paypal_order_capture_total{result="transport_error"}`)
	captureDurationHistogram = metrics.GetOrCreateHistogram(`paypal_order_capture_duration_milliseconds`)

	saveSuccessCounter        = metrics.GetOrCreateCounter(`paypal_save_payments_total{result="success"}`)
	saveAlreadyAppliedCounter = metrics.GetOrCreateCounter(`paypal_save_payments_total{result="already_applied"}`)
	saveOrderMissingCounter   = metrics.GetOrCreateCounter(`paypal_save_payments_total{result="order_missing"}`)
	saveErrorCounter          = metrics.GetOrCreateCounter(`paypal_save_payments_total{result="error"}`)
)

// ErrOrderUnknown is the consistency fault raised when the provider confirms
// a capture for an order this system has no record of. Money has moved
// without local bookkeeping, so it must never be swallowed.
var ErrOrderUnknown = errors.New("captured order is unknown locally")

// Capturer finalizes payment for an order. The remote capture call runs
// outside any local transaction; the order/payment mutation runs inside
// exactly one. A crash between the two leaves a completed audit row whose
// response body is enough to replay the mutation without touching PayPal.
type Capturer struct {
	pool        *pgxpool.Pool
	repoLog     *db.LogRepository
	repoOrder   *db.OrderRepository
	repoPayment *db.PaymentRepository
	client      *paypal.Client
	publisher   *event.Publisher
	logger      *slog.Logger
}

func NewCapturer(
	pool *pgxpool.Pool,
	repoLog *db.LogRepository,
	repoOrder *db.OrderRepository,
	repoPayment *db.PaymentRepository,
	client *paypal.Client,
	publisher *event.Publisher,
	logger *slog.Logger,
) *Capturer {
	return &Capturer{
		pool:        pool,
		repoLog:     repoLog,
		repoOrder:   repoOrder,
		repoPayment: repoPayment,
		client:      client,
		publisher:   publisher,
		logger:      logger,
	}
}

type CaptureOutcome struct {
	Response   paypal.OrderResponse
	Raw        string
	HTTPStatus int
}

type captureRequest struct {
	ID     string `json:"id"`
	Prefer string `json:"prefer"`
}

// Capture performs the remote capture call with full audit logging and no
// local order/payment mutation. On success the caller continues with
// SavePayments; on failure nothing local beyond the log row has changed.
func (c *Capturer) Capture(ctx context.Context, paypalOrderID string) (*CaptureOutcome, error) {
	startTime := time.Now()
	defer func() {
		captureDurationHistogram.Update(float64(time.Since(startTime).Milliseconds()))
	}()

	ctx = logging.AppendCtx(ctx, slog.String("paypalOrderId", paypalOrderID))

	requestData, err := json.Marshal(captureRequest{ID: paypalOrderID, Prefer: "return=minimal"})
	if err != nil {
		return nil, errors.Wrap(err, "marshalling capture request")
	}

	logID, err := c.repoLog.Begin(ctx, nil, model.RequestOrderCapture, string(requestData))
	if err != nil {
		return nil, errors.Wrap(err, "recording request log")
	}

	result, err := c.client.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		c.failLog(ctx, logID, err)
		return nil, err
	}

	if err := c.repoLog.Complete(ctx, nil, logID, result.HTTPStatus, result.Raw); err != nil {
		c.logger.ErrorContext(ctx, "Error completing request log", "error", err)
	}

	captureSuccessCounter.Inc()

	return &CaptureOutcome{
		Response:   result.Order,
		Raw:        result.Raw,
		HTTPStatus: result.HTTPStatus,
	}, nil
}

// SavePayments applies a successful capture response to local state inside
// one transaction: the order becomes COMPLETED and each capture entry in the
// response yields one payment row. It is idempotent: an order already
// COMPLETED is treated as applied, and duplicate provider payment ids are
// skipped, so replaying the same response never duplicates payments.
func (c *Capturer) SavePayments(ctx context.Context, paypalOrderID string, response paypal.OrderResponse) error {
	var captured []event.CapturedPayment
	var orderID uuid.UUID

	err := db.WithinTx(ctx, c.pool, func(tx pgx.Tx) error {
		order, err := c.repoOrder.GetByPaypalOrderID(ctx, tx, paypalOrderID)
		if errors.Is(err, db.ErrNotFound) {
			saveOrderMissingCounter.Inc()
			return errors.Wrapf(ErrOrderUnknown, "paypal order %s", paypalOrderID)
		}
		if err != nil {
			return errors.Wrapf(err, "looking up order %s", paypalOrderID)
		}
		orderID = order.ID

		if order.Status == model.OrderCompleted {
			c.logger.InfoContext(ctx, "Order already completed, skipping", "id", order.ID.String())
			saveAlreadyAppliedCounter.Inc()
			return nil
		}

		if _, err := c.repoOrder.UpdateStatus(ctx, tx, order.ID, model.OrderCompleted); err != nil {
			return errors.Wrapf(err, "completing order %s", order.ID)
		}

		captured, err = c.insertPayments(ctx, tx, order, response)
		return err
	})

	if err != nil {
		saveErrorCounter.Inc()
		return err
	}

	saveSuccessCounter.Inc()

	if len(captured) > 0 {
		c.publish(ctx, orderID, paypalOrderID, captured)
	}

	return nil
}

// CaptureAndSave is the composed operation behind the checkout surface. A
// persistence failure after a successful capture is returned as an error
// together with the outcome, so the caller still holds the raw provider
// response; the audit row keeps it for replay as well.
func (c *Capturer) CaptureAndSave(ctx context.Context, paypalOrderID string) (*CaptureOutcome, error) {
	outcome, err := c.Capture(ctx, paypalOrderID)
	if err != nil {
		return nil, err
	}

	if err := c.SavePayments(ctx, paypalOrderID, outcome.Response); err != nil {
		return outcome, errors.Wrap(err, "capture succeeded at provider but local persistence failed")
	}

	return outcome, nil
}

// ReplayFromLog re-derives the order/payment mutation purely from a stored
// capture log row, without calling PayPal. It is the recovery path for a
// crash between remote success and local commit.
func (c *Capturer) ReplayFromLog(ctx context.Context, logID uuid.UUID) error {
	entry, err := c.repoLog.GetByID(ctx, nil, logID)
	if err != nil {
		return errors.Wrapf(err, "loading log entry %s", logID)
	}

	if entry.RequestType != model.RequestOrderCapture {
		return fmt.Errorf("log entry %s is %s, not %s", logID, entry.RequestType, model.RequestOrderCapture)
	}
	if entry.ResponseStatus < 200 || entry.ResponseStatus >= 300 || entry.ResponseData == nil {
		return fmt.Errorf("log entry %s holds no successful capture response", logID)
	}

	var response paypal.OrderResponse
	if err := json.Unmarshal([]byte(*entry.ResponseData), &response); err != nil {
		return errors.Wrapf(err, "unmarshalling logged response of %s", logID)
	}

	paypalOrderID := response.ID
	if paypalOrderID == "" {
		var request captureRequest
		if err := json.Unmarshal([]byte(entry.RequestData), &request); err != nil {
			return errors.Wrapf(err, "unmarshalling logged request of %s", logID)
		}
		paypalOrderID = request.ID
	}

	return c.SavePayments(ctx, paypalOrderID, response)
}

func (c *Capturer) insertPayments(ctx context.Context, tx pgx.Tx, order *db.OrderEntity, response paypal.OrderResponse) ([]event.CapturedPayment, error) {
	payerID := ""
	if response.Payer != nil {
		payerID = response.Payer.PayerID
	}

	var captured []event.CapturedPayment
	for _, unit := range response.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, capture := range unit.Payments.Captures {
			amount, err := decimal.NewFromString(capture.Amount.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing capture amount %q", capture.Amount.Value)
			}

			status, err := model.ParsePaymentStatus(capture.Status)
			if err != nil {
				return nil, err
			}

			entity := &db.PaymentEntity{
				ID:              uuid.New(),
				OrderRef:        order.ID,
				PaypalPaymentID: capture.ID,
				PayerID:         payerID,
				Amount:          amount,
				Currency:        capture.Amount.CurrencyCode,
				Status:          status,
				DateCaptured:    capture.CreateTime,
			}

			inserted, err := c.repoPayment.CreateIfAbsent(ctx, tx, entity)
			if err != nil {
				return nil, errors.Wrapf(err, "persisting payment %s", capture.ID)
			}
			if !inserted {
				c.logger.InfoContext(ctx, "Payment already recorded, skipping", "paypalPaymentId", capture.ID)
				continue
			}

			captured = append(captured, event.CapturedPayment{
				PaymentID:       entity.ID,
				PaypalPaymentID: entity.PaypalPaymentID,
				Amount:          capture.Amount.Value,
				Currency:        entity.Currency,
				Status:          string(entity.Status),
			})
		}
	}

	c.logger.InfoContext(ctx, "Order completed", "id", order.ID.String(), "payments", len(captured))

	return captured, nil
}

func (c *Capturer) publish(ctx context.Context, orderID uuid.UUID, paypalOrderID string, captured []event.CapturedPayment) {
	if c.publisher == nil {
		return
	}

	err := c.publisher.PublishCaptured(ctx, event.PaymentCaptured{
		OrderID:       orderID,
		PaypalOrderID: paypalOrderID,
		Payments:      captured,
	})
	if err != nil {
		// best effort, the capture itself is already durable
		c.logger.ErrorContext(ctx, "Error publishing capture event", "error", err)
	}
}

func (c *Capturer) failLog(ctx context.Context, logID uuid.UUID, callErr error) {
	var apiErr *paypal.APIError
	if errors.As(callErr, &apiErr) {
		captureApiErrorCounter.Inc()
		if err := c.repoLog.Fail(ctx, nil, logID, apiErr.StatusCode, apiErr.Body); err != nil {
			c.logger.ErrorContext(ctx, "Error failing request log", "error", err)
		}
		return
	}

	// transport failure: the provider outcome is unknown, so the row stays
	// dangling for reconciliation instead of being stamped as failed
	captureTransportCounter.Inc()
	if err := c.repoLog.MarkUnknown(ctx, nil, logID, callErr.Error()); err != nil {
		c.logger.ErrorContext(ctx, "Error marking request log", "error", err)
	}
}
