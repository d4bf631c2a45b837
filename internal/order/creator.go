package order

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"payment-service/internal/db"
	"payment-service/internal/logging"
	"payment-service/internal/model"
	"payment-service/internal/paypal"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	createSuccessCounter    = metrics.GetOrCreateCounter(`paypal_order_create_total{result="success"}`)
	createApiErrorCounter   = metrics.GetOrCreateCounter(`paypal_order_create_total{result="api_error"}`)
	createTransportCounter  = metrics.GetOrCreateCounter(`paypal_order_create_total{result="transport_error"}`)
	createPersistErrCounter = metrics.GetOrCreateCounter(`paypal_order_create_total{result="persist_error"}`)
	createDurationHistogram = metrics.GetOrCreateHistogram(`paypal_order_create_duration_milliseconds`)
)

// Creator drives order creation against PayPal: audit-log the request, call
// the provider, audit-log the response, and persist the local order row only
// after a successful response.
type Creator struct {
	repoLog   *db.LogRepository
	repoOrder *db.OrderRepository
	client    *paypal.Client
	logger    *slog.Logger
}

func NewCreator(repoLog *db.LogRepository, repoOrder *db.OrderRepository, client *paypal.Client, logger *slog.Logger) *Creator {
	return &Creator{
		repoLog:   repoLog,
		repoOrder: repoOrder,
		client:    client,
		logger:    logger,
	}
}

type CreateResult struct {
	PaypalOrderID string
	HTTPStatus    int
	Raw           string
}

func (c *Creator) Create(ctx context.Context, userRef string, purchaseUnits []paypal.PurchaseUnitRequest) (*CreateResult, error) {
	startTime := time.Now()
	defer func() {
		createDurationHistogram.Update(float64(time.Since(startTime).Milliseconds()))
	}()

	if len(purchaseUnits) == 0 {
		return nil, errors.New("at least one purchase unit is required")
	}

	ctx = logging.AppendCtx(ctx, slog.String("userRef", userRef))

	request := paypal.CreateOrderRequest{
		Intent:        paypal.IntentCapture,
		PurchaseUnits: purchaseUnits,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling create order request")
	}

	logID, err := c.repoLog.Begin(ctx, nil, model.RequestOrderCreate, string(requestData))
	if err != nil {
		return nil, errors.Wrap(err, "recording request log")
	}

	result, err := c.client.CreateOrder(ctx, request)
	if err != nil {
		c.failLog(ctx, logID, err)
		return nil, err
	}

	if err := c.repoLog.Complete(ctx, nil, logID, result.HTTPStatus, result.Raw); err != nil {
		c.logger.ErrorContext(ctx, "Error completing request log", "error", err)
	}

	if err := c.saveOrder(ctx, userRef, purchaseUnits[0], result); err != nil {
		createPersistErrCounter.Inc()
		return nil, err
	}

	createSuccessCounter.Inc()

	return &CreateResult{
		PaypalOrderID: result.Order.ID,
		HTTPStatus:    result.HTTPStatus,
		Raw:           result.Raw,
	}, nil
}

func (c *Creator) saveOrder(ctx context.Context, userRef string, unit paypal.PurchaseUnitRequest, result *paypal.Result) error {
	amount, err := decimal.NewFromString(unit.Amount.Value)
	if err != nil {
		return errors.Wrapf(err, "parsing amount %q", unit.Amount.Value)
	}

	entity := &db.OrderEntity{
		ID:            uuid.New(),
		UserRef:       userRef,
		PaypalOrderID: result.Order.ID,
		Amount:        amount,
		Currency:      unit.Amount.CurrencyCode,
		Status:        model.OrderCreated,
		DateCreated:   time.Now(),
	}

	if _, err := c.repoOrder.Create(ctx, nil, entity); err != nil {
		return errors.Wrapf(err, "persisting order %s", result.Order.ID)
	}

	c.logger.InfoContext(ctx, "New PayPal order created",
		"id", entity.ID.String(), "paypalOrderId", entity.PaypalOrderID)

	return nil
}

func (c *Creator) failLog(ctx context.Context, logID uuid.UUID, callErr error) {
	var apiErr *paypal.APIError
	if errors.As(callErr, &apiErr) {
		createApiErrorCounter.Inc()
		if err := c.repoLog.Fail(ctx, nil, logID, apiErr.StatusCode, apiErr.Body); err != nil {
			c.logger.ErrorContext(ctx, "Error failing request log", "error", err)
		}
		return
	}

	// transport failure: the provider outcome is unknown, so the row stays
	// dangling for reconciliation instead of being stamped as failed
	createTransportCounter.Inc()
	if err := c.repoLog.MarkUnknown(ctx, nil, logID, callErr.Error()); err != nil {
		c.logger.ErrorContext(ctx, "Error marking request log", "error", err)
	}
}
