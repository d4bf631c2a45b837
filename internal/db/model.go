package db

import (
	"time"

	"payment-service/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderEntity struct {
	ID            uuid.UUID
	UserRef       string
	PaypalOrderID string
	Amount        decimal.Decimal
	Currency      string
	Status        model.OrderStatus
	DateCreated   time.Time
}

type PaymentEntity struct {
	ID              uuid.UUID
	OrderRef        uuid.UUID
	PaypalPaymentID string
	PayerID         string
	Amount          decimal.Decimal
	Currency        string
	Status          model.PaymentStatus
	DateCaptured    time.Time
}

// LogEntity is one audit record of an outbound PayPal call. Response fields
// stay at their placeholder values until the call returns; a row that keeps
// them is an in-flight attempt that never came back.
type LogEntity struct {
	ID             uuid.UUID
	RequestType    model.RequestType
	RequestData    string
	DateRequest    time.Time
	ResponseData   *string
	ResponseStatus int
	DateResponse   *time.Time
}
