package model

import "fmt"

// OrderStatus is the lifecycle state of a locally known order.
type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderApproved  OrderStatus = "APPROVED"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderFailed    OrderStatus = "FAILED"
	OrderVoided    OrderStatus = "VOIDED"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderCreated, OrderApproved, OrderCompleted, OrderFailed, OrderVoided:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("unknown order status: %q", s)
}

// PaymentStatus mirrors the capture status reported by PayPal.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentCompleted         PaymentStatus = "COMPLETED"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentDenied            PaymentStatus = "DENIED"
	PaymentCancelled         PaymentStatus = "CANCELLED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentDenied,
		PaymentCancelled, PaymentRefunded, PaymentPartiallyRefunded:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("unknown payment status: %q", s)
}

// RequestType tags audit log entries with the kind of PayPal call.
type RequestType string

const (
	RequestOrderCreate   RequestType = "order_create"
	RequestOrderCapture  RequestType = "order_capture"
	RequestOrderGet      RequestType = "order_get"
	RequestPaymentRefund RequestType = "payment_refund"
	RequestPaymentGet    RequestType = "payment_get"
)

func ParseRequestType(s string) (RequestType, error) {
	switch RequestType(s) {
	case RequestOrderCreate, RequestOrderCapture, RequestOrderGet,
		RequestPaymentRefund, RequestPaymentGet:
		return RequestType(s), nil
	}
	return "", fmt.Errorf("unknown request type: %q", s)
}

// Mode selects the PayPal environment.
type Mode string

const (
	ModeSandbox    Mode = "SANDBOX"
	ModeProduction Mode = "PRODUCTION"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSandbox, ModeProduction:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode: %q", s)
}
