package paypal

import "time"

const IntentCapture = "CAPTURE"

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type PurchaseUnitRequest struct {
	ReferenceID string `json:"reference_id,omitempty"`
	Amount      Amount `json:"amount"`
}

type CreateOrderRequest struct {
	Intent        string                `json:"intent"`
	PurchaseUnits []PurchaseUnitRequest `json:"purchase_units"`
}

type Capture struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Amount     Amount    `json:"amount"`
	CreateTime time.Time `json:"create_time"`
}

type Payments struct {
	Captures []Capture `json:"captures"`
}

type PurchaseUnit struct {
	ReferenceID string    `json:"reference_id,omitempty"`
	Payments    *Payments `json:"payments,omitempty"`
}

type Payer struct {
	PayerID      string `json:"payer_id"`
	EmailAddress string `json:"email_address,omitempty"`
}

// OrderResponse is the order representation PayPal returns from both the
// create and the capture endpoints.
type OrderResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units,omitempty"`
	Payer         *Payer         `json:"payer,omitempty"`
}

// Result carries the parsed order together with the raw body and HTTP status
// so callers can persist exactly what the provider sent.
type Result struct {
	Order      OrderResponse
	Raw        string
	HTTPStatus int
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}
