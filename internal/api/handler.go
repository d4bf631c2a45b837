package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"payment-service/internal/order"
	"payment-service/internal/payment"
	"payment-service/internal/paypal"

	"github.com/pkg/errors"
)

// Handler is the thin checkout-facing surface. Session handling is not this
// service's concern: the caller identifies the user via the X-User-Ref
// header set by the upstream gateway.
type Handler struct {
	creator  *order.Creator
	capturer *payment.Capturer
	logger   *slog.Logger
}

func NewHandler(creator *order.Creator, capturer *payment.Capturer, logger *slog.Logger) *Handler {
	return &Handler{creator: creator, capturer: capturer, logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("POST /api/orders/{id}/capture", h.captureOrder)
}

type createOrderRequest struct {
	Cart []paypal.PurchaseUnitRequest `json:"cart"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	userRef := r.Header.Get("X-User-Ref")
	if userRef == "" {
		http.Error(w, "missing X-User-Ref header", http.StatusBadRequest)
		return
	}

	var request createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(request.Cart) == 0 {
		http.Error(w, "cart is empty", http.StatusBadRequest)
		return
	}

	result, err := h.creator.Create(r.Context(), userRef, request.Cart)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeRaw(w, result.HTTPStatus, result.Raw)
}

func (h *Handler) captureOrder(w http.ResponseWriter, r *http.Request) {
	paypalOrderID := r.PathValue("id")
	if paypalOrderID == "" {
		http.Error(w, "missing order id", http.StatusBadRequest)
		return
	}

	outcome, err := h.capturer.CaptureAndSave(r.Context(), paypalOrderID)
	if err != nil {
		if outcome != nil {
			// the provider captured the money but local state did not commit
			h.logger.ErrorContext(r.Context(), "Capture persisted at provider only",
				"error", err, "response", outcome.Raw)
			http.Error(w, "capture accepted by provider, local persistence failed", http.StatusInternalServerError)
			return
		}
		h.writeError(w, r, err)
		return
	}

	h.writeRaw(w, outcome.HTTPStatus, outcome.Raw)
}

func (h *Handler) writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "Request failed", "error", err)

	var apiErr *paypal.APIError
	if errors.As(err, &apiErr) {
		h.writeRaw(w, apiErr.StatusCode, apiErr.Body)
		return
	}
	if paypal.IsTransport(err) {
		http.Error(w, "payment provider unavailable", http.StatusBadGateway)
		return
	}

	http.Error(w, "internal error", http.StatusInternalServerError)
}
