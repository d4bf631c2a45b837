package paypal

import (
	"errors"
	"fmt"
)

// APIError means the call reached PayPal and came back with a non-2xx
// status. The outcome at the provider is known.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal api error: status %d: %s", e.StatusCode, e.Body)
}

// TransportError means the call did not complete. The outcome at the
// provider is unknown and the attempt must not be retried blindly.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("paypal transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
