package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrderStatus(t *testing.T) {
	for _, valid := range []string{"CREATED", "APPROVED", "COMPLETED", "FAILED", "VOIDED"} {
		status, err := ParseOrderStatus(valid)
		assert.NoError(t, err)
		assert.Equal(t, OrderStatus(valid), status)
	}

	_, err := ParseOrderStatus("SHIPPED")
	assert.Error(t, err)

	_, err = ParseOrderStatus("created")
	assert.Error(t, err)
}

func TestParsePaymentStatus(t *testing.T) {
	for _, valid := range []string{
		"PENDING", "COMPLETED", "FAILED", "DENIED",
		"CANCELLED", "REFUNDED", "PARTIALLY_REFUNDED",
	} {
		status, err := ParsePaymentStatus(valid)
		assert.NoError(t, err)
		assert.Equal(t, PaymentStatus(valid), status)
	}

	_, err := ParsePaymentStatus("CHARGEBACK")
	assert.Error(t, err)
}

func TestParseRequestType(t *testing.T) {
	for _, valid := range []string{
		"order_create", "order_capture", "order_get", "payment_refund", "payment_get",
	} {
		requestType, err := ParseRequestType(valid)
		assert.NoError(t, err)
		assert.Equal(t, RequestType(valid), requestType)
	}

	_, err := ParseRequestType("order_delete")
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"SANDBOX", "PRODUCTION"} {
		mode, err := ParseMode(valid)
		assert.NoError(t, err)
		assert.Equal(t, Mode(valid), mode)
	}

	_, err := ParseMode("sandbox")
	assert.Error(t, err)
}
