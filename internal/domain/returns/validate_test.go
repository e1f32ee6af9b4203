package returns

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOrderSummary(t *testing.T) {
	t.Run("full order", func(t *testing.T) {
		order, err := DecodeOrderSummary([]byte(`{
			"id": 42, "merchant": "Acme", "order_id_text": "A-42",
			"purchase_date": "2024-05-01", "deadline_date": null, "days_remaining": 0
		}`))
		require.NoError(t, err)
		assert.Equal(t, int64(42), order.ID)
		assert.Equal(t, "Acme", order.Merchant)
		require.NotNil(t, order.PurchaseDate)
		assert.Equal(t, "2024-05-01", *order.PurchaseDate)
		assert.Nil(t, order.DeadlineDate)
		assert.Equal(t, 0, order.DaysRemaining)
		assert.False(t, order.Active())
	})

	t.Run("missing days_remaining", func(t *testing.T) {
		_, err := DecodeOrderSummary([]byte(`{"id": 42, "merchant": "Acme"}`))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := DecodeOrderSummary([]byte(`{"merchant": "Acme", "days_remaining": 3}`))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeOrderSummary([]byte(`<html>`))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestDecodeEligibility(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Eligibility
		wantErr bool
	}{
		{name: "eligible", raw: `{"ok":true}`, want: Eligibility{OK: true}},
		{name: "refused with reason", raw: `{"ok":false,"reason":"Final sale"}`, want: Eligibility{OK: false, Reason: "Final sale"}},
		{name: "refused without reason", raw: `{"ok":false}`, want: Eligibility{OK: false, Reason: UnknownReason}},
		{name: "missing ok", raw: `{"reason":"x"}`, wantErr: true},
		{name: "wrong type", raw: `{"ok":"yes"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEligibility([]byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateItems(t *testing.T) {
	good := LineItem{ID: 1, Name: "Shirt", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")}

	assert.NoError(t, ValidateItems([]LineItem{good}))
	assert.NoError(t, ValidateItems(nil))

	zeroQty := good
	zeroQty.Quantity = 0
	assert.ErrorIs(t, ValidateItems([]LineItem{zeroQty}), ErrMalformedPayload)

	noName := good
	noName.Name = ""
	assert.ErrorIs(t, ValidateItems([]LineItem{noName}), ErrMalformedPayload)

	negative := good
	negative.UnitPrice = decimal.NewFromInt(-1)
	assert.ErrorIs(t, ValidateItems([]LineItem{negative}), ErrMalformedPayload)

	assert.ErrorIs(t, ValidateItems([]LineItem{good, good}), ErrMalformedPayload)
}

func TestNewReturnRequest(t *testing.T) {
	_, err := NewReturnRequest(1, nil, MethodMail)
	assert.ErrorIs(t, err, ErrGuardViolation)

	_, err = NewReturnRequest(1, []int64{3}, Method("pigeon"))
	assert.ErrorIs(t, err, ErrGuardViolation)

	ids := []int64{3, 1}
	req, err := NewReturnRequest(7, ids, MethodDropoff)
	require.NoError(t, err)
	ids[0] = 99
	assert.Equal(t, []int64{3, 1}, req.ItemIDs)
	assert.Equal(t, int64(7), req.OrderID)
	assert.Equal(t, MethodDropoff, req.Method)
}

func TestLineTotal(t *testing.T) {
	item := LineItem{ID: 1, Name: "Socks", Quantity: 3, UnitPrice: decimal.RequireFromString("2.10")}
	assert.True(t, decimal.RequireFromString("6.30").Equal(item.LineTotal()))
}

func TestNewOrderViewDefaults(t *testing.T) {
	view := NewOrderView(OrderSummary{ID: 5})
	assert.Empty(t, view.Items)
	assert.NotNil(t, view.Items)
	assert.Empty(t, view.Options)
	assert.Equal(t, Eligibility{OK: false, Reason: UnknownReason}, view.Eligibility)
}
