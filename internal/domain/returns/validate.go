package returns

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateItems checks every line item and rejects duplicate ids.
func ValidateItems(items []LineItem) error {
	seen := make(map[int64]struct{}, len(items))
	for i, it := range items {
		if err := validate.Struct(it); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrMalformedPayload, i, err)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d: negative unit_price", ErrMalformedPayload, it.ID)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: duplicate item id %d", ErrMalformedPayload, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}

// ValidateInitiateResult requires a navigation target.
func ValidateInitiateResult(r *InitiateResult) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: initiate response: %v", ErrMalformedPayload, err)
	}
	return nil
}

type orderWire struct {
	ID            int64   `json:"id" validate:"required"`
	Merchant      string  `json:"merchant"`
	OrderIDText   string  `json:"order_id_text"`
	PurchaseDate  *string `json:"purchase_date"`
	DeadlineDate  *string `json:"deadline_date"`
	DaysRemaining *int    `json:"days_remaining" validate:"required"`
}

// DecodeOrderSummary parses an order body. An order without id or
// days_remaining is malformed.
func DecodeOrderSummary(raw []byte) (OrderSummary, error) {
	var w orderWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return OrderSummary{}, fmt.Errorf("%w: order: %v", ErrMalformedPayload, err)
	}
	if err := validate.Struct(w); err != nil {
		return OrderSummary{}, fmt.Errorf("%w: order: %v", ErrMalformedPayload, err)
	}
	return OrderSummary{
		ID:            w.ID,
		Merchant:      w.Merchant,
		OrderIDText:   w.OrderIDText,
		PurchaseDate:  w.PurchaseDate,
		DeadlineDate:  w.DeadlineDate,
		DaysRemaining: *w.DaysRemaining,
	}, nil
}

type eligibilityWire struct {
	OK     *bool  `json:"ok" validate:"required"`
	Reason string `json:"reason"`
}

// DecodeEligibility parses an eligibility body. The result is normalized.
func DecodeEligibility(raw []byte) (Eligibility, error) {
	var w eligibilityWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Eligibility{}, fmt.Errorf("%w: eligibility: %v", ErrMalformedPayload, err)
	}
	if err := validate.Struct(w); err != nil {
		return Eligibility{}, fmt.Errorf("%w: eligibility: %v", ErrMalformedPayload, err)
	}
	return Eligibility{OK: *w.OK, Reason: w.Reason}.Normalize(), nil
}
