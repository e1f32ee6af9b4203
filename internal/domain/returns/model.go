// Package returns holds the order, eligibility and return-request types
// shared by the aggregators and the return flow.
package returns

import (
	"github.com/shopspring/decimal"
)

// UnknownReason is the eligibility reason used when the upstream gave none.
const UnknownReason = "Unknown"

// Method is a fulfillment method accepted by the initiate-return call.
type Method string

const (
	MethodMail    Method = "mail"
	MethodDropoff Method = "dropoff"
)

// Valid reports whether m is one of the submittable methods.
func (m Method) Valid() bool {
	return m == MethodMail || m == MethodDropoff
}

// String returns the wire value of the method.
func (m Method) String() string {
	return string(m)
}

// OrderSummary is the order header as returned by the order service.
type OrderSummary struct {
	ID            int64   `json:"id"`
	Merchant      string  `json:"merchant"`
	OrderIDText   string  `json:"order_id_text"`
	PurchaseDate  *string `json:"purchase_date,omitempty"`
	DeadlineDate  *string `json:"deadline_date,omitempty"`
	DaysRemaining int     `json:"days_remaining"`
}

// Active reports whether the return window is still open.
func (o OrderSummary) Active() bool {
	return o.DaysRemaining > 0
}

// LineItem is one purchased item of an order.
type LineItem struct {
	ID        int64           `json:"id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	SKU       string          `json:"sku,omitempty"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal is unit price times quantity.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Eligibility is the server-asserted permission to begin a return.
type Eligibility struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Normalize fills in UnknownReason for a refusal that carries no reason.
func (e Eligibility) Normalize() Eligibility {
	if !e.OK && e.Reason == "" {
		e.Reason = UnknownReason
	}
	return e
}

// Ineligible builds a refusal with the given reason.
func Ineligible(reason string) Eligibility {
	return Eligibility{OK: false, Reason: reason}.Normalize()
}

// OrderView is the aggregated snapshot of one order page.
// Order is always present; the other fields may hold their defaults.
type OrderView struct {
	Order       OrderSummary   `json:"order"`
	Items       []LineItem     `json:"items"`
	Eligibility Eligibility    `json:"eligibility"`
	Options     []ReturnOption `json:"options"`
}

// NewOrderView returns a view for order with every secondary field at its default.
func NewOrderView(order OrderSummary) OrderView {
	return OrderView{
		Order:       order,
		Items:       []LineItem{},
		Eligibility: Ineligible(UnknownReason),
		Options:     []ReturnOption{},
	}
}

// Clone returns a copy that shares no slices with v.
func (v OrderView) Clone() OrderView {
	out := v
	out.Items = append([]LineItem{}, v.Items...)
	out.Options = append([]ReturnOption{}, v.Options...)
	return out
}

// Item looks up a line item by id.
func (v OrderView) Item(id int64) (LineItem, bool) {
	for _, it := range v.Items {
		if it.ID == id {
			return it, true
		}
	}
	return LineItem{}, false
}

// ReturnRequest is the body of the initiate-return call.
type ReturnRequest struct {
	OrderID int64   `json:"-"`
	ItemIDs []int64 `json:"item_ids"`
	Method  Method  `json:"method"`
}

// NewReturnRequest builds a request, refusing empty selections.
func NewReturnRequest(orderID int64, itemIDs []int64, method Method) (*ReturnRequest, error) {
	if len(itemIDs) == 0 {
		return nil, GuardError("no items selected")
	}
	if !method.Valid() {
		return nil, GuardError("no return method selected")
	}
	return &ReturnRequest{
		OrderID: orderID,
		ItemIDs: append([]int64{}, itemIDs...),
		Method:  method,
	}, nil
}

// InitiateResult is the successful response of the initiate-return call.
type InitiateResult struct {
	Next string `json:"next" validate:"required"`
}

// OrderList is the dashboard partition of all tracked orders.
type OrderList struct {
	Active            []OrderSummary `json:"active"`
	History           []OrderSummary `json:"history"`
	ExpiringSoonCount int            `json:"expiring_soon_count"`
}

// Checklist is the "what to bring" guidance shown with every order.
var Checklist = []string{
	"Return QR / label (if provided)",
	"Order email or ID",
	"Original packaging if required",
	"Valid ID (some stores)",
	"Items clean & unworn",
}
