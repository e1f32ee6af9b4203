// Package returnflow drives one order page visit from "start return"
// through item and method selection to a single initiate-return call.
package returnflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sendback/service-dashboard/internal/domain/returns"
	"github.com/sendback/service-dashboard/internal/domain/upstream"
	"github.com/sendback/service-dashboard/internal/metrics"
)

// Submitter issues the initiate-return write.
type Submitter interface {
	InitiateReturn(ctx context.Context, req *returns.ReturnRequest) (*returns.InitiateResult, error)
}

// Listener is notified after a submission completes.
type Listener interface {
	ReturnInitiated(ctx context.Context, req *returns.ReturnRequest, result *returns.InitiateResult)
}

// Controller is the return flow state machine for one OrderView.
// Every transition checks its own guard; a rejected transition returns an
// error wrapping returns.ErrGuardViolation and leaves the state unchanged.
type Controller struct {
	mu        sync.Mutex
	view      returns.OrderView
	submitter Submitter
	listener  Listener
	logger    *zap.Logger

	state    State
	selected []int64
	method   returns.Method
	message  string
	next     string
	// outcome is the result of the last submission attempt.
	outcome  State
	// inFlight is set for the duration of the write call, independent of
	// state, so a Reset cannot open the way to a second concurrent write.
	inFlight bool
}

// NewController creates a controller in StateNotStarted. The view is
// copied and never modified.
func NewController(view returns.OrderView, submitter Submitter, listener Listener, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		view:      view.Clone(),
		submitter: submitter,
		listener:  listener,
		logger:    logger.With(zap.Int64("order_id", view.Order.ID)),
		state:     StateNotStarted,
	}
}

// View returns a copy of the order view the flow was built from.
func (c *Controller) View() returns.OrderView {
	return c.view.Clone()
}

// Start moves from NotStarted to SelectingItems. No network call is made.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.view.Eligibility.OK {
		return returns.GuardError("order is not eligible for return: " + c.view.Eligibility.Reason)
	}
	if c.state != StateNotStarted {
		return returns.GuardError(fmt.Sprintf("cannot start from %s", c.state))
	}
	c.state = StateSelectingItems
	return nil
}

// ToggleItem adds the item to the selection, or removes it if present.
func (c *Controller) ToggleItem(itemID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkEditable(); err != nil {
		return err
	}
	if _, ok := c.view.Item(itemID); !ok {
		return returns.GuardError(fmt.Sprintf("item %d is not part of order %d", itemID, c.view.Order.ID))
	}

	for i, id := range c.selected {
		if id == itemID {
			c.selected = append(c.selected[:i:i], c.selected[i+1:]...)
			return nil
		}
	}
	c.selected = append(c.selected, itemID)
	return nil
}

// SelectMethod sets the fulfillment method. Only methods offered by an
// actionable option are accepted; the last selection wins.
func (c *Controller) SelectMethod(method returns.Method) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkEditable(); err != nil {
		return err
	}
	if !c.offers(method) {
		return returns.GuardError(fmt.Sprintf("return method %q is not offered", method))
	}

	c.method = method
	c.state = StateSelectingMethod
	return nil
}

// Selection is the outcome of choosing an option by position.
type Selection struct {
	Method  returns.Method `json:"method,omitempty"`
	OpenURL string         `json:"open_url,omitempty"`
}

// SelectOption chooses the option at index. An actionable option sets the
// method; an external option only yields its URL to open.
func (c *Controller) SelectOption(index int) (Selection, error) {
	if index < 0 || index >= len(c.view.Options) {
		return Selection{}, returns.GuardError(fmt.Sprintf("no return option at position %d", index))
	}

	switch opt := c.view.Options[index].(type) {
	case returns.ActionableOption:
		if err := c.SelectMethod(opt.Method); err != nil {
			return Selection{}, err
		}
		return Selection{Method: opt.Method}, nil
	case returns.ExternalOption:
		if !c.view.Eligibility.OK {
			return Selection{}, returns.GuardError("order is not eligible for return: " + c.view.Eligibility.Reason)
		}
		return Selection{OpenURL: opt.URL}, nil
	default:
		return Selection{}, returns.GuardError(fmt.Sprintf("unsupported option at position %d", index))
	}
}

// Continue submits the current selection as one ReturnRequest.
// A call while a submission is in flight returns ErrSubmissionInFlight
// without issuing a request. A failed submission passes through
// StateFailed back to StateSelectingMethod with the selection intact.
func (c *Controller) Continue(ctx context.Context) (*returns.InitiateResult, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, returns.ErrSubmissionInFlight
	}
	if !c.canContinue() {
		reason := c.continueBlocker()
		c.mu.Unlock()
		return nil, returns.GuardError(reason)
	}

	req, err := returns.NewReturnRequest(c.view.Order.ID, c.selected, c.method)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.state = StateSubmitting
	c.inFlight = true
	c.message = ""
	c.outcome = ""
	c.mu.Unlock()

	result, err := c.submitter.InitiateReturn(ctx, req)

	c.mu.Lock()
	c.inFlight = false
	// A Reset during the call discards the flow; the outcome is not applied.
	discarded := c.state != StateSubmitting
	if err != nil {
		subErr := submissionError(err)
		if !discarded {
			c.outcome = StateFailed
			c.message = subErr.Message
			c.state = StateSelectingMethod
		}
		c.mu.Unlock()

		metrics.ReturnSubmissionsTotal.WithLabelValues("failed").Inc()
		c.logger.Warn("Return submission failed",
			zap.Int64s("item_ids", req.ItemIDs),
			zap.String("method", req.Method.String()),
			zap.Error(err),
		)
		return nil, subErr
	}

	if !discarded {
		c.state = StateCompleted
		c.outcome = StateCompleted
		c.next = result.Next
	}
	c.mu.Unlock()

	metrics.ReturnSubmissionsTotal.WithLabelValues("completed").Inc()
	c.logger.Info("Return initiated",
		zap.Int64s("item_ids", req.ItemIDs),
		zap.String("method", req.Method.String()),
		zap.String("next", result.Next),
	)

	if c.listener != nil {
		c.listener.ReturnInitiated(ctx, req, result)
	}
	return result, nil
}

// Reset discards the selection and returns to NotStarted. A write still
// in flight keeps blocking Continue until it returns.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateNotStarted
	c.selected = nil
	c.method = ""
	c.message = ""
	c.next = ""
	c.outcome = ""
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InFlight reports whether a write call is pending.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Subtotal is the sum of unit_price × quantity over the selected items.
func (c *Controller) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subtotal()
}

// CanContinue reports whether Continue would issue a request.
func (c *Controller) CanContinue() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canContinue()
}

// Snapshot is the observable state of the flow.
type Snapshot struct {
	State           State           `json:"state"`
	OrderID         int64           `json:"order_id"`
	Eligible        bool            `json:"eligible"`
	Reason          string          `json:"reason,omitempty"`
	CanStart        bool            `json:"can_start"`
	ItemsEnabled    bool            `json:"items_enabled"`
	MethodsEnabled  bool            `json:"methods_enabled"`
	CanContinue     bool            `json:"can_continue"`
	SelectedItemIDs []int64         `json:"selected_item_ids"`
	Method          returns.Method  `json:"method,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Message         string          `json:"message,omitempty"`
	Next            string          `json:"next,omitempty"`
	LastOutcome     State           `json:"last_outcome,omitempty"`
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	eligible := c.view.Eligibility.OK
	editable := eligible && c.state.editable()

	snap := Snapshot{
		State:           c.state,
		OrderID:         c.view.Order.ID,
		Eligible:        eligible,
		CanStart:        eligible && c.state == StateNotStarted,
		ItemsEnabled:    editable,
		MethodsEnabled:  editable,
		CanContinue:     c.canContinue(),
		SelectedItemIDs: append([]int64{}, c.selected...),
		Method:          c.method,
		Subtotal:        c.subtotal(),
		Message:         c.message,
		Next:            c.next,
		LastOutcome:     c.outcome,
	}
	if !eligible {
		snap.Reason = c.view.Eligibility.Reason
	}
	return snap
}

func (c *Controller) checkEditable() error {
	if !c.view.Eligibility.OK {
		return returns.GuardError("order is not eligible for return: " + c.view.Eligibility.Reason)
	}
	if !c.state.editable() {
		return returns.GuardError(fmt.Sprintf("selection is locked in %s", c.state))
	}
	return nil
}

func (c *Controller) offers(method returns.Method) bool {
	for _, opt := range c.view.Options {
		if a, ok := opt.(returns.ActionableOption); ok && a.Method == method {
			return true
		}
	}
	return false
}

func (c *Controller) canContinue() bool {
	return c.continueBlocker() == ""
}

func (c *Controller) continueBlocker() string {
	switch {
	case !c.view.Eligibility.OK:
		return "order is not eligible for return: " + c.view.Eligibility.Reason
	case c.inFlight:
		return "a submission is already in flight"
	case !c.state.editable():
		return fmt.Sprintf("cannot continue from %s", c.state)
	case len(c.selected) == 0:
		return "no items selected"
	case !c.method.Valid():
		return "no return method selected"
	default:
		return ""
	}
}

func (c *Controller) subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, id := range c.selected {
		if it, ok := c.view.Item(id); ok {
			total = total.Add(it.LineTotal())
		}
	}
	return total
}

// submissionError surfaces the upstream "detail" when present.
func submissionError(err error) *returns.SubmissionError {
	subErr := &returns.SubmissionError{
		Message: returns.GenericSubmissionMessage,
		Err:     err,
	}

	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		subErr.StatusCode = apiErr.StatusCode
		if detail := apiErr.Detail(); detail != "" {
			subErr.Message = detail
		}
	}
	return subErr
}
