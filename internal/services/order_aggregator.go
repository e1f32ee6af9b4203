package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sendback/service-dashboard/internal/domain/returns"
	"github.com/sendback/service-dashboard/internal/domain/upstream"
	"github.com/sendback/service-dashboard/internal/metrics"
)

// OrderSource is the read side of the order service used for one order page.
type OrderSource interface {
	GetOrder(ctx context.Context, orderID string) (*returns.OrderSummary, error)
	GetItems(ctx context.Context, orderID string) ([]returns.LineItem, error)
	GetEligibility(ctx context.Context, orderID string) (returns.Eligibility, error)
	GetOptions(ctx context.Context, orderID string) ([]returns.ReturnOption, error)
}

// OrderAggregator builds an OrderView from four concurrent reads. The
// order read is load-bearing; the other three fall back to defaults.
type OrderAggregator struct {
	source       OrderSource
	reasonMaxLen int
	logger       *zap.Logger
}

// NewOrderAggregator creates a new OrderAggregator. reasonMaxLen bounds
// the eligibility reason taken from a failed eligibility response.
func NewOrderAggregator(source OrderSource, reasonMaxLen int, logger *zap.Logger) *OrderAggregator {
	if reasonMaxLen <= 0 {
		reasonMaxLen = 120
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderAggregator{
		source:       source,
		reasonMaxLen: reasonMaxLen,
		logger:       logger,
	}
}

// IsMissingOrderID reports identifiers rejected before any network call.
func IsMissingOrderID(orderID string) bool {
	id := strings.TrimSpace(orderID)
	return id == "" || id == "undefined"
}

// fieldPolicy pairs one best-effort read with its fallback.
type fieldPolicy struct {
	field    string
	fetch    func(ctx context.Context, orderID string, view *returns.OrderView) error
	fallback func(view *returns.OrderView, err error)
}

func (a *OrderAggregator) fieldPolicies() []fieldPolicy {
	return []fieldPolicy{
		{
			field: returns.FieldItems,
			fetch: func(ctx context.Context, orderID string, view *returns.OrderView) error {
				items, err := a.source.GetItems(ctx, orderID)
				if err == nil {
					view.Items = items
				}
				return err
			},
			fallback: func(view *returns.OrderView, _ error) {
				view.Items = []returns.LineItem{}
			},
		},
		{
			field: returns.FieldEligibility,
			fetch: func(ctx context.Context, orderID string, view *returns.OrderView) error {
				eligibility, err := a.source.GetEligibility(ctx, orderID)
				if err == nil {
					view.Eligibility = eligibility.Normalize()
				}
				return err
			},
			fallback: func(view *returns.OrderView, err error) {
				view.Eligibility = returns.Ineligible(a.eligibilityReason(err))
			},
		},
		{
			field: returns.FieldOptions,
			fetch: func(ctx context.Context, orderID string, view *returns.OrderView) error {
				options, err := a.source.GetOptions(ctx, orderID)
				if err == nil {
					view.Options = options
				}
				return err
			},
			fallback: func(view *returns.OrderView, _ error) {
				view.Options = []returns.ReturnOption{}
			},
		},
	}
}

// FetchOrderView aggregates one order page. It fails only with an error
// wrapping returns.ErrNotFound, when the order itself is unavailable.
func (a *OrderAggregator) FetchOrderView(ctx context.Context, orderID string) (returns.OrderView, error) {
	if IsMissingOrderID(orderID) {
		return returns.OrderView{}, fmt.Errorf("%w: missing order id", returns.ErrNotFound)
	}

	policies := a.fieldPolicies()

	// Each goroutine writes only its own field of partial, and nothing
	// returns an error to the group, so no read cancels another.
	var (
		partial  returns.OrderView
		order    *returns.OrderSummary
		orderErr error
		errs     = make([]error, len(policies))
		g        errgroup.Group
	)

	g.Go(func() error {
		order, orderErr = a.source.GetOrder(ctx, orderID)
		return nil
	})
	for i, p := range policies {
		g.Go(func() error {
			errs[i] = p.fetch(ctx, orderID, &partial)
			return nil
		})
	}
	_ = g.Wait()

	if orderErr != nil || order == nil {
		metrics.OrderViewNotFoundTotal.Inc()
		a.logger.Info("Order unavailable",
			zap.String("order_id", orderID),
			zap.Error(orderErr),
		)
		return returns.OrderView{}, fmt.Errorf("%w: %v", returns.ErrNotFound, orderErr)
	}

	view := returns.NewOrderView(*order)
	view.Items, view.Eligibility, view.Options = partial.Items, partial.Eligibility, partial.Options

	for i, p := range policies {
		if errs[i] == nil {
			continue
		}
		p.fallback(&view, errs[i])
		degraded := &returns.DegradedFieldError{Field: p.field, Err: errs[i]}
		metrics.DegradedFieldsTotal.WithLabelValues(p.field).Inc()
		a.logger.Warn("Order view field degraded",
			zap.String("order_id", orderID),
			zap.String("field", p.field),
			zap.Error(degraded),
		)
	}

	if view.Items == nil {
		view.Items = []returns.LineItem{}
	}
	if view.Options == nil {
		view.Options = []returns.ReturnOption{}
	}
	return view, nil
}

// eligibilityReason turns a failed eligibility read into a user-facing
// reason: the response detail or body text of a non-2xx reply, clipped to
// reasonMaxLen, or UnknownReason.
func (a *OrderAggregator) eligibilityReason(err error) string {
	var apiErr *upstream.APIError
	if !errors.As(err, &apiErr) {
		return returns.UnknownReason
	}

	text := apiErr.Detail()
	if text == "" {
		text = strings.TrimSpace(apiErr.Body)
	}
	if text == "" {
		return returns.UnknownReason
	}

	if r := []rune(text); len(r) > a.reasonMaxLen {
		text = string(r[:a.reasonMaxLen])
	}
	return text
}
