package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/sendback/service-dashboard/internal/domain/returns"
)

// OrderLister fetches the collection of tracked orders.
type OrderLister interface {
	ListOrders(ctx context.Context) ([]returns.OrderSummary, error)
}

// OrderListAggregator feeds the dashboard list view.
type OrderListAggregator struct {
	lister           OrderLister
	expiringSoonDays int
	logger           *zap.Logger
}

// NewOrderListAggregator creates a new OrderListAggregator.
func NewOrderListAggregator(lister OrderLister, expiringSoonDays int, logger *zap.Logger) *OrderListAggregator {
	if expiringSoonDays <= 0 {
		expiringSoonDays = 7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderListAggregator{
		lister:           lister,
		expiringSoonDays: expiringSoonDays,
		logger:           logger,
	}
}

// FetchOrders returns every tracked order. It fails open: any upstream
// failure yields an empty list.
func (a *OrderListAggregator) FetchOrders(ctx context.Context) []returns.OrderSummary {
	orders, err := a.lister.ListOrders(ctx)
	if err != nil {
		a.logger.Warn("Failed to list orders, serving empty dashboard", zap.Error(err))
		return []returns.OrderSummary{}
	}
	if orders == nil {
		return []returns.OrderSummary{}
	}
	return orders
}

// FetchOrderList fetches and partitions the orders.
func (a *OrderListAggregator) FetchOrderList(ctx context.Context) returns.OrderList {
	return PartitionOrders(a.FetchOrders(ctx), a.expiringSoonDays)
}

// PartitionOrders splits orders into active (days_remaining > 0) and
// history, both ascending by days_remaining, and counts active orders due
// within expiringSoonDays.
func PartitionOrders(orders []returns.OrderSummary, expiringSoonDays int) returns.OrderList {
	list := returns.OrderList{
		Active:  []returns.OrderSummary{},
		History: []returns.OrderSummary{},
	}

	for _, o := range orders {
		if o.Active() {
			list.Active = append(list.Active, o)
			if o.DaysRemaining <= expiringSoonDays {
				list.ExpiringSoonCount++
			}
			continue
		}
		list.History = append(list.History, o)
	}

	byDaysRemaining := func(s []returns.OrderSummary) func(i, j int) bool {
		return func(i, j int) bool { return s[i].DaysRemaining < s[j].DaysRemaining }
	}
	sort.SliceStable(list.Active, byDaysRemaining(list.Active))
	sort.SliceStable(list.History, byDaysRemaining(list.History))

	return list
}
