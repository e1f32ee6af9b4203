package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sendback/service-dashboard/internal/domain/returns"
)

type fakeLister struct {
	orders []returns.OrderSummary
	err    error
}

func (f *fakeLister) ListOrders(context.Context) ([]returns.OrderSummary, error) {
	return f.orders, f.err
}

func ids(orders []returns.OrderSummary) []int64 {
	out := make([]int64, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestPartitionOrders(t *testing.T) {
	orders := []returns.OrderSummary{
		{ID: 1, DaysRemaining: 12},
		{ID: 2, DaysRemaining: 0},
		{ID: 3, DaysRemaining: 3},
		{ID: 4, DaysRemaining: -5},
		{ID: 5, DaysRemaining: 7},
		{ID: 6, DaysRemaining: 3},
		{ID: 7, DaysRemaining: -1},
	}

	list := PartitionOrders(orders, 7)

	assert.Equal(t, []int64{3, 6, 5, 1}, ids(list.Active))
	assert.Equal(t, []int64{4, 7, 2}, ids(list.History))
	assert.Equal(t, 3, list.ExpiringSoonCount)
	assert.Equal(t, len(orders), len(list.Active)+len(list.History))
}

func TestPartitionOrdersEmpty(t *testing.T) {
	list := PartitionOrders(nil, 7)
	assert.NotNil(t, list.Active)
	assert.NotNil(t, list.History)
	assert.Zero(t, list.ExpiringSoonCount)
}

func TestFetchOrdersFailsOpen(t *testing.T) {
	agg := NewOrderListAggregator(&fakeLister{err: errors.New("upstream down")}, 7, nil)

	assert.Equal(t, []returns.OrderSummary{}, agg.FetchOrders(context.Background()))

	list := agg.FetchOrderList(context.Background())
	assert.Empty(t, list.Active)
	assert.Empty(t, list.History)
}

func TestFetchOrdersPassesThrough(t *testing.T) {
	orders := []returns.OrderSummary{{ID: 1, DaysRemaining: 2}, {ID: 2, DaysRemaining: 0}}
	agg := NewOrderListAggregator(&fakeLister{orders: orders}, 7, nil)

	assert.Equal(t, orders, agg.FetchOrders(context.Background()))
	assert.Equal(t, 1, agg.FetchOrderList(context.Background()).ExpiringSoonCount)
}
