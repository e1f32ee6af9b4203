package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendback/service-dashboard/internal/domain/returns"
	"github.com/sendback/service-dashboard/internal/returnflow"
)

type stubSubmitter struct{}

func (stubSubmitter) InitiateReturn(context.Context, *returns.ReturnRequest) (*returns.InitiateResult, error) {
	return &returns.InitiateResult{Next: "/next"}, nil
}

func newFlowService(t *testing.T, src *fakeSource, ttl time.Duration) *ReturnFlowService {
	t.Helper()
	return NewReturnFlowService(
		NewOrderAggregator(src, 120, nil),
		stubSubmitter{},
		nil,
		ReturnFlowServiceConfig{TTL: ttl, CheckInterval: time.Hour},
		nil,
	)
}

func TestReturnFlowServiceLifecycle(t *testing.T) {
	svc := newFlowService(t, healthySource(), time.Minute)

	id, controller, err := svc.Open(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, returnflow.StateNotStarted, controller.State())
	assert.Equal(t, 1, svc.Count())

	got, err := svc.Get(id)
	require.NoError(t, err)
	assert.Same(t, controller, got)

	require.NoError(t, got.Start())
	assert.True(t, svc.Close(id))
	assert.False(t, svc.Close(id))

	_, err = svc.Get(id)
	assert.ErrorIs(t, err, ErrFlowNotFound)
	assert.Zero(t, svc.Count())
}

func TestReturnFlowServiceOpenNotFound(t *testing.T) {
	src := healthySource()
	src.order = nil
	src.orderErr = returns.ErrMalformedPayload
	svc := newFlowService(t, src, time.Minute)

	_, _, err := svc.Open(context.Background(), "1")
	assert.ErrorIs(t, err, returns.ErrNotFound)
	assert.Zero(t, svc.Count())
}

func TestReturnFlowServiceUnknownID(t *testing.T) {
	svc := newFlowService(t, healthySource(), time.Minute)
	_, err := svc.Get(uuid.New())
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestReturnFlowServiceEvictsIdleSessions(t *testing.T) {
	svc := newFlowService(t, healthySource(), time.Minute)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stale, _, err := svc.Open(context.Background(), "1")
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	fresh, _, err := svc.Open(context.Background(), "1")
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = svc.Get(stale)
	assert.ErrorIs(t, err, ErrFlowNotFound, "expired sessions are not served before the sweep")

	assert.Equal(t, 1, svc.evictExpired())
	assert.Equal(t, 1, svc.Count())
	_, err = svc.Get(fresh)
	assert.NoError(t, err)
}

func TestReturnFlowServiceStartStop(t *testing.T) {
	svc := newFlowService(t, healthySource(), time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, svc.Start(ctx))
	assert.Error(t, svc.Start(ctx))
	svc.Stop()
	svc.Stop()
}
