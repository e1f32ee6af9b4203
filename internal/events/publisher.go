package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/sendback/service-dashboard/internal/domain/returns"
)

// ReturnInitiatedEvent is published after the upstream accepted a return.
type ReturnInitiatedEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	OrderID   int64     `json:"order_id"`
	ItemIDs   []int64   `json:"item_ids"`
	Method    string    `json:"method"`
	Next      string    `json:"next"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReturnInitiatedEvent builds the event for an accepted request.
func NewReturnInitiatedEvent(req *returns.ReturnRequest, result *returns.InitiateResult, now time.Time) *ReturnInitiatedEvent {
	itemIDs := make([]int64, len(req.ItemIDs))
	copy(itemIDs, req.ItemIDs)
	return &ReturnInitiatedEvent{
		EventID:   uuid.New(),
		OrderID:   req.OrderID,
		ItemIDs:   itemIDs,
		Method:    req.Method.String(),
		Next:      result.Next,
		Timestamp: now.UTC(),
	}
}

// Publisher handles publishing events to NATS. A Publisher without a
// connection drops events.
type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
	now    func() time.Time
}

// NewPublisher creates a new NATS publisher
func NewPublisher(nc *nats.Conn, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{nc: nc, logger: logger, now: time.Now}
}

// PublishReturnInitiated publishes a return initiated event
func (p *Publisher) PublishReturnInitiated(event *ReturnInitiatedEvent) error {
	if p.nc == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.nc.Publish(SubjectReturnInitiated, data)
}

// ReturnInitiated lets the publisher act as a return flow listener.
// Publish failures are logged; the return itself already succeeded.
func (p *Publisher) ReturnInitiated(_ context.Context, req *returns.ReturnRequest, result *returns.InitiateResult) {
	event := NewReturnInitiatedEvent(req, result, p.now())
	if err := p.PublishReturnInitiated(event); err != nil {
		p.logger.Error("Failed to publish return initiated event",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}
