package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event subjects
const (
	SubjectReturnInitiated = "returns.initiated"

	// Policy events - merchants republish their return policy
	SubjectPolicyUpdated = "policy.updated"
)

// PolicyUpdatedEvent is emitted when a merchant's return policy changes
type PolicyUpdatedEvent struct {
	Merchant  string    `json:"merchant"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// PolicyEventHandler defines the interface for handling policy events
type PolicyEventHandler interface {
	HandlePolicyUpdated(ctx context.Context, merchant string) error
}

// Subscriber handles NATS event subscriptions
type Subscriber struct {
	nc      *nats.Conn
	logger  *zap.Logger
	handler PolicyEventHandler
	subs    []*nats.Subscription
	timeout time.Duration
}

// NewSubscriber creates a new NATS subscriber
func NewSubscriber(nc *nats.Conn, handler PolicyEventHandler, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		nc:      nc,
		logger:  logger,
		handler: handler,
		subs:    make([]*nats.Subscription, 0),
		timeout: 5 * time.Second,
	}
}

// Start subscribes to all relevant events
func (s *Subscriber) Start() error {
	sub, err := s.nc.Subscribe(SubjectPolicyUpdated, s.handlePolicyUpdated)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	s.logger.Info("Subscribed to event", zap.String("subject", SubjectPolicyUpdated))
	return nil
}

// Stop unsubscribes from all events
func (s *Subscriber) Stop() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("Failed to unsubscribe", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}
	s.subs = s.subs[:0]
	s.logger.Info("NATS subscriber stopped")
}

// handlePolicyUpdated processes policy updated events
func (s *Subscriber) handlePolicyUpdated(msg *nats.Msg) {
	var event PolicyUpdatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.logger.Error("Failed to unmarshal policy updated event", zap.Error(err))
		return
	}
	merchant := strings.TrimSpace(event.Merchant)
	if merchant == "" {
		s.logger.Warn("Ignoring policy updated event without merchant")
		return
	}

	s.logger.Info("Received policy updated event", zap.String("merchant", merchant))

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.handler.HandlePolicyUpdated(ctx, merchant); err != nil {
		s.logger.Error("Failed to handle policy updated event",
			zap.String("merchant", merchant),
			zap.Error(err),
		)
	}
}
