package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sendback/service-dashboard/internal/domain/returns"
	"github.com/sendback/service-dashboard/internal/metrics"
	"github.com/sendback/service-dashboard/internal/returnflow"
)

// ErrFlowNotFound is returned for an unknown or expired flow session.
var ErrFlowNotFound = errors.New("return flow session not found")

// ViewFetcher builds the OrderView a flow starts from.
type ViewFetcher interface {
	FetchOrderView(ctx context.Context, orderID string) (returns.OrderView, error)
}

// ReturnFlowServiceConfig holds configuration for flow sessions.
type ReturnFlowServiceConfig struct {
	TTL           time.Duration // Idle time after which a session is dropped
	CheckInterval time.Duration // How often to sweep idle sessions
}

// ReturnFlowService keeps one return flow controller per order page visit.
type ReturnFlowService struct {
	views     ViewFetcher
	submitter returnflow.Submitter
	listener  returnflow.Listener
	config    ReturnFlowServiceConfig
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*flowSession

	// Lifecycle management
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	runMu    sync.Mutex
}

type flowSession struct {
	controller *returnflow.Controller
	lastSeen   time.Time
}

// NewReturnFlowService creates a new ReturnFlowService.
func NewReturnFlowService(
	views ViewFetcher,
	submitter returnflow.Submitter,
	listener returnflow.Listener,
	cfg ReturnFlowServiceConfig,
	logger *zap.Logger,
) *ReturnFlowService {
	if cfg.TTL == 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReturnFlowService{
		views:     views,
		submitter: submitter,
		listener:  listener,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[uuid.UUID]*flowSession),
		stopChan:  make(chan struct{}),
	}
}

// Open aggregates a fresh OrderView and starts a flow session for it.
func (s *ReturnFlowService) Open(ctx context.Context, orderID string) (uuid.UUID, *returnflow.Controller, error) {
	view, err := s.views.FetchOrderView(ctx, orderID)
	if err != nil {
		return uuid.Nil, nil, err
	}

	id := uuid.New()
	controller := returnflow.NewController(view, s.submitter, s.listener, s.logger.With(zap.String("flow_id", id.String())))

	s.mu.Lock()
	s.sessions[id] = &flowSession{controller: controller, lastSeen: s.now()}
	count := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveFlowSessions.Set(float64(count))
	s.logger.Debug("return flow opened",
		zap.String("flow_id", id.String()),
		zap.Int64("order_id", view.Order.ID),
		zap.Bool("eligible", view.Eligibility.OK),
	)
	return id, controller, nil
}

// Get returns the controller of a live session and refreshes its idle timer.
func (s *ReturnFlowService) Get(id uuid.UUID) (*returnflow.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.now().Sub(sess.lastSeen) > s.config.TTL {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	sess.lastSeen = s.now()
	return sess.controller, nil
}

// Close discards a session, as on navigation away from the order page.
func (s *ReturnFlowService) Close(id uuid.UUID) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if ok {
		sess.controller.Reset()
	}
	metrics.ActiveFlowSessions.Set(float64(count))
	return ok
}

// Count returns the number of live sessions.
func (s *ReturnFlowService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Start begins the background sweep of idle sessions.
func (s *ReturnFlowService) Start(ctx context.Context) error {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return fmt.Errorf("return flow service already running")
	}
	s.running = true
	s.runMu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("return flow sweeper started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Duration("ttl", s.config.TTL),
	)
	return nil
}

// Stop gracefully stops the sweeper.
func (s *ReturnFlowService) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	s.runMu.Unlock()

	close(s.stopChan)
	s.wg.Wait()

	s.logger.Info("return flow sweeper stopped")
}

func (s *ReturnFlowService) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			if n := s.evictExpired(); n > 0 {
				s.logger.Debug("evicted idle return flows", zap.Int("count", n))
			}
		}
	}
}

// evictExpired drops sessions idle for longer than the TTL.
func (s *ReturnFlowService) evictExpired() int {
	s.mu.Lock()
	now := s.now()
	evicted := 0
	for id, sess := range s.sessions {
		// A submission in flight keeps its session alive.
		if sess.controller.InFlight() {
			continue
		}
		if now.Sub(sess.lastSeen) > s.config.TTL {
			delete(s.sessions, id)
			evicted++
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveFlowSessions.Set(float64(count))
	return evicted
}
