package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/anthdm/hollywood/actor"
)

// PollServiceName is the name the poll service registers under.
const PollServiceName = "poller"

// refreshTimeout bounds a refresh request, which includes a full cycle.
const refreshTimeout = 2 * time.Minute

// ErrPollerNotRunning is returned by requests made while the service is stopped.
var ErrPollerNotRunning = errors.New("poll service is not running")

// PollService hosts the poll actor. It implements ManagedService.
type PollService struct {
	coordinator *Coordinator
	logger      *internal.Logger

	mu     sync.RWMutex
	engine *actor.Engine
	pid    *actor.PID
}

// NewPollService creates a poll service for coordinator
func NewPollService(coordinator *Coordinator, logger *internal.Logger) *PollService {
	if logger == nil {
		logger = internal.GetLogger()
	}
	return &PollService{coordinator: coordinator, logger: logger}
}

// Coordinator returns the coordinator driven by the service
func (s *PollService) Coordinator() *Coordinator {
	return s.coordinator
}

// Start spawns the poll actor and blocks until ctx is cancelled.
func (s *PollService) Start(ctx context.Context) error {
	engine, err := actor.NewEngine(actor.NewEngineConfig())
	if err != nil {
		return fmt.Errorf("failed to create actor engine: %w", err)
	}

	pid := engine.Spawn(NewPollActor(ctx, s.coordinator, s.logger), PollServiceName)

	s.mu.Lock()
	s.engine, s.pid = engine, pid
	s.mu.Unlock()

	<-ctx.Done()

	s.mu.Lock()
	s.engine, s.pid = nil, nil
	s.mu.Unlock()

	<-engine.Poison(pid).Done()
	return nil
}

// Refresh asks the actor for an immediate cycle and waits for it.
func (s *PollService) Refresh() error {
	res, err := s.request(RefreshMsg{}, refreshTimeout)
	if err != nil {
		return err
	}
	resp, ok := res.(RefreshResponseMsg)
	if !ok {
		return fmt.Errorf("unexpected refresh response %T", res)
	}
	return resp.Err
}

// Status returns the coordinator status as seen by the actor.
func (s *PollService) Status() (StatusResponseMsg, error) {
	res, err := s.request(StatusRequestMsg{}, 5*time.Second)
	if err != nil {
		return StatusResponseMsg{}, err
	}
	resp, ok := res.(StatusResponseMsg)
	if !ok {
		return StatusResponseMsg{}, fmt.Errorf("unexpected status response %T", res)
	}
	return resp, nil
}

// Running reports whether the actor has been spawned
func (s *PollService) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pid != nil
}

func (s *PollService) request(msg any, timeout time.Duration) (any, error) {
	s.mu.RLock()
	engine, pid := s.engine, s.pid
	s.mu.RUnlock()
	if engine == nil {
		return nil, ErrPollerNotRunning
	}
	return engine.Request(pid, msg, timeout).Result()
}

// ControlHandler answers "refresh" and "status" commands received over
// the message broker. Replies are JSON encoded.
func (s *PollService) ControlHandler(data []byte) ([]byte, error) {
	command := strings.ToLower(strings.TrimSpace(string(data)))
	s.logger.Debug(internal.ComponentService, "Control command: %q", command)

	switch command {
	case "refresh":
		if err := s.Refresh(); err != nil {
			return nil, err
		}
		return json.Marshal(s.coordinator.Status())
	case "status", "":
		// Served from the coordinator, not the actor mailbox.
		if !s.Running() {
			return nil, ErrPollerNotRunning
		}
		return json.Marshal(s.coordinator.Status())
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}
