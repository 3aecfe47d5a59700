// Package services runs the poll coordinator on the hollywood actor engine
// and manages the lifecycle of long running services.
package services

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/anthdm/hollywood/actor"
)

// pollTick is the scheduled cycle trigger.
type pollTick struct{}

// RefreshMsg asks the poll actor for an immediate cycle. The response is
// a RefreshResponseMsg.
type RefreshMsg struct{}

// RefreshResponseMsg carries the outcome of a RefreshMsg.
type RefreshResponseMsg struct {
	Err error
}

// StatusRequestMsg is a message requesting the current status of an actor
type StatusRequestMsg struct{}

// StatusResponseMsg is the response to a status request
type StatusResponseMsg struct {
	Status     Status
	LastActive time.Time
}

// PollActor drives a Coordinator. The actor mailbox serializes ticks and
// refreshes so at most one cycle is in flight.
type PollActor struct {
	coordinator *Coordinator
	logger      *internal.Logger
	ctx         context.Context
	repeater    actor.SendRepeater
	scheduled   bool
	lastActive  time.Time
}

// NewPollActor returns a producer for the engine. ctx bounds every cycle.
func NewPollActor(ctx context.Context, coordinator *Coordinator, logger *internal.Logger) actor.Producer {
	return func() actor.Receiver {
		return &PollActor{
			coordinator: coordinator,
			logger:      logger,
			ctx:         ctx,
		}
	}
}

// Receive implements the actor.Receiver interface
func (a *PollActor) Receive(c *actor.Context) {
	switch c.Message().(type) {
	case actor.Started:
		interval := a.coordinator.Interval()
		a.logger.Info(internal.ComponentCoordinator, "Poll actor started, interval %s", interval)
		a.repeater = c.Engine().SendRepeat(c.PID(), pollTick{}, interval)
		a.scheduled = true
		c.Engine().Send(c.PID(), pollTick{})

	case actor.Stopped:
		if a.scheduled {
			a.repeater.Stop()
			a.scheduled = false
		}
		a.logger.Info(internal.ComponentCoordinator, "Poll actor stopped")

	case pollTick:
		a.run()

	case RefreshMsg:
		c.Respond(RefreshResponseMsg{Err: a.run()})

	case StatusRequestMsg:
		c.Respond(StatusResponseMsg{
			Status:     a.coordinator.Status(),
			LastActive: a.lastActive,
		})
	}
}

func (a *PollActor) run() error {
	if a.ctx.Err() != nil {
		return a.ctx.Err()
	}
	a.lastActive = time.Now()
	// Failures are recorded in the coordinator status.
	return a.coordinator.Update(a.ctx)
}
