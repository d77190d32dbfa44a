// Package dashboard keeps the insights shown to staff in sync with the backend.
package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/trezcool/schoolpulse/core"
	"github.com/trezcool/schoolpulse/core/incident"
	"github.com/trezcool/schoolpulse/core/insights"
)

const insightsKey = "insights"

var NowFunc = time.Now // mockable

// Backend receives incident submissions.
type Backend interface {
	SubmitDelayLog(ctx context.Context, entry incident.DelayLogEntry) (incident.SubmitResult, error)
	SubmitInfraction(ctx context.Context, entry incident.InfractionEntry) (incident.SubmitResult, error)
	Ping(ctx context.Context) error
	ConnectionInfo() core.ConnectionInfo
}

type (
	Options struct {
		Source    insights.Source
		Backend   Backend
		Validator *core.Validator // must have the incident validators registered
		Logger    core.Logger
	}

	// Controller owns the cached insights Snapshot and the refresh cycle:
	// Idle -> Loading -> Loaded | Failed. At most one refresh is in flight;
	// concurrent LoadInsights callers join it.
	Controller struct {
		source    insights.Source
		backend   Backend
		validator *core.Validator
		logger    core.Logger

		group   singleflight.Group
		ctx     context.Context // lifetime of the controller; cancelled by Close
		cancel  context.CancelFunc
		waiting int32 // LoadInsights callers currently waiting on the refresh

		mu        sync.Mutex
		state     State
		closed    bool
		listeners map[int]func(State)
		nextID    int
	}
)

func NewController(opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		source:    opts.Source,
		backend:   opts.Backend,
		validator: opts.Validator,
		logger:    opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[int]func(State)),
	}
}

// LoadInsights refreshes the cached Snapshot.
// If a refresh is already in flight, the caller joins it instead of issuing a new request.
// On failure the previous Snapshot is kept and the error is returned unmodified.
// ctx only bounds how long this caller waits; the shared refresh ends with the Controller.
func (c *Controller) LoadInsights(ctx context.Context) (insights.Snapshot, error) {
	if c.isClosed() {
		return insights.Snapshot{}, core.ErrClosed
	}

	ch := c.group.DoChan(insightsKey, c.refresh)
	atomic.AddInt32(&c.waiting, 1)
	defer atomic.AddInt32(&c.waiting, -1)

	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("joined in-flight insights refresh")
		}
		if res.Err != nil {
			return insights.Snapshot{}, res.Err
		}
		return res.Val.(insights.Snapshot).Clone(), nil
	case <-ctx.Done():
		return insights.Snapshot{}, ctx.Err()
	}
}

func (c *Controller) refresh() (interface{}, error) {
	if !c.transition(func(st *State) {
		st.Status = StatusLoading
		st.Err = nil
	}) {
		return nil, core.ErrClosed
	}

	snap, err := c.source.Snapshot(c.ctx)
	if err != nil {
		c.logger.Warn("insights refresh failed", core.Fields{"kind": core.KindOf(err).String()}, err)
		if !c.transition(func(st *State) {
			st.Status = StatusFailed
			st.Err = err
		}) {
			return nil, core.ErrClosed
		}
		return nil, err
	}

	applied := c.transition(func(st *State) {
		cached := snap.Clone()
		st.Status = StatusLoaded
		st.Snapshot = &cached
		st.Err = nil
		st.UpdatedAt = NowFunc()
	})
	if !applied {
		return nil, core.ErrClosed
	}
	c.logger.Debug("insights refreshed", core.Fields{
		"source":            snap.Source,
		"synthetic":         snap.Synthetic,
		"total_delays":      snap.Summary.TotalDelays,
		"total_infractions": snap.Summary.TotalInfractions,
	})
	return snap, nil
}

// transition applies fn to the state and notifies the listeners.
// It reports false, without touching anything, once the Controller is closed.
func (c *Controller) transition(fn func(st *State)) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	st := c.state.clone()
	listeners := make([]func(State), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(st)
	}
	return true
}

// SubmitDelayLog validates entry locally then sends it to the backend.
// The cached insights are not refreshed; call LoadInsights to see updated counts.
func (c *Controller) SubmitDelayLog(ctx context.Context, entry incident.DelayLogEntry) (incident.SubmitResult, error) {
	entry = entry.Prepare()
	if err := entry.Validate(c.validator); err != nil {
		return incident.SubmitResult{}, err
	}
	res, err := c.backend.SubmitDelayLog(ctx, entry)
	if err != nil {
		return incident.SubmitResult{}, err
	}
	c.logger.Info("delay log submitted", core.Fields{
		"delay_type": entry.DelayType,
		"success":    res.Success,
	})
	return res, nil
}

// SubmitInfraction validates entry locally then sends it to the backend.
// The cached insights are not refreshed; call LoadInsights to see updated counts.
func (c *Controller) SubmitInfraction(ctx context.Context, entry incident.InfractionEntry) (incident.SubmitResult, error) {
	entry = entry.Prepare()
	if err := entry.Validate(c.validator); err != nil {
		return incident.SubmitResult{}, err
	}
	res, err := c.backend.SubmitInfraction(ctx, entry)
	if err != nil {
		return incident.SubmitResult{}, err
	}
	c.logger.Info("infraction submitted", core.Fields{
		"category": entry.Category,
		"action":   entry.Action,
		"success":  res.Success,
	})
	return res, nil
}

// Ping reports whether the backend answers.
func (c *Controller) Ping(ctx context.Context) bool {
	if err := c.backend.Ping(ctx); err != nil {
		c.logger.Warn("backend connection test failed", err)
		return false
	}
	return true
}

func (c *Controller) ConnectionInfo() core.ConnectionInfo {
	return c.backend.ConnectionInfo()
}

// State returns the current state; the Snapshot is a copy.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Snapshot returns a copy of the cached Snapshot, if any.
func (c *Controller) Snapshot() (insights.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Snapshot == nil {
		return insights.Snapshot{}, false
	}
	return c.state.Snapshot.Clone(), true
}

// Refreshing reports whether a refresh is in flight.
func (c *Controller) Refreshing() bool {
	return c.State().Refreshing()
}

// Subscribe registers fn to be called after every state transition, until unsubscribe is called.
// fn must not block.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Close tears the Controller down: the in-flight refresh is cancelled,
// late results are dropped and listeners are no longer notified.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.listeners = make(map[int]func(State))
	c.mu.Unlock()

	c.cancel()
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// waiters returns the number of LoadInsights callers waiting on a refresh.
func (c *Controller) waiters() int {
	return int(atomic.LoadInt32(&c.waiting))
}

