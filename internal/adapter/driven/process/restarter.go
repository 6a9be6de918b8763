// Package process implements the Restarter port by signalling the running
// process so its supervisor starts a fresh one.
package process

import (
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
	"github.com/ericfisherdev/infraconfig/internal/metrics"
)

var _ driven.Restarter = (*Restarter)(nil)

// DefaultDelay gives in-flight responses time to flush before shutdown.
const DefaultDelay = 5 * time.Second

// KillFunc delivers the shutdown signal.
type KillFunc func() error

// Restarter schedules a single delayed SIGTERM to the current process.
// Requests made while one is pending are collapsed into it.
type Restarter struct {
	clock  clockwork.Clock
	delay  time.Duration
	kill   KillFunc
	logger *slog.Logger

	mu      sync.Mutex
	pending clockwork.Timer
}

// Option configures a Restarter.
type Option func(*Restarter)

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(r *Restarter) { r.clock = c }
}

// WithKillFunc replaces the signal delivery, for tests.
func WithKillFunc(fn KillFunc) Option {
	return func(r *Restarter) { r.kill = fn }
}

// NewRestarter creates a Restarter that fires after delay. A non-positive
// delay falls back to DefaultDelay.
func NewRestarter(delay time.Duration, logger *slog.Logger, opts ...Option) *Restarter {
	if delay <= 0 {
		delay = DefaultDelay
	}
	r := &Restarter{
		clock:  clockwork.NewRealClock(),
		delay:  delay,
		kill:   signalSelf,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Restart schedules the shutdown signal and returns immediately.
func (r *Restarter) Restart(reason string) {
	metrics.RestartsRequested.Inc()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending != nil {
		r.logger.Info("restart already scheduled", "reason", reason)
		return
	}

	r.logger.Warn("restart scheduled", "reason", reason, "delay", r.delay)
	metrics.RestartsScheduled.Inc()
	r.pending = r.clock.AfterFunc(r.delay, r.fire)
}

// Pending reports whether a restart is scheduled and has not fired yet.
func (r *Restarter) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending != nil
}

// Cancel stops a pending restart. It is used during graceful shutdown so a
// scheduled signal does not interrupt it.
func (r *Restarter) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}

func (r *Restarter) fire() {
	r.mu.Lock()
	r.pending = nil
	r.mu.Unlock()

	r.logger.Warn("restarting to apply configuration")
	if err := r.kill(); err != nil {
		r.logger.Error("send restart signal", "error", err)
	}
}

func signalSelf() error {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return err
	}
	return p.Signal(syscall.SIGTERM)
}
