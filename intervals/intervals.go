// Package intervals implements the named-clock rate-limit registry that
// governs how often the orchestrator is allowed to send each class of
// telemetry: ai, job, temps, temps_target, cpu, reconnect, ready_message,
// ping and webcam all tick independently, each with its own default period.
package intervals

import (
	"fmt"
	"sync"
	"time"
)

// Name identifies one of the registry's named clocks.
type Name string

const (
	AI            Name = "ai"
	Job           Name = "job"
	Temps         Name = "temps"
	TempsTarget   Name = "temps_target"
	CPU           Name = "cpu"
	Reconnect     Name = "reconnect"
	ReadyMessage  Name = "ready_message"
	Ping          Name = "ping"
	Webcam        Name = "webcam"
)

// defaults mirrors IntervalTypes' default_timing values, in milliseconds.
var defaults = map[Name]time.Duration{
	AI:           30000 * time.Millisecond,
	Job:          5000 * time.Millisecond,
	Temps:        5000 * time.Millisecond,
	TempsTarget:  2500 * time.Millisecond,
	CPU:          30000 * time.Millisecond,
	Reconnect:    1000 * time.Millisecond,
	ReadyMessage: 60000 * time.Millisecond,
	Ping:         20000 * time.Millisecond,
	Webcam:       1000 * time.Millisecond,
}

// Error is raised when a clock that isn't ready is forced via Use.
type Error struct {
	Name      Name
	RemainingMS float64
}

func (e *Error) Error() string {
	return fmt.Sprintf("interval %q is ready in %.0fms", e.Name, e.RemainingMS)
}

// Registry tracks, for each named clock, its configured period and the
// timestamp it was last used. It is safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	periods    map[Name]time.Duration
	lastUsed   map[Name]time.Time
	now        func() time.Time
}

// NewRegistry builds a registry seeded with the default period for every
// known clock, all of them immediately ready (as if last used one full
// period ago). overrides replaces the default period for the given names;
// a zero or negative override falls back to the clock's default, mirroring
// choose_interval.
func NewRegistry(overrides map[Name]time.Duration) *Registry {
	r := &Registry{
		periods:  make(map[Name]time.Duration, len(defaults)),
		lastUsed: make(map[Name]time.Time, len(defaults)),
		now:      time.Now,
	}
	for name, d := range defaults {
		period := d
		if ov, ok := overrides[name]; ok {
			period = chooseInterval(d, ov)
		}
		r.periods[name] = period
		r.lastUsed[name] = r.now().Add(-period)
	}
	return r
}

func chooseInterval(fallback, candidate time.Duration) time.Duration {
	if candidate > 0 {
		return candidate
	}
	return fallback
}

// Set overrides the period for a clock. A clock with no last-used time yet
// (a name outside the defaults, set for the first time) is seeded as
// immediately ready; any other clock keeps its last-used time, so its
// readiness is measured against the new period from that time.
func (r *Registry) Set(name Name, period time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	def := defaults[name]
	r.periods[name] = chooseInterval(def, period)
	if _, ok := r.lastUsed[name]; !ok {
		r.lastUsed[name] = r.now().Add(-r.periods[name])
	}
}

// UpdateFrom copies every clock's configured period from other into r,
// without touching last-used timestamps.
func (r *Registry) UpdateFrom(other *Registry) {
	other.mu.Lock()
	snapshot := make(map[Name]time.Duration, len(other.periods))
	for name, period := range other.periods {
		snapshot[name] = period
	}
	other.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, period := range snapshot {
		r.periods[name] = period
	}
}

// TimeUntilReady returns how long until the named clock is next ready.
// A non-positive result means it's ready now. Unknown clocks report ready.
func (r *Registry) TimeUntilReady(name Name) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeUntilReadyLocked(name)
}

func (r *Registry) timeUntilReadyLocked(name Name) time.Duration {
	period, ok := r.periods[name]
	if !ok {
		return 0
	}
	elapsed := r.now().Sub(r.lastUsed[name])
	return period - elapsed
}

// IsReady reports whether the named clock's period has elapsed.
func (r *Registry) IsReady(name Name) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeUntilReadyLocked(name) <= 0
}

// Use marks the named clock as fired now. It returns an *Error if the
// clock wasn't actually ready, mirroring IntervalException; callers that
// only want to fire on a schedule should guard with IsReady first.
func (r *Registry) Use(name Name) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := r.timeUntilReadyLocked(name)
	if remaining > 0 {
		return &Error{Name: name, RemainingMS: float64(remaining.Milliseconds())}
	}
	r.lastUsed[name] = r.now()
	return nil
}
