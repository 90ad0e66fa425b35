// Package events implements the client-event catalog (C2) — the
// declarative binding from state fields to outbound event classes — and
// the in-process typed publish/subscribe bus (C4) that inbound frames and
// local demands are dispatched through.
package events

import (
	"github.com/printerlink/agent/engine"
	"github.com/printerlink/agent/intervals"
	"github.com/printerlink/agent/state"
)

// Entry is one field projected by an EventClass's Build, carrying the
// token that clears it from the dirty set once the event has actually
// been sent.
type Entry struct {
	Key   string
	Value any
	Clear state.ClearToken
}

// BuildResult is a materialized event payload: the wire data, and the
// clear tokens to invoke once the event has been sent.
type BuildResult struct {
	Data    map[string]any
	Entries []Entry
}

// OnSent invokes every entry's clear token. Call it only after the event
// has actually been written to the connection.
func (b *BuildResult) OnSent() {
	for _, e := range b.Entries {
		e.Clear.Invoke()
	}
}

// EventClass is a declarative outbound event: it knows its wire type, the
// interval clock (if any) that rate-limits it, and how to project the
// current state of its contributing fields into a payload.
type EventClass interface {
	// Type is the wire "type" value, e.g. "temps".
	Type() string
	// IntervalName is the clock this event is rate-limited by, or "" if
	// it isn't rate-limited at all (markers like keepalive/shutdown).
	IntervalName(s *state.PrinterState) intervals.Name
	// Build projects the current dirty fields into a payload. When there
	// is nothing to send it returns a nil result and an
	// *engine.EmptyEventError; a non-nil error always comes with a nil
	// result, and a nil error always comes with a non-nil result.
	Build(s *state.PrinterState) (*BuildResult, error)
}

// ForceDispatcher is implemented by event classes that can bypass their
// own interval under specific conditions (job status transitions,
// temperature target changes).
type ForceDispatcher interface {
	ForceDispatch(s *state.PrinterState) bool
}

func emptyEvent(eventType string) error {
	return &engine.EmptyEventError{EventType: eventType}
}
