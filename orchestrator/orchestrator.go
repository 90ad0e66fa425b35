// Package orchestrator implements the per-printer client loop (C8): run
// the driver's tick hook, keep the keepalive ping on schedule, and drain
// the root's dirty-event set through the interval registry's dispatch
// policy, respecting setup gating along the way.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/printerlink/agent/engine"
	"github.com/printerlink/agent/events"
	"github.com/printerlink/agent/intervals"
	"github.com/printerlink/agent/state"
	"github.com/printerlink/agent/transport"
)

// Mode is the outcome of applying §4.3's dispatch policy to a single
// event class on a single tick.
type Mode int

const (
	// Dispatch means build and send the event now.
	Dispatch Mode = iota
	// RateLimit means the event's clock isn't ready; leave it dirty for
	// the next tick.
	RateLimit
	// Cancel is reserved for future policies that drop an event outright
	// without ever building it; nothing currently returns it.
	Cancel
)

// Sender is the minimal write side an Orchestrator needs: one outbound
// text frame. transport.Conn satisfies it directly; a multiplexed
// per-client writer (multiplex.Session) satisfies it by forwarding the
// frame unchanged to the shared socket, so the "for" field comes from
// the Orchestrator's ForID.
type Sender interface {
	Send(raw []byte) error
}

// Driver is the local printer backend an orchestrator drives. Tick is
// invoked once per orchestrator tick and is expected to mutate s to
// reflect whatever the driver observed since the last call — the
// orchestrator never touches hardware directly.
type Driver interface {
	Tick(ctx context.Context, s *state.PrinterState) error
}

// Orchestrator runs one printer's tick loop against a shared state tree,
// event catalog, interval registry and bus.
//
// State is shared between the tick loop (Tick, run from the connection's
// owning goroutine) and the inbound-frame handler (HandleInbound, run
// from the read goroutine spawned by Run): both mutate State directly
// (via Driver.Tick/DrainDirtyEvents/Build/OnSent on one side, and the
// handshake/settings handlers on the other). stateMu is the
// scoped-acquisition primitive §5 requires to serialise those
// order-sensitive operations on the same client — every entry point that
// touches State holds it for the duration of the call.
type Orchestrator struct {
	State   *state.PrinterState
	Catalog *events.Catalog
	Clocks  *intervals.Registry
	Bus     *events.Bus
	Session *transport.Session
	Driver  Driver
	ForID   string
	Logger  *slog.Logger

	// Worker, if set, receives demand and server-lifecycle dispatches
	// instead of Bus being called in-line: it's C4's bounded-queue async
	// variant, pacing fan-out to listeners instead of running them
	// directly on the read goroutine. Nil means dispatch straight
	// through Bus, which is what the tests in this package do.
	Worker *events.Worker

	stateMu sync.Mutex
}

// dispatcher returns whichever events.Dispatcher inbound frames should
// be published through: the Worker if one's configured, Bus otherwise.
func (o *Orchestrator) dispatcher() events.Dispatcher {
	if o.Worker != nil {
		return o.Worker
	}
	return o.Bus
}

// New builds an Orchestrator. session may be nil for a driver under test
// that never needs setup gating; forID is the "for" tag stamped on every
// outbound frame (empty in single-client mode, per §6.2).
func New(st *state.PrinterState, catalog *events.Catalog, clocks *intervals.Registry, bus *events.Bus, session *transport.Session, driver Driver, forID string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		State: st, Catalog: catalog, Clocks: clocks, Bus: bus,
		Session: session, Driver: driver, ForID: forID, Logger: logger,
	}
}

// Policy applies §4.3's dispatch policy to class against the current
// state and clocks:
//  1. no interval name -> Dispatch unconditionally.
//  2. a ForceDispatcher that says yes -> Dispatch, bypassing the clock.
//  3. otherwise try to claim the clock -> Dispatch on success, RateLimit
//     on failure.
func Policy(class events.EventClass, s *state.PrinterState, clocks *intervals.Registry) Mode {
	name := class.IntervalName(s)
	if name == "" {
		return Dispatch
	}
	if fd, ok := class.(events.ForceDispatcher); ok && fd.ForceDispatch(s) {
		return Dispatch
	}
	if err := clocks.Use(name); err != nil {
		return RateLimit
	}
	return Dispatch
}

// Tick runs one iteration of the client loop, per §4.8:
//  1. run the driver's tick hook;
//  2. send a keepalive ping if the ping clock is ready;
//  3. drain the rotated dirty-event sequence, applying setup gating and
//     the dispatch policy to each class, sending whatever is permitted.
func (o *Orchestrator) Tick(ctx context.Context, send Sender) error {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()

	if o.Driver != nil {
		if err := o.Driver.Tick(ctx, o.State); err != nil {
			return err
		}
	}

	if o.Clocks.IsReady(intervals.Ping) {
		if err := o.Clocks.Use(intervals.Ping); err == nil {
			o.State.Latency.Ping.Set(float64(time.Now().UnixNano()) / 1e9)
			if err := o.sendClass(send, &events.PingEvent{}); err != nil {
				return err
			}
		}
	}

	inSetup := o.Session != nil && o.Session.InSetup()
	for _, key := range o.State.DrainDirtyEvents() {
		class, ok := o.Catalog.Lookup(key)
		if !ok {
			o.Logger.Debug("dirty event has no catalog entry", "component", "orchestrator", "key", string(key))
			continue
		}

		if inSetup && !state.AllowedInSetup(key) {
			o.State.MarkEventDirty(key)
			continue
		}

		switch Policy(class, o.State, o.Clocks) {
		case RateLimit:
			o.State.MarkEventDirty(key)
		case Cancel:
			// Dropped outright: Build never ran, nothing to clear.
		case Dispatch:
			if err := o.sendClass(send, class); err != nil {
				return err
			}
		}
	}
	return nil
}

// sendClass builds class's payload, writes it if non-empty, and fires
// its clear callbacks on success. An *engine.EmptyEventError is treated
// as "nothing to send", not a failure, per §7.
func (o *Orchestrator) sendClass(send Sender, class events.EventClass) error {
	res, err := class.Build(o.State)
	if err != nil {
		var empty *engine.EmptyEventError
		if errors.As(err, &empty) {
			return nil
		}
		return err
	}

	raw, err := events.Marshal(class.Type(), o.ForID, res)
	if err != nil {
		return err
	}
	if err := send.Send(raw); err != nil {
		return err
	}
	res.OnSent()
	return nil
}
