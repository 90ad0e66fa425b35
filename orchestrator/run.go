package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/printerlink/agent/engine"
	"github.com/printerlink/agent/intervals"
	"github.com/printerlink/agent/transport"
)

// TickInterval is how often Run drains the dirty-event set between
// inbound frames; it's a responsiveness knob, not a protocol constant —
// the interval registry is what actually paces outbound traffic.
const TickInterval = 200 * time.Millisecond

// Run drives one printer's full connection lifecycle: dial through the
// Session (C5), pump inbound frames through HandleInbound, and tick the
// client loop (C8) on TickInterval. On transport failure it backs off
// for the reconnect clock and tries again; it returns only when ctx is
// done or stop fires.
func (o *Orchestrator) Run(ctx context.Context, stop *engine.Stoppable) error {
	for {
		if ctx.Err() != nil || stop.IsStopped() {
			return ctx.Err()
		}

		if wait := o.Clocks.TimeUntilReady(intervals.Reconnect); wait > 0 {
			if stop.Wait(engine.After(wait)) {
				return nil
			}
			continue
		}
		_ = o.Clocks.Use(intervals.Reconnect)

		conn, err := o.Session.Connect(ctx)
		if err != nil {
			continue
		}

		o.runConnected(ctx, conn, stop)
	}
}

func (o *Orchestrator) runConnected(ctx context.Context, conn *transport.Conn, stop *engine.Stoppable) {
	readErr := make(chan error, 1)
	go func() {
		for {
			raw, err := conn.Read()
			if err != nil {
				readErr <- err
				return
			}
			if err := o.HandleInbound(ctx, raw); err != nil {
				o.Logger.Error("error handling inbound frame", "component", "orchestrator", "err", err)
			}
		}
	}()

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.Session.DisconnectClean()
			return
		case <-stop.Done():
			o.Session.DisconnectClean()
			return
		case err := <-readErr:
			var transportErr *engine.TransportError
			if errors.As(err, &transportErr) {
				o.Logger.Info("transport closed, will reconnect", "component", "orchestrator", "err", err)
			}
			o.Session.Disconnect()
			return
		case <-ticker.C:
			if err := o.Tick(ctx, conn); err != nil {
				o.Logger.Error("tick failed, reconnecting", "component", "orchestrator", "err", err)
				o.Session.Disconnect()
				return
			}
		}
	}
}
