package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/printerlink/agent/demand"
	"github.com/printerlink/agent/events"
	"github.com/printerlink/agent/intervals"
)

// connectedPayload mirrors ConnectEvent.on_event in the original
// protocol/server_events.py: in_setup, a per-clock interval override
// map (milliseconds), the short pairing id, the resume token and the
// printer's display name.
type connectedPayload struct {
	InSetup        bool               `json:"in_setup"`
	Interval       map[string]float64 `json:"interval"`
	ShortID        string             `json:"short_id"`
	ReconnectToken string             `json:"reconnect_token"`
	Name           string             `json:"name"`
}

type newTokenPayload struct {
	ShortID string `json:"short_id"`
	Token   string `json:"token"`
}

type completeSetupPayload struct {
	PrinterID int64 `json:"printer_id"`
}

// printerSettingsPayload mirrors PrinterSettingsEvent.on_event: which
// optional peripherals the server believes this printer has, plus its
// display configuration.
type printerSettingsPayload struct {
	HasPSU            bool `json:"has_psu"`
	HasFilamentSensor bool `json:"has_filament_sensor"`
	Display           struct {
		Enabled           bool `json:"enabled"`
		Branding          bool `json:"branding"`
		WhilePrintingType int  `json:"while_printing_type"`
		ShowStatus        bool `json:"show_status"`
	} `json:"display"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// parseIntervals converts a server-supplied {name: milliseconds} map
// into the Duration overrides Registry.Set expects. A zero or negative
// value is passed through, and Set falls back to the clock's default for
// it, matching choose_interval; a name absent from the map gets no
// override and keeps its current period.
func parseIntervals(raw map[string]float64) map[intervals.Name]time.Duration {
	out := make(map[intervals.Name]time.Duration, len(raw))
	for name, ms := range raw {
		out[intervals.Name(name)] = time.Duration(ms) * time.Millisecond
	}
	return out
}

// HandleInbound decodes one inbound text frame and applies it, per §4.6
// and §6.3. Demand frames are decoded and dispatched onto the bus under
// their Topic; the handshake/lifecycle events update the Session
// directly; printer_settings is applied to the state tree's settings and
// display nodes; the remaining recognised types (stream_received,
// add_connection, remove_connection) are republished on the bus as
// "server.<type>" for any interested listener. An unrecognised type is
// logged at debug and dropped, never treated as fatal.
func (o *Orchestrator) HandleInbound(ctx context.Context, raw []byte) error {
	env, err := events.DecodeInbound(raw)
	if err != nil {
		o.Logger.Debug("malformed inbound frame", "component", "orchestrator", "err", err)
		return nil
	}

	o.stateMu.Lock()
	defer o.stateMu.Unlock()

	switch env.Type {
	case "demand":
		demand.Dispatch(o.dispatcher(), env, o.Logger)
	case "error":
		var p errorPayload
		_ = json.Unmarshal(env.Data, &p)
		o.Logger.Warn("server reported error", "component", "orchestrator", "error", p.Error)
	case "new_token":
		var p newTokenPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			o.Logger.Debug("malformed new_token payload", "component", "orchestrator", "err", err)
			return nil
		}
		if err := o.Session.HandleNewToken(ctx, p.Token, p.ShortID); err != nil {
			o.Logger.Error("failed to persist new_token config", "component", "orchestrator", "err", err)
		}
	case "connected":
		var p connectedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			o.Logger.Debug("malformed connected payload", "component", "orchestrator", "err", err)
			return nil
		}
		if err := o.Session.HandleConnected(ctx, p.ShortID, p.Name, p.ReconnectToken, p.InSetup, parseIntervals(p.Interval)); err != nil {
			o.Logger.Error("failed to persist connected config", "component", "orchestrator", "err", err)
		}
	case "complete_setup":
		var p completeSetupPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			o.Logger.Debug("malformed complete_setup payload", "component", "orchestrator", "err", err)
			return nil
		}
		return o.Session.HandleSetupComplete(ctx, p.PrinterID)
	case "interval_change":
		var raw2 map[string]float64
		if err := json.Unmarshal(env.Data, &raw2); err != nil {
			o.Logger.Debug("malformed interval_change payload", "component", "orchestrator", "err", err)
			return nil
		}
		o.Session.HandleIntervalChange(parseIntervals(raw2))
	case "pong":
		o.Session.HandlePong(time.Now())
	case "printer_settings":
		var p printerSettingsPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			o.Logger.Debug("malformed printer_settings payload", "component", "orchestrator", "err", err)
			return nil
		}
		o.State.Settings.SetHasPSU(p.HasPSU)
		o.State.Settings.SetHasFilamentSensor(p.HasFilamentSensor)
		o.State.DisplaySettings.SetEnabled(p.Display.Enabled)
		o.State.DisplaySettings.SetBranding(p.Display.Branding)
		o.State.DisplaySettings.SetWhilePrintingType(p.Display.WhilePrintingType)
		o.State.DisplaySettings.SetShowStatus(p.Display.ShowStatus)
	case "stream_received", "add_connection", "remove_connection":
		o.dispatcher().Dispatch("server."+env.Type, env.Data, func(topic string, err error) {
			o.Logger.Error("error handling server event", "component", "orchestrator", "topic", topic, "err", err)
		})
	default:
		o.Logger.Debug("unknown inbound event type", "component", "orchestrator", "type", env.Type)
	}
	return nil
}
