// Package demand decodes inbound server-initiated requests (C6) into
// typed local-action events and routes them onto the shared event bus.
package demand

import (
	"encoding/json"
	"fmt"
)

// Name is a recognised demand discriminator, carried in an inbound
// envelope's data.demand field.
type Name string

const (
	Pause                  Name = "pause"
	Resume                 Name = "resume"
	Cancel                 Name = "cancel"
	Terminal               Name = "terminal"
	Gcode                  Name = "gcode"
	TestWebcam             Name = "test_webcam"
	WebcamSnapshot         Name = "webcam_snapshot"
	File                   Name = "file"
	StartPrint             Name = "start_print"
	ConnectPrinter         Name = "connect_printer"
	DisconnectPrinter      Name = "disconnect_printer"
	SystemRestart          Name = "system_restart"
	SystemShutdown         Name = "system_shutdown"
	APIRestart             Name = "api_restart"
	APIShutdown            Name = "api_shutdown"
	Update                 Name = "update"
	PluginInstall          Name = "plugin_install"
	PluginUninstall        Name = "plugin_uninstall"
	WebcamSettingsUpdated  Name = "webcam_settings_updated"
	SetPrinterProfile      Name = "set_printer_profile"
	GetGcodeScriptBackups  Name = "get_gcode_script_backups"
	HasGcodeChanges        Name = "has_gcode_changes"
	PsuOff                 Name = "psu_off"
	PsuOn                  Name = "psu_on"
	PsuKeepalive           Name = "psu_keepalive"
	DisableWebsocket       Name = "disable_websocket"
)

// Topic is the bus topic every decoded demand is dispatched on, keyed by
// its Name so orchestrator/driver code can subscribe to exactly the
// demands it knows how to act on.
func Topic(n Name) string { return "demand." + string(n) }

// Event is a decoded demand ready for dispatch onto the bus.
type Event struct {
	Name Name
	Data any
}

// PsuControl is the event produced for psu_on, psu_off and psu_keepalive.
// Both psu_on and psu_keepalive resolve to On: true.
type PsuControl struct {
	On bool
}

// GcodeCommand is the event produced for a gcode demand.
type GcodeCommand struct {
	List []string `json:"list"`
}

// FileRequest is the event produced for a file/start_print demand.
type FileRequest struct {
	URL       string `json:"url"`
	Path      string `json:"path,omitempty"`
	AutoStart bool   `json:"auto_start,omitempty"`
}

// WebcamSettings carries the payload of a webcam_settings_updated demand.
type WebcamSettings struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	URL      string `json:"url,omitempty"`
	FlipH    bool   `json:"flip_h,omitempty"`
	FlipV    bool   `json:"flip_v,omitempty"`
	Rotate90 bool   `json:"rotate90,omitempty"`
}

// Decode parses the raw data object of an envelope whose type is
// "demand" — the demand discriminator has already been popped off by
// the caller, per §4.6. Unknown demand names return ok=false so the
// caller can log and ignore rather than treat this as a decode error.
func Decode(name Name, raw json.RawMessage) (Event, bool, error) {
	switch name {
	case PsuOn, PsuKeepalive:
		return Event{Name: name, Data: PsuControl{On: true}}, true, nil
	case PsuOff:
		return Event{Name: name, Data: PsuControl{On: false}}, true, nil
	case Gcode:
		var payload GcodeCommand
		if err := json.Unmarshal(raw, &payload); err != nil {
			return Event{}, false, fmt.Errorf("decode gcode demand: %w", err)
		}
		return Event{Name: name, Data: payload}, true, nil
	case File, StartPrint:
		var payload FileRequest
		if err := json.Unmarshal(raw, &payload); err != nil {
			return Event{}, false, fmt.Errorf("decode file demand: %w", err)
		}
		return Event{Name: name, Data: payload}, true, nil
	case WebcamSettingsUpdated:
		var payload WebcamSettings
		if err := json.Unmarshal(raw, &payload); err != nil {
			return Event{}, false, fmt.Errorf("decode webcam_settings_updated demand: %w", err)
		}
		return Event{Name: name, Data: payload}, true, nil
	case Pause, Resume, Cancel, Terminal, TestWebcam, WebcamSnapshot,
		ConnectPrinter, DisconnectPrinter, SystemRestart, SystemShutdown,
		APIRestart, APIShutdown, Update, PluginInstall, PluginUninstall,
		SetPrinterProfile, GetGcodeScriptBackups, HasGcodeChanges, DisableWebsocket:
		var payload map[string]any
		_ = json.Unmarshal(raw, &payload)
		return Event{Name: name, Data: payload}, true, nil
	default:
		return Event{}, false, nil
	}
}
