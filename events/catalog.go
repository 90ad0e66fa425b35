package events

import (
	"fmt"
	"math"

	"github.com/printerlink/agent/intervals"
	"github.com/printerlink/agent/state"
)

// Catalog maps every event key the state tree can mark dirty to the
// EventClass that knows how to build it.
type Catalog struct {
	classes map[state.EventKey]EventClass
}

// NewCatalog builds the full event catalog.
func NewCatalog() *Catalog {
	c := &Catalog{classes: make(map[state.EventKey]EventClass)}
	for _, class := range []EventClass{
		&TemperatureEvent{},
		&AmbientTemperatureEvent{},
		&ConnectionEvent{},
		&StateChangeEvent{},
		&ToolEvent{},
		&JobInfoEvent{},
		&LatencyEvent{},
		&FileProgressEvent{},
		&FilamentSensorEvent{},
		&PowerControllerEvent{},
		&CPUInfoEvent{},
		&MachineDataEvent{},
		&FirmwareEvent{},
		&FirmwareWarningEvent{},
		&WebcamStatusEvent{},
		&WebcamEvent{},
		&MaterialDataEvent{},
		&PingEvent{},
		&KeepaliveEvent{},
		&ShutdownEvent{},
		&InstalledPluginsEvent{},
		&SoftwareUpdatesEvent{},
		&GcodeScriptsEvent{},
	} {
		c.classes[state.EventKey(class.Type())] = class
	}
	return c
}

// Lookup returns the event class bound to key, if any.
func (c *Catalog) Lookup(key state.EventKey) (EventClass, bool) {
	class, ok := c.classes[key]
	return class, ok
}

// --- Temperature ---

type TemperatureEvent struct{}

func (TemperatureEvent) Type() string { return string(state.EventTemperatures) }

func (TemperatureEvent) IntervalName(s *state.PrinterState) intervals.Name {
	if hasTarget(s) {
		return intervals.TempsTarget
	}
	return intervals.Temps
}

func (TemperatureEvent) ForceDispatch(s *state.PrinterState) bool {
	if s.BedTemperature.HasChanged("target") {
		return true
	}
	for _, t := range s.ToolTemperatures {
		if t.HasChanged("target") {
			return true
		}
	}
	return false
}

func hasTarget(s *state.PrinterState) bool {
	if s.BedTemperature.Target() != nil {
		return true
	}
	for _, t := range s.ToolTemperatures {
		if t.Target() != nil {
			return true
		}
	}
	return false
}

func (e TemperatureEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	res := &BuildResult{Data: map[string]any{}}
	if s.BedTemperature.HasChanged() {
		res.Data["bed"] = s.BedTemperature.ToList()
		res.Entries = append(res.Entries, Entry{Key: "bed", Clear: s.BedTemperature.PartialClear()})
	}
	for i, tool := range s.ToolTemperatures {
		if !tool.HasChanged() {
			continue
		}
		key := fmt.Sprintf("tool%d", i)
		res.Data[key] = tool.ToList()
		res.Entries = append(res.Entries, Entry{Key: key, Clear: tool.PartialClear()})
	}
	if len(res.Entries) == 0 {
		return nil, emptyEvent(e.Type())
	}
	return res, nil
}

// --- Ambient ---

type AmbientTemperatureEvent struct{}

func (AmbientTemperatureEvent) Type() string                                  { return string(state.EventAmbient) }
func (AmbientTemperatureEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e AmbientTemperatureEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	return &BuildResult{
		Data:    map[string]any{"new": s.AmbientTemperature.Ambient()},
		Entries: []Entry{{Key: "new", Clear: s.AmbientTemperature.PartialClear()}},
	}, nil
}

// --- Connection ---

type ConnectionEvent struct{}

func (ConnectionEvent) Type() string                                  { return string(state.EventConnection) }
func (ConnectionEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }
func (ConnectionEvent) Build(*state.PrinterState) (*BuildResult, error) {
	return &BuildResult{}, nil
}

// --- StateChange ---

type StateChangeEvent struct{}

func (StateChangeEvent) Type() string                                  { return string(state.EventStateChange) }
func (StateChangeEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e StateChangeEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	if s.Status() == "" {
		return nil, emptyEvent(e.Type())
	}
	return &BuildResult{
		Data:    map[string]any{"new": string(s.Status())},
		Entries: []Entry{{Key: "new", Clear: s.PartialClear("status")}},
	}, nil
}

// --- Tool ---

type ToolEvent struct{}

func (ToolEvent) Type() string                                  { return string(state.EventTool) }
func (ToolEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e ToolEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	if !s.HasChanged("active_tool") {
		return nil, emptyEvent(e.Type())
	}
	return &BuildResult{
		Data:    map[string]any{"new": s.ActiveTool()},
		Entries: []Entry{{Key: "new", Clear: s.PartialClear("active_tool")}},
	}, nil
}

// --- JobInfo ---

type JobInfoEvent struct{}

func (JobInfoEvent) Type() string                                  { return string(state.EventJobInfo) }
func (JobInfoEvent) IntervalName(*state.PrinterState) intervals.Name { return intervals.Job }

func (JobInfoEvent) ForceDispatch(s *state.PrinterState) bool {
	return s.JobInfo.HasChanged(state.JobStateFields...)
}

func (e JobInfoEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	job := s.JobInfo
	res := &BuildResult{Data: map[string]any{}}

	if job.HasChanged(state.JobStateFields...) {
		for _, field := range state.JobStateFields {
			var val bool
			switch field {
			case "started":
				val = job.Started()
			case "finished":
				val = job.Finished()
			case "cancelled":
				val = job.Cancelled()
			case "failed":
				val = job.Failed()
			}
			if val {
				res.Data[field] = true
				res.Entries = append(res.Entries, Entry{Key: field, Clear: job.PartialClear(state.JobStateFields...)})
				break
			}
		}
	}

	for _, field := range []string{"progress", "initial_estimate", "layer", "time", "filament", "filename", "delay"} {
		if !job.HasChanged(field) {
			continue
		}
		var v any
		switch field {
		case "progress":
			v = int(math.Round(job.Progress.Get()))
		case "initial_estimate":
			v = job.InitialEstimate.Get()
		case "layer":
			v = job.Layer.Get()
		case "time":
			v = job.Time.Get()
		case "filament":
			v = job.Filament.Get()
		case "filename":
			v = job.Filename.Get()
		case "delay":
			v = job.Delay.Get()
		}
		res.Data[field] = v
		res.Entries = append(res.Entries, Entry{Key: field, Clear: job.PartialClear(field)})
	}

	if len(res.Entries) == 0 {
		return nil, emptyEvent(e.Type())
	}
	return res, nil
}

// --- Latency ---

type LatencyEvent struct{}

func (LatencyEvent) Type() string                                  { return string(state.EventLatency) }
func (LatencyEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e LatencyEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	ms := int(math.Round((s.Latency.Pong.Get() - s.Latency.Ping.Get()) * 1000))
	return &BuildResult{
		Data:    map[string]any{"ms": ms},
		Entries: []Entry{{Key: "ms", Clear: s.Latency.PartialClear("ping", "pong")}},
	}, nil
}

// --- FileProgress ---

type FileProgressEvent struct{}

func (FileProgressEvent) Type() string                                  { return string(state.EventFileProgress) }
func (FileProgressEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e FileProgressEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	fp := s.FileProgress
	if fp.State() == "" {
		return nil, emptyEvent(e.Type())
	}

	res := &BuildResult{Data: map[string]any{"state": string(fp.State())}}
	res.Entries = append(res.Entries, Entry{Key: "state", Clear: fp.PartialClear("state")})

	switch fp.State() {
	case state.FileProgressError:
		msg := fp.Message.Get()
		if msg == "" {
			msg = "Unknown error"
		}
		res.Data["message"] = msg
		res.Entries = append(res.Entries, Entry{Key: "message", Clear: fp.PartialClear("message")})
	case state.FileProgressDownloading:
		res.Data["percent"] = fp.Percent.Get()
		res.Entries = append(res.Entries, Entry{Key: "percent", Clear: fp.PartialClear("percent")})
	}
	return res, nil
}

// --- FilamentSensor ---

type FilamentSensorEvent struct{}

func (FilamentSensorEvent) Type() string                                  { return string(state.EventFilamentSensor) }
func (FilamentSensorEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e FilamentSensorEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	return &BuildResult{
		Data:    map[string]any{"state": string(s.FilamentSensor.State())},
		Entries: []Entry{{Key: "state", Clear: s.FilamentSensor.PartialClear()}},
	}, nil
}

// --- PowerController ---

type PowerControllerEvent struct{}

func (PowerControllerEvent) Type() string                                  { return string(state.EventPSU) }
func (PowerControllerEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e PowerControllerEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	return &BuildResult{
		Data:    map[string]any{"on": s.PSUInfo.On()},
		Entries: []Entry{{Key: "on", Clear: s.PSUInfo.PartialClear()}},
	}, nil
}

// --- CPUInfo ---

type CPUInfoEvent struct{}

func (CPUInfoEvent) Type() string                                  { return string(state.EventCPUInfo) }
func (CPUInfoEvent) IntervalName(*state.PrinterState) intervals.Name { return intervals.CPU }

func (e CPUInfoEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	res := &BuildResult{Data: map[string]any{}}
	c := s.CPUInfo
	for _, f := range []struct {
		name string
		val  float64
	}{{"usage", c.Usage.Get()}, {"temp", c.Temp.Get()}, {"memory", c.Memory.Get()}} {
		if !c.HasChanged(f.name) {
			continue
		}
		res.Data[f.name] = f.val
		res.Entries = append(res.Entries, Entry{Key: f.name, Clear: c.PartialClear(f.name)})
	}
	if len(res.Entries) == 0 {
		return nil, emptyEvent(e.Type())
	}
	return res, nil
}

// --- MachineData ---

type MachineDataEvent struct{}

func (MachineDataEvent) Type() string                                  { return string(state.EventMachineData) }
func (MachineDataEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e MachineDataEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	info := s.Info
	res := &BuildResult{Data: map[string]any{}}
	fields := map[string]any{
		"ui": info.UI.Get(), "ui_version": info.UIVersion.Get(), "api": info.API.Get(),
		"api_version": info.APIVersion.Get(), "machine": info.Machine.Get(), "os": info.OS.Get(),
		"sp_version": info.SPVersion.Get(), "is_ethernet": info.IsEthernet.Get(), "ssid": info.SSID.Get(),
		"local_ip": info.LocalIP.Get(), "hostname": info.Hostname.Get(), "core_count": info.CoreCount.Get(),
		"total_memory": info.TotalMemory.Get(), "mac": info.MAC.Get(),
	}
	for name, val := range fields {
		if !info.HasChanged(name) {
			continue
		}
		res.Data[name] = val
		res.Entries = append(res.Entries, Entry{Key: name, Clear: info.PartialClear(name)})
	}
	if len(res.Entries) == 0 {
		return nil, emptyEvent(e.Type())
	}
	return res, nil
}

// --- Firmware ---

type FirmwareEvent struct{}

func (FirmwareEvent) Type() string                                  { return string(state.EventFirmware) }
func (FirmwareEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e FirmwareEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	fw := s.Firmware
	out := map[string]any{}
	add := func(wireName, v string) {
		if v != "" {
			out[wireName] = v
		}
	}
	add("firmware", fw.Name.Get())
	add("firmware_name_raw", fw.NameRaw.Get())
	add("firmware_machine", fw.Machine.Get())
	add("firmware_machine_name", fw.MachineName.Get())
	add("firmware_version", fw.Version.Get())
	add("firmware_date", fw.Date.Get())
	add("firmware_link", fw.Link.Get())

	return &BuildResult{
		Data:    map[string]any{"fw": out},
		Entries: []Entry{{Key: "fw", Clear: fw.PartialClear()}},
	}, nil
}

// --- FirmwareWarning ---

type FirmwareWarningEvent struct{}

func (FirmwareWarningEvent) Type() string                                  { return string(state.EventFirmwareWarning) }
func (FirmwareWarningEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e FirmwareWarningEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	fw := s.FirmwareWarning
	res := &BuildResult{Data: map[string]any{}}
	for _, f := range []struct {
		name string
		val  string
	}{{"check_name", fw.CheckName.Get()}, {"warning_type", fw.WarningType.Get()}, {"severity", fw.Severity.Get()}, {"url", fw.URL.Get()}} {
		if !fw.HasChanged(f.name) {
			continue
		}
		res.Data[f.name] = f.val
		res.Entries = append(res.Entries, Entry{Key: f.name, Clear: fw.PartialClear(f.name)})
	}
	if len(res.Entries) == 0 {
		return nil, emptyEvent(e.Type())
	}
	return res, nil
}

// --- WebcamStatus ---

type WebcamStatusEvent struct{}

func (WebcamStatusEvent) Type() string                                  { return string(state.EventWebcamStatus) }
func (WebcamStatusEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e WebcamStatusEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	return &BuildResult{
		Data:    map[string]any{"connected": s.WebcamInfo.Connected()},
		Entries: []Entry{{Key: "connected", Clear: s.WebcamInfo.PartialClear("connected")}},
	}, nil
}

// --- Webcam settings ---

type WebcamEvent struct{}

func (WebcamEvent) Type() string                                  { return string(state.EventWebcam) }
func (WebcamEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e WebcamEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	w := s.WebcamSettings
	res := &BuildResult{Data: map[string]any{}}
	for _, f := range []struct {
		name string
		val  bool
	}{{"flipH", w.FlipH.Get()}, {"flipV", w.FlipV.Get()}, {"rotate90", w.Rotate90.Get()}} {
		if !w.HasChanged(f.name) {
			continue
		}
		res.Data[f.name] = f.val
		res.Entries = append(res.Entries, Entry{Key: f.name, Clear: w.PartialClear(f.name)})
	}
	if len(res.Entries) == 0 {
		return nil, emptyEvent(e.Type())
	}
	return res, nil
}

// --- MaterialData ---

type MaterialDataEvent struct{}

func (MaterialDataEvent) Type() string                                  { return string(state.EventMaterialData) }
func (MaterialDataEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }

func (e MaterialDataEvent) Build(s *state.PrinterState) (*BuildResult, error) {
	if len(s.MaterialData) == 0 {
		return nil, emptyEvent(e.Type())
	}

	anyChanged := false
	materials := make([]map[string]any, len(s.MaterialData))
	for i, m := range s.MaterialData {
		if m.HasChanged() {
			anyChanged = true
		}
		if m.MaterialType.Get() == "" {
			materials[i] = nil
			continue
		}
		materials[i] = map[string]any{
			"type": m.MaterialType.Get(), "color": m.Color.Get(), "hex": m.Hex.Get(), "ext": m.Ext.Get(),
		}
	}
	if !anyChanged {
		return nil, emptyEvent(e.Type())
	}

	return &BuildResult{
		Data:    map[string]any{"materials": materials},
		Entries: []Entry{{Key: "materials", Clear: s.PartialClear("material_data")}},
	}, nil
}

// --- Markers with no payload: these events never carry build-derived
// data, they exist only so the orchestrator/transport layer can send a
// {"type": "...", "data": null} frame through the same catalog-driven path.

type PingEvent struct{}

func (PingEvent) Type() string                                   { return string(state.EventPing) }
func (PingEvent) IntervalName(*state.PrinterState) intervals.Name { return intervals.Ping }
func (PingEvent) Build(*state.PrinterState) (*BuildResult, error) { return &BuildResult{}, nil }

type KeepaliveEvent struct{}

func (KeepaliveEvent) Type() string                                   { return string(state.EventKeepalive) }
func (KeepaliveEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }
func (KeepaliveEvent) Build(*state.PrinterState) (*BuildResult, error) { return &BuildResult{}, nil }

type ShutdownEvent struct{}

func (ShutdownEvent) Type() string                                   { return string(state.EventShutdown) }
func (ShutdownEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }
func (ShutdownEvent) Build(*state.PrinterState) (*BuildResult, error) { return &BuildResult{}, nil }

type InstalledPluginsEvent struct{}

func (InstalledPluginsEvent) Type() string                                   { return string(state.EventInstalledPlugins) }
func (InstalledPluginsEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }
func (InstalledPluginsEvent) Build(*state.PrinterState) (*BuildResult, error) {
	return &BuildResult{}, nil
}

type SoftwareUpdatesEvent struct{}

func (SoftwareUpdatesEvent) Type() string                                   { return string(state.EventSoftwareUpdates) }
func (SoftwareUpdatesEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }
func (SoftwareUpdatesEvent) Build(*state.PrinterState) (*BuildResult, error) {
	return &BuildResult{}, nil
}

type GcodeScriptsEvent struct{}

func (GcodeScriptsEvent) Type() string                                   { return string(state.EventGcodeScripts) }
func (GcodeScriptsEvent) IntervalName(*state.PrinterState) intervals.Name { return "" }
func (GcodeScriptsEvent) Build(*state.PrinterState) (*BuildResult, error) { return &BuildResult{}, nil }
