package state

import "fmt"

// PrinterStatus is the printer's coarse operating mode, as reported to
// the server.
type PrinterStatus string

const (
	StatusOperational PrinterStatus = "operational"
	StatusPrinting    PrinterStatus = "printing"
	StatusOffline     PrinterStatus = "offline"
	StatusPaused      PrinterStatus = "paused"
	StatusPausing     PrinterStatus = "pausing"
	StatusCancelling  PrinterStatus = "cancelling"
	StatusResuming    PrinterStatus = "resuming"
	StatusError       PrinterStatus = "error"
	StatusNotReady    PrinterStatus = "not_ready"
)

// PrinterState is the root of the versioned state tree: every sub-node
// reachable from it has PrinterState as its root, and every mutation
// anywhere in the tree ends up marking an event class dirty here.
type PrinterState struct {
	Node
	dirty dirtyEvents

	status                Field[PrinterStatus]
	currentDisplayMessage Field[string]
	activeTool            Field[*int]

	BedTemperature     *Temperature
	ToolTemperatures   []*Temperature
	AmbientTemperature *AmbientTemperatureState
	Info               *PrinterInfoData
	CPUInfo            *CpuInfoState
	JobInfo            *JobInfoState
	PSUInfo            *PrinterPSUState
	Settings           *PrinterSettings
	Firmware           *PrinterFirmware
	FirmwareWarning    *PrinterFirmwareWarning
	Latency            *PingPongState
	WebcamInfo         *WebcamState
	DisplaySettings    *PrinterDisplaySettings
	FileProgress       *PrinterFileProgressState
	FilamentSensor     *PrinterFilamentSensorState
	WebcamSettings     *WebcamSettings
	MaterialData       []*MaterialModel
}

// NewPrinterState builds a printer state tree with the given initial
// nozzle and extruder counts (both must be >= 1).
func NewPrinterState(nozzleCount, extruderCount int) *PrinterState {
	if nozzleCount < 1 {
		nozzleCount = 1
	}
	if extruderCount < 1 {
		extruderCount = 1
	}

	p := &PrinterState{Node: newNode(), dirty: newDirtyEvents()}
	p.Register("active_tool", &p.activeTool)
	p.Bind("status", EventStateChange)
	p.Bind("connected", EventConnection)
	p.Bind("active_tool", EventTool)

	p.BedTemperature = NewTemperature()
	p.ToolTemperatures = make([]*Temperature, nozzleCount)
	for i := range p.ToolTemperatures {
		p.ToolTemperatures[i] = NewTemperature()
	}
	p.AmbientTemperature = NewAmbientTemperatureState()
	p.Info = NewPrinterInfoData()
	p.Settings = NewPrinterSettings()
	p.DisplaySettings = NewPrinterDisplaySettings()
	p.Firmware = NewPrinterFirmware()
	p.FirmwareWarning = NewPrinterFirmwareWarning()
	p.CPUInfo = NewCpuInfoState()
	p.WebcamInfo = NewWebcamState()
	p.WebcamSettings = NewWebcamSettings()
	p.JobInfo = NewJobInfoState()
	p.PSUInfo = NewPrinterPSUState()
	p.Latency = NewPingPongState()
	p.FileProgress = NewPrinterFileProgressState()
	p.FilamentSensor = NewPrinterFilamentSensorState()
	p.MaterialData = make([]*MaterialModel, extruderCount)
	for i := range p.MaterialData {
		p.MaterialData[i] = NewMaterialModel()
	}

	for _, n := range p.children() {
		n.SetRoot(p)
	}
	return p
}

// children enumerates every direct sub-node, for root-attachment and
// tree-wide operations.
func (p *PrinterState) children() []rootSetter {
	out := []rootSetter{
		p.BedTemperature, p.AmbientTemperature, p.Info, p.Settings, p.DisplaySettings,
		p.Firmware, p.FirmwareWarning, p.CPUInfo, p.WebcamInfo, p.WebcamSettings,
		p.JobInfo, p.PSUInfo, p.Latency, p.FileProgress, p.FilamentSensor,
	}
	for _, t := range p.ToolTemperatures {
		out = append(out, t)
	}
	for _, m := range p.MaterialData {
		out = append(out, m)
	}
	return out
}

type rootSetter interface {
	SetRoot(Root)
}

// MarkEventDirty implements Root: it's called by any node in the tree
// (via Node.markChanged) whenever one of its fields resolves to an event
// class.
func (p *PrinterState) MarkEventDirty(key EventKey) { p.dirty.mark(key) }

// MarkConnectionEvent explicitly marks the connection event dirty; it's
// not backed by a tracked field since "connected" is a transport-level
// fact rather than a value mutated on the state tree.
func (p *PrinterState) MarkConnectionEvent() { p.MarkEventDirty(EventConnection) }

// GetDirtyEvents returns the root's dirty-event keys in insertion order,
// without draining them.
func (p *PrinterState) GetDirtyEvents() []EventKey { return p.dirty.List() }

// DrainDirtyEvents rotates the last-marked event to the back and returns
// every currently dirty key in order, clearing them from the set. See
// §3.2 invariant 4.
func (p *PrinterState) DrainDirtyEvents() []EventKey { return p.dirty.Drain() }

func (p *PrinterState) Status() PrinterStatus { return p.status.Get() }
func (p *PrinterState) SetStatus(v PrinterStatus) bool {
	return SetField(&p.Node, "status", &p.status, v)
}

func (p *PrinterState) CurrentDisplayMessage() string { return p.currentDisplayMessage.Get() }
func (p *PrinterState) SetCurrentDisplayMessage(v string) bool {
	return SetField(&p.Node, "current_display_message", &p.currentDisplayMessage, v)
}

func (p *PrinterState) ActiveTool() *int { return p.activeTool.Get() }
func (p *PrinterState) SetActiveTool(v *int) bool {
	return SetField(&p.Node, "active_tool", &p.activeTool, v)
}

// SetNozzleCount resizes ToolTemperatures, preserving existing entries
// when growing and truncating when shrinking. New entries are attached to
// the root so their fields bubble up like any other.
func (p *PrinterState) SetNozzleCount(count int) error {
	if count < 1 {
		return fmt.Errorf("nozzle count must be at least 1")
	}
	if count > len(p.ToolTemperatures) {
		for i := len(p.ToolTemperatures); i < count; i++ {
			t := NewTemperature()
			t.SetRoot(p)
			p.ToolTemperatures = append(p.ToolTemperatures, t)
		}
	} else {
		p.ToolTemperatures = p.ToolTemperatures[:count]
	}
	return nil
}

// SetExtruderCount resizes MaterialData the same way SetNozzleCount
// resizes ToolTemperatures, and clears ActiveTool if it now points past
// the end of the new list.
func (p *PrinterState) SetExtruderCount(count int) error {
	if count < 1 {
		return fmt.Errorf("extruder count must be at least 1")
	}
	if tool := p.activeTool.Get(); tool != nil && *tool >= count {
		p.SetActiveTool(nil)
	}

	if count > len(p.MaterialData) {
		for i := len(p.MaterialData); i < count; i++ {
			m := NewMaterialModel()
			m.SetRoot(p)
			p.MaterialData = append(p.MaterialData, m)
		}
	} else {
		p.MaterialData = p.MaterialData[:count]
	}
	return nil
}

// IsPrinting reports whether status is currently "printing".
func (p *PrinterState) IsPrinting() bool { return p.status.Get() == StatusPrinting }

// IsHeating reports whether any tool or the bed is actively heating
// toward a target.
func (p *PrinterState) IsHeating() bool {
	for _, tool := range p.ToolTemperatures {
		if tool.IsHeating() {
			return true
		}
	}
	return p.BedTemperature.IsHeating()
}
