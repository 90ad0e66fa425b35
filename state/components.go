package state

// FileProgressState enumerates the phases of downloading a queued file.
type FileProgressState string

const (
	FileProgressDownloading FileProgressState = "downloading"
	FileProgressError       FileProgressState = "error"
	FileProgressPending     FileProgressState = "pending"
	FileProgressStarted     FileProgressState = "started"
	FileProgressReady       FileProgressState = "ready"
)

// PrinterFileProgressState tracks download/prep progress for a queued
// file. State is always-notify since the server needs every transition
// even when a phase is re-entered with the same value.
type PrinterFileProgressState struct {
	Node

	state   Field[FileProgressState]
	Percent Field[float64]
	Message Field[string]
}

func NewPrinterFileProgressState() *PrinterFileProgressState {
	p := &PrinterFileProgressState{Node: newNode()}
	p.state = NewAlwaysField[FileProgressState]("")
	p.Percent = NewField(0.0)
	p.Message = NewField("")
	p.Register("state", &p.state)
	p.Register("percent", &p.Percent)
	p.Register("message", &p.Message)
	p.Bind("", EventFileProgress)
	return p
}

func (p *PrinterFileProgressState) State() FileProgressState { return p.state.Get() }
func (p *PrinterFileProgressState) SetState(v FileProgressState) bool {
	return SetField(&p.Node, "state", &p.state, v)
}
func (p *PrinterFileProgressState) SetPercent(v float64) bool {
	return SetField(&p.Node, "percent", &p.Percent, v)
}
func (p *PrinterFileProgressState) SetMessage(v string) bool {
	return SetField(&p.Node, "message", &p.Message, v)
}

// PrinterInfoData is host/machine identity information reported once
// (and whenever a field changes): ui/api versions, OS, network identity.
type PrinterInfoData struct {
	Node

	UI          Field[string]
	UIVersion   Field[string]
	API         Field[string]
	APIVersion  Field[string]
	Machine     Field[string]
	OS          Field[string]
	SPVersion   Field[string]
	IsEthernet  Field[bool]
	SSID        Field[string]
	LocalIP     Field[string]
	Hostname    Field[string]
	CoreCount   Field[int]
	TotalMemory Field[int64]
	MAC         Field[string]
}

func NewPrinterInfoData() *PrinterInfoData {
	p := &PrinterInfoData{Node: newNode()}
	for _, f := range []struct {
		name string
		g    generationer
	}{
		{"ui", &p.UI}, {"ui_version", &p.UIVersion}, {"api", &p.API}, {"api_version", &p.APIVersion},
		{"machine", &p.Machine}, {"os", &p.OS}, {"sp_version", &p.SPVersion}, {"is_ethernet", &p.IsEthernet},
		{"ssid", &p.SSID}, {"local_ip", &p.LocalIP}, {"hostname", &p.Hostname}, {"core_count", &p.CoreCount},
		{"total_memory", &p.TotalMemory}, {"mac", &p.MAC},
	} {
		p.Register(f.name, f.g)
	}
	p.Bind("", EventMachineData)
	return p
}

// PrinterDisplaySettings configures the printer's on-device display.
type PrinterDisplaySettings struct {
	Node

	Enabled           Field[bool]
	Branding          Field[bool]
	WhilePrintingType Field[int]
	ShowStatus        Field[bool]
}

func NewPrinterDisplaySettings() *PrinterDisplaySettings {
	p := &PrinterDisplaySettings{Node: newNode()}
	p.Register("enabled", &p.Enabled)
	p.Register("branding", &p.Branding)
	p.Register("while_printing_type", &p.WhilePrintingType)
	p.Register("show_status", &p.ShowStatus)
	return p
}

func (p *PrinterDisplaySettings) SetEnabled(v bool) bool {
	return SetField(&p.Node, "enabled", &p.Enabled, v)
}
func (p *PrinterDisplaySettings) SetBranding(v bool) bool {
	return SetField(&p.Node, "branding", &p.Branding, v)
}
func (p *PrinterDisplaySettings) SetWhilePrintingType(v int) bool {
	return SetField(&p.Node, "while_printing_type", &p.WhilePrintingType, v)
}
func (p *PrinterDisplaySettings) SetShowStatus(v bool) bool {
	return SetField(&p.Node, "show_status", &p.ShowStatus, v)
}

// PrinterSettings advertises which optional peripherals are present.
type PrinterSettings struct {
	Node

	HasPSU             Field[bool]
	HasFilamentSensor  Field[bool]
}

func NewPrinterSettings() *PrinterSettings {
	p := &PrinterSettings{Node: newNode()}
	p.Register("has_psu", &p.HasPSU)
	p.Register("has_filament_sensor", &p.HasFilamentSensor)
	return p
}

func (p *PrinterSettings) SetHasPSU(v bool) bool {
	return SetField(&p.Node, "has_psu", &p.HasPSU, v)
}
func (p *PrinterSettings) SetHasFilamentSensor(v bool) bool {
	return SetField(&p.Node, "has_filament_sensor", &p.HasFilamentSensor, v)
}

// PrinterFirmware describes the running firmware build.
type PrinterFirmware struct {
	Node

	Name        Field[string]
	NameRaw     Field[string]
	Machine     Field[string]
	MachineName Field[string]
	Version     Field[string]
	Date        Field[string]
	Link        Field[string]
}

func NewPrinterFirmware() *PrinterFirmware {
	p := &PrinterFirmware{Node: newNode()}
	p.Register("name", &p.Name)
	p.Register("name_raw", &p.NameRaw)
	p.Register("machine", &p.Machine)
	p.Register("machine_name", &p.MachineName)
	p.Register("version", &p.Version)
	p.Register("date", &p.Date)
	p.Register("link", &p.Link)
	p.Bind("", EventFirmware)
	return p
}

// PrinterFirmwareWarning reports a single firmware compatibility check
// result. It is a node of its own, separate from PrinterFirmware, with
// every field bound to the "firmware_warning" event key.
type PrinterFirmwareWarning struct {
	Node

	CheckName   Field[string]
	WarningType Field[string]
	Severity    Field[string]
	URL         Field[string]
}

func NewPrinterFirmwareWarning() *PrinterFirmwareWarning {
	p := &PrinterFirmwareWarning{Node: newNode()}
	p.Register("check_name", &p.CheckName)
	p.Register("warning_type", &p.WarningType)
	p.Register("severity", &p.Severity)
	p.Register("url", &p.URL)
	p.Bind("", EventFirmwareWarning)
	return p
}

// PrinterFilamentSensorEnum is the runout sensor's current reading.
type PrinterFilamentSensorEnum string

const (
	FilamentLoaded PrinterFilamentSensorEnum = "loaded"
	FilamentRunout PrinterFilamentSensorEnum = "runout"
)

type PrinterFilamentSensorState struct {
	Node

	state Field[PrinterFilamentSensorEnum]
}

func NewPrinterFilamentSensorState() *PrinterFilamentSensorState {
	p := &PrinterFilamentSensorState{Node: newNode()}
	p.state = NewField[PrinterFilamentSensorEnum]("")
	p.Register("state", &p.state)
	p.Bind("", EventFilamentSensor)
	return p
}

func (p *PrinterFilamentSensorState) State() PrinterFilamentSensorEnum { return p.state.Get() }
func (p *PrinterFilamentSensorState) SetState(v PrinterFilamentSensorEnum) bool {
	return SetField(&p.Node, "state", &p.state, v)
}

// PrinterPSUState tracks a managed power supply's on/off state. On is an
// exclusive-bool scalar: asserting true always fires, even if it was
// already true, since a PSU-on signal can matter even when redundant.
type PrinterPSUState struct {
	Node

	on ExclusiveBool
}

func NewPrinterPSUState() *PrinterPSUState {
	p := &PrinterPSUState{Node: newNode()}
	p.on = NewExclusiveBool(false)
	p.Register("on", &p.on)
	p.Bind("", EventPSU)
	return p
}

func (p *PrinterPSUState) On() bool { return p.on.Get() }
func (p *PrinterPSUState) SetOn(v bool) bool {
	return SetExclusiveBool(&p.Node, "on", &p.on, v)
}

// PingPongState tracks the timestamps (unix seconds, as floats) of the
// last ping sent and pong received, for latency reporting.
type PingPongState struct {
	Node

	Ping Field[float64]
	Pong Field[float64]
}

func NewPingPongState() *PingPongState {
	p := &PingPongState{Node: newNode()}
	p.Register("ping", &p.Ping)
	p.Register("pong", &p.Pong)
	p.Bind("pong", EventLatency)
	return p
}

// WebcamState is whether a webcam stream is currently connected. Modeled
// as an exclusive-bool scalar for the same reason as PrinterPSUState.On.
type WebcamState struct {
	Node

	connected ExclusiveBool
}

func NewWebcamState() *WebcamState {
	w := &WebcamState{Node: newNode()}
	w.connected = NewExclusiveBool(false)
	w.Register("connected", &w.connected)
	w.Bind("connected", EventWebcamStatus)
	return w
}

func (w *WebcamState) Connected() bool { return w.connected.Get() }
func (w *WebcamState) SetConnected(v bool) bool {
	return SetExclusiveBool(&w.Node, "connected", &w.connected, v)
}

// WebcamSettings describes how a connected webcam's stream should be
// oriented before display.
type WebcamSettings struct {
	Node

	FlipH    Field[bool]
	FlipV    Field[bool]
	Rotate90 Field[bool]
}

func NewWebcamSettings() *WebcamSettings {
	w := &WebcamSettings{Node: newNode()}
	w.Register("flipH", &w.FlipH)
	w.Register("flipV", &w.FlipV)
	w.Register("rotate90", &w.Rotate90)
	w.Bind("", EventWebcam)
	return w
}

// CpuInfoState is host resource usage, reported periodically.
type CpuInfoState struct {
	Node

	Usage  Field[float64]
	Temp   Field[float64]
	Memory Field[float64]
}

func NewCpuInfoState() *CpuInfoState {
	c := &CpuInfoState{Node: newNode()}
	c.Register("usage", &c.Usage)
	c.Register("temp", &c.Temp)
	c.Register("memory", &c.Memory)
	c.Bind("", EventCPUInfo)
	return c
}

// MaterialModel is one extruder slot's loaded material, if any.
type MaterialModel struct {
	Node

	MaterialType Field[string]
	Color        Field[string]
	Hex          Field[string]
	Ext          Field[int]
}

func NewMaterialModel() *MaterialModel {
	m := &MaterialModel{Node: newNode()}
	m.Register("type", &m.MaterialType)
	m.Register("color", &m.Color)
	m.Register("hex", &m.Hex)
	m.Register("ext", &m.Ext)
	return m
}
