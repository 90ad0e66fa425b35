package state

// Event keys mirror the wire "type" values of the outbound protocol.
// They live here, rather than in the events package, so state nodes can
// bind fields to them without creating an import cycle; the events
// package's catalog is keyed by these same constants.
const (
	EventPing              EventKey = "ping"
	EventKeepalive         EventKey = "keepalive"
	EventLatency           EventKey = "latency"
	EventTool              EventKey = "tool"
	EventStateChange       EventKey = "state_change"
	EventAmbient           EventKey = "ambient"
	EventTemperatures      EventKey = "temps"
	EventShutdown          EventKey = "shutdown"
	EventConnection        EventKey = "connection"
	EventCameraSettings    EventKey = "camera_settings"
	EventJobInfo           EventKey = "job_info"
	EventFileProgress      EventKey = "file_progress"
	EventCPUInfo           EventKey = "cpu_info"
	EventPSU               EventKey = "power_controller"
	EventPrinterError      EventKey = "printer_error"
	EventMachineData       EventKey = "machine_data"
	EventFirmware          EventKey = "firmware"
	EventWebcam            EventKey = "webcam"
	EventWebcamStatus      EventKey = "webcam_status"
	EventFilamentAnalysis  EventKey = "filament_analysis"
	EventInstalledPlugins  EventKey = "installed_plugins"
	EventSoftwareUpdates   EventKey = "software_updates"
	EventFirmwareWarning   EventKey = "firmware_warning"
	EventFilamentSensor    EventKey = "filament_sensor"
	EventMaterialData      EventKey = "material_data"
	EventGcodeScripts      EventKey = "gcode_scripts"
)

// SetupWhitelist is the set of events allowed to be sent while a printer
// is still in setup (§3.2 invariant 5).
var SetupWhitelist = map[EventKey]struct{}{
	EventPing:             {},
	EventKeepalive:        {},
	EventConnection:       {},
	EventStateChange:      {},
	EventShutdown:         {},
	EventMachineData:      {},
	EventFirmware:         {},
	EventFirmwareWarning:  {},
	EventInstalledPlugins: {},
}

// AllowedInSetup reports whether key may be emitted while in_setup is true.
func AllowedInSetup(key EventKey) bool {
	_, ok := SetupWhitelist[key]
	return ok
}
