// Package driver implements the local printer backend that
// orchestrator.Driver expects: the one piece of this module explicitly
// out of the core's scope (§1 lists "physical-machine fact gathering" as
// an external collaborator), given a concrete, real implementation
// against Bambu Lab's local MQTT telemetry so the state tree and event
// pipeline have an actual producer to drive them end to end.
//
// Module.Tick is invoked by the orchestrator once per client tick (§4.8
// step 2): it reads whatever the printer's MQTT client has cached since
// the last call and mirrors it onto the shared PrinterState tree. Once
// connected, incoming reports arrive via paho's async callbacks and the
// read is cheap; while the MQTT link is not connected, Tick first calls
// Connect, which blocks until the connect attempt finishes or times out.
package driver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/printerlink/agent/driver/bambu"
	"github.com/printerlink/agent/state"
)

// Module drives a single Bambu Lab printer's PrinterState from its local
// MQTT telemetry.
type Module struct {
	printer *bambu.Printer
	logger  *slog.Logger

	lastGcodeState string
}

// New builds a Module for the given printer configuration. The MQTT
// connection is established lazily on the first Tick, not here, so
// construction never blocks on printer reachability.
func New(cfg bambu.PrinterConfig, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{printer: bambu.NewPrinter(&cfg), logger: logger}
}

// Tick implements orchestrator.Driver.
func (m *Module) Tick(ctx context.Context, s *state.PrinterState) error {
	if err := m.printer.Connect(); err != nil {
		m.logger.Debug("bambu printer unreachable", "component", "driver.bambu", "err", err)
		s.SetStatus(state.StatusOffline)
		return nil
	}

	data, err := m.printer.Data()
	if err != nil {
		m.logger.Debug("bambu printer data read failed", "component", "driver.bambu", "err", err)
		return nil
	}
	if data.IsEmpty() {
		return nil
	}

	m.applyTemperatures(s, data)
	m.applyStatus(s, data)
	m.applyJobInfo(s, data)
	return nil
}

func (m *Module) applyTemperatures(s *state.PrinterState, data bambu.PrinterData) {
	s.BedTemperature.SetActual(data.BedTemper)
	s.BedTemperature.SetTarget(optionalTarget(data.BedTargetTemper))

	if len(s.ToolTemperatures) > 0 {
		s.ToolTemperatures[0].SetActual(data.NozzleTemper)
		s.ToolTemperatures[0].SetTarget(optionalTarget(data.NozzleTargetTemper))
	}
}

// optionalTarget mirrors the wire protocol's convention that an absent
// target is nil, not zero: Bambu reports 0 for "heater off", which is
// exactly the sentinel the server expects for "no target set".
func optionalTarget(celsius float64) *float64 {
	if celsius == 0 {
		return nil
	}
	return &celsius
}

func (m *Module) applyStatus(s *state.PrinterState, data bambu.PrinterData) {
	if errorCodeIsSet(data.PrintErrorCode) {
		s.SetStatus(state.StatusError)
		return
	}
	switch data.GcodeState {
	case "IDLE", "FINISH":
		s.SetStatus(state.StatusOperational)
	case "PREPARE", "RUNNING":
		s.SetStatus(state.StatusPrinting)
	case "PAUSE":
		s.SetStatus(state.StatusPaused)
	case "FAILED":
		s.SetStatus(state.StatusError)
	}
}

// applyJobInfo translates the gcode state machine's transitions into the
// four mutually-exclusive job-status booleans the state tree enforces
// (§3.2 invariant 6), plus the job's scalar progress fields.
func (m *Module) applyJobInfo(s *state.PrinterState, data bambu.PrinterData) {
	job := s.JobInfo
	filename := data.SubtaskName
	if filename == "" {
		filename = data.GcodeFile
	}
	if filename != "" {
		job.SetFilename(filename)
	}
	job.SetProgress(float64(data.PrintPercentDone))
	job.SetTime(float64(data.RemainingPrintTime) * 60)

	prev := m.lastGcodeState
	m.lastGcodeState = data.GcodeState

	switch data.GcodeState {
	case "PREPARE", "RUNNING":
		if prev != "PREPARE" && prev != "RUNNING" {
			job.SetStarted(true)
		}
	case "FINISH":
		job.SetFinished(true)
	case "FAILED":
		job.SetFailed(true)
	}
}

// StopPrint forwards a cancel demand to the printer over MQTT.
func (m *Module) StopPrint() error { return m.printer.StopPrint() }

// SetNozzleTarget forwards a gcode demand's M104 command to the printer.
func (m *Module) SetNozzleTarget(celsius int) error { return m.printer.SetNozzleTarget(celsius) }

// errorCodeIsSet reports whether a Bambu error code string represents an
// actual fault rather than the "no error" sentinel "0".
func errorCodeIsSet(code string) bool {
	return code != "" && strings.TrimLeft(code, "0") != ""
}
