package driver

import (
	"testing"

	"github.com/printerlink/agent/driver/bambu"
	"github.com/printerlink/agent/state"
	"github.com/stretchr/testify/assert"
)

func TestApplyTemperatures(t *testing.T) {
	m := &Module{}
	s := state.NewPrinterState(1, 1)

	m.applyTemperatures(s, bambu.PrinterData{
		BedTemper: 60, BedTargetTemper: 60,
		NozzleTemper: 210, NozzleTargetTemper: 215,
	})

	assert.Equal(t, 60.0, s.BedTemperature.Actual())
	assert.Equal(t, 60.0, *s.BedTemperature.Target())
	assert.Equal(t, 210.0, s.ToolTemperatures[0].Actual())
	assert.Equal(t, 215.0, *s.ToolTemperatures[0].Target())
}

func TestApplyTemperatures_ZeroTargetMeansNoTarget(t *testing.T) {
	m := &Module{}
	s := state.NewPrinterState(1, 1)

	m.applyTemperatures(s, bambu.PrinterData{BedTemper: 25, BedTargetTemper: 0})

	assert.Nil(t, s.BedTemperature.Target())
}

func TestApplyStatus(t *testing.T) {
	m := &Module{}
	s := state.NewPrinterState(1, 1)

	m.applyStatus(s, bambu.PrinterData{GcodeState: "RUNNING"})
	assert.Equal(t, state.StatusPrinting, s.Status())

	m.applyStatus(s, bambu.PrinterData{GcodeState: "PAUSE"})
	assert.Equal(t, state.StatusPaused, s.Status())

	m.applyStatus(s, bambu.PrinterData{GcodeState: "RUNNING", PrintErrorCode: "12345"})
	assert.Equal(t, state.StatusError, s.Status())
}

func TestApplyJobInfo_StartedThenFinished(t *testing.T) {
	m := &Module{}
	s := state.NewPrinterState(1, 1)

	m.applyJobInfo(s, bambu.PrinterData{GcodeState: "RUNNING", SubtaskName: "plate_1", PrintPercentDone: 10})
	assert.True(t, s.JobInfo.Started())
	assert.Equal(t, "plate_1", s.JobInfo.Filename.Get())

	// Still running: started should not re-fire from a stale comparison,
	// but applyJobInfo only calls SetStarted on the PREPARE/RUNNING
	// transition edge, so a second RUNNING tick is a no-op for it.
	m.applyJobInfo(s, bambu.PrinterData{GcodeState: "RUNNING", PrintPercentDone: 50})

	m.applyJobInfo(s, bambu.PrinterData{GcodeState: "FINISH", PrintPercentDone: 100})
	assert.True(t, s.JobInfo.Finished())
	assert.False(t, s.JobInfo.Started())
}

func TestApplyJobInfo_Failed(t *testing.T) {
	m := &Module{}
	s := state.NewPrinterState(1, 1)

	m.applyJobInfo(s, bambu.PrinterData{GcodeState: "RUNNING"})
	m.applyJobInfo(s, bambu.PrinterData{GcodeState: "FAILED"})

	assert.True(t, s.JobInfo.Failed())
	assert.False(t, s.JobInfo.Started())
}

func TestErrorCodeIsSet(t *testing.T) {
	assert.False(t, errorCodeIsSet(""))
	assert.False(t, errorCodeIsSet("0"))
	assert.False(t, errorCodeIsSet("00000"))
	assert.True(t, errorCodeIsSet("12345"))
}
