package events

import (
	"testing"

	"github.com/printerlink/agent/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tf(v float64) *float64 { return &v }

func TestTemperatureEvent_Build_S1(t *testing.T) {
	s := state.NewPrinterState(1, 1)
	s.BedTemperature.Clear()

	s.BedTemperature.SetActual(27.21875)
	s.BedTemperature.SetTarget(tf(0.0))

	ev := TemperatureEvent{}
	res, err := ev.Build(s)
	require.NoError(t, err)
	assert.Equal(t, []int{27, 0}, res.Data["bed"])

	res.OnSent()
	assert.False(t, s.BedTemperature.HasChanged())

	_, err = ev.Build(s)
	assert.Error(t, err, "a second build with nothing new dirty should be empty")
}

func TestJobInfoEvent_Build_S3(t *testing.T) {
	s := state.NewPrinterState(1, 1)
	s.JobInfo.Clear()

	s.JobInfo.SetProgress(0)
	s.JobInfo.SetTime(0)
	s.JobInfo.SetInitialEstimate(0)
	s.JobInfo.SetFilename("test.gcode")

	ev := JobInfoEvent{}
	res, err := ev.Build(s)
	require.NoError(t, err)
	assert.Equal(t, "test.gcode", res.Data["filename"])
	res.OnSent()

	s.JobInfo.SetFinished(true)
	res, err = ev.Build(s)
	require.NoError(t, err)
	assert.Equal(t, true, res.Data["finished"])
	res.OnSent()

	s.JobInfo.SetFinished(true)
	res, err = ev.Build(s)
	require.NoError(t, err)
	assert.Equal(t, true, res.Data["finished"], "exclusive job fields always re-fire")
}

func TestAmbientTemperatureEvent_Build(t *testing.T) {
	s := state.NewPrinterState(1, 1)
	s.AmbientTemperature.InvokeCheck(s.ToolTemperatures)

	ev := AmbientTemperatureEvent{}
	res, err := ev.Build(s)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Data["new"])
}

func TestStateChangeEvent_EmptyUntilStatusSet(t *testing.T) {
	s := state.NewPrinterState(1, 1)
	ev := StateChangeEvent{}

	_, err := ev.Build(s)
	assert.Error(t, err)

	s.SetStatus(state.StatusPrinting)
	res, err := ev.Build(s)
	require.NoError(t, err)
	assert.Equal(t, "printing", res.Data["new"])
}

func TestCatalogLookup(t *testing.T) {
	cat := NewCatalog()
	class, ok := cat.Lookup(state.EventTemperatures)
	require.True(t, ok)
	assert.Equal(t, "temps", class.Type())

	_, ok = cat.Lookup(state.EventKey("not-a-real-event"))
	assert.False(t, ok)
}

func TestTemperatureEvent_IntervalNameSwitchesOnTarget(t *testing.T) {
	s := state.NewPrinterState(1, 1)
	ev := TemperatureEvent{}
	assert.Equal(t, "temps", string(ev.IntervalName(s)))

	s.BedTemperature.SetTarget(tf(60))
	assert.Equal(t, "temps_target", string(ev.IntervalName(s)))
}

func TestTemperatureEvent_ForceDispatchOnTargetChange(t *testing.T) {
	s := state.NewPrinterState(1, 1)
	ev := TemperatureEvent{}
	assert.False(t, ev.ForceDispatch(s))

	s.BedTemperature.SetTarget(tf(60))
	assert.True(t, ev.ForceDispatch(s))
}
