package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestTemperature_SetActualAlwaysDirty(t *testing.T) {
	root := NewPrinterState(1, 1)
	root.BedTemperature.Clear()

	root.BedTemperature.SetActual(27.21875)
	assert.True(t, root.BedTemperature.HasChanged("actual"))
	assert.Contains(t, root.GetDirtyEvents(), EventTemperatures)

	// Always-notify: re-setting the identical value still dirties it.
	tok := root.BedTemperature.PartialClear("actual")
	tok.Invoke()
	assert.False(t, root.BedTemperature.HasChanged("actual"))

	root.BedTemperature.SetActual(27.21875)
	assert.True(t, root.BedTemperature.HasChanged("actual"))
}

func TestTemperatureIsHeating(t *testing.T) {
	temp := NewTemperature()
	assert.False(t, temp.IsHeating())

	temp.SetTarget(f(100))
	temp.SetActual(50)
	assert.True(t, temp.IsHeating())

	temp.SetActual(100)
	assert.False(t, temp.IsHeating())
}

func TestTemperatureIsHeating_ZeroTargetStillCounts(t *testing.T) {
	temp := NewTemperature()
	temp.SetTarget(f(0))
	temp.SetActual(200)
	assert.True(t, temp.IsHeating())

	temp.SetActual(0)
	assert.False(t, temp.IsHeating())
}

func TestPartialClear_NoOpOnNewerGeneration(t *testing.T) {
	root := NewPrinterState(1, 1)
	job := root.JobInfo

	job.SetProgress(10)
	tok := job.PartialClear("progress")

	// A second write bumps the generation before the token is invoked.
	job.SetProgress(20)
	tok.Invoke()

	assert.True(t, job.HasChanged("progress"), "clearing a stale generation must be a no-op")
}

func TestJobInfo_MutualExclusion(t *testing.T) {
	root := NewPrinterState(1, 1)
	job := root.JobInfo

	job.SetStarted(true)
	assert.True(t, job.Started())

	job.SetFinished(true)
	assert.True(t, job.Finished())
	assert.False(t, job.Started())
	assert.False(t, job.Cancelled())
	assert.False(t, job.Failed())

	// Re-asserting the same status always fires, since it's always-notify.
	job.Clear()
	job.SetFinished(true)
	assert.True(t, job.HasChanged("finished"))
}

func TestJobInfo_FalseNeverForcesOthersTrue(t *testing.T) {
	root := NewPrinterState(1, 1)
	job := root.JobInfo
	job.Clear()

	job.SetStarted(false)
	assert.False(t, job.Cancelled())
	assert.False(t, job.Finished())
	assert.False(t, job.Failed())
}

func TestS1_TemperatureDelta(t *testing.T) {
	root := NewPrinterState(1, 1)
	root.BedTemperature.Clear()

	root.BedTemperature.SetActual(27.21875)
	root.BedTemperature.SetTarget(f(0.0))

	assert.Equal(t, []int{27, 0}, root.BedTemperature.ToList())
}

func TestS3_JobProgression(t *testing.T) {
	root := NewPrinterState(1, 1)
	job := root.JobInfo
	job.Clear()

	job.SetProgress(0)
	job.SetTime(0)
	job.SetInitialEstimate(0)
	job.SetFilename("test.gcode")

	assert.True(t, job.HasChanged("filename"))

	job.Clear()
	job.SetFinished(true)
	assert.True(t, job.Finished())
	assert.True(t, job.HasChanged("finished"))

	job.Clear()
	job.SetFinished(true)
	assert.True(t, job.HasChanged("finished"), "exclusive/always fields fire on every write")
}

func TestS4_AmbientCheck(t *testing.T) {
	_, ambient, interval, _ := AmbientCheck(nil, nil, 0)
	assert.Equal(t, 0, ambient)
	assert.Equal(t, AmbientNoToolIntervalSeconds, interval)

	target := 210.0
	toolWithTarget := NewTemperature()
	toolWithTarget.SetTarget(&target)
	_, _, interval, _ = AmbientCheck([]*Temperature{toolWithTarget}, nil, 0)
	assert.Equal(t, AmbientCheckIntervalSeconds, interval)

	tool := NewTemperature()
	tool.SetActual(24.0)
	sample := 23.5
	nextSample, ambient, interval, changed := AmbientCheck([]*Temperature{tool}, &sample, 0)
	assert.Nil(t, nextSample)
	assert.Equal(t, 24, ambient)
	assert.Equal(t, AmbientCheckIntervalSeconds, interval)
	assert.True(t, changed)
}

func TestSetNozzleCount(t *testing.T) {
	root := NewPrinterState(1, 1)

	require.NoError(t, root.SetNozzleCount(3))
	assert.Len(t, root.ToolTemperatures, 3)

	require.NoError(t, root.SetNozzleCount(1))
	assert.Len(t, root.ToolTemperatures, 1)

	assert.Error(t, root.SetNozzleCount(0))
}

func TestSetExtruderCount_ClearsOutOfRangeActiveTool(t *testing.T) {
	root := NewPrinterState(1, 3)
	tool := 2
	root.SetActiveTool(&tool)

	require.NoError(t, root.SetExtruderCount(2))
	assert.Nil(t, root.ActiveTool())
}

func TestIsPrintingAndIsHeating(t *testing.T) {
	root := NewPrinterState(1, 1)
	assert.False(t, root.IsPrinting())

	root.SetStatus(StatusPrinting)
	assert.True(t, root.IsPrinting())

	assert.False(t, root.IsHeating())
	root.BedTemperature.SetTarget(f(60))
	root.BedTemperature.SetActual(20)
	assert.True(t, root.IsHeating())
}

func TestDirtyEventRotation(t *testing.T) {
	root := NewPrinterState(1, 1)
	root.MarkEventDirty(EventKey("a"))
	root.MarkEventDirty(EventKey("b"))
	root.MarkEventDirty(EventKey("c"))

	drained := root.DrainDirtyEvents()
	assert.Equal(t, []EventKey{"a", "b", "c"}, drained)
	assert.Empty(t, root.GetDirtyEvents())
}

func TestSetupWhitelist(t *testing.T) {
	assert.True(t, AllowedInSetup(EventPing))
	assert.True(t, AllowedInSetup(EventMachineData))
	assert.False(t, AllowedInSetup(EventJobInfo))
}
