package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/printerlink/agent/config"
	"github.com/printerlink/agent/engine"
	"github.com/printerlink/agent/events"
	"github.com/printerlink/agent/intervals"
	"github.com/printerlink/agent/state"
	"github.com/printerlink/agent/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	frames []map[string]any
}

func (r *recordingSender) Send(raw []byte) error {
	var frame map[string]any
	if err := json.Unmarshal(raw, &frame); err != nil {
		return err
	}
	r.frames = append(r.frames, frame)
	return nil
}

func newTestOrchestrator() (*Orchestrator, *state.PrinterState) {
	st := state.NewPrinterState(1, 1)
	clocks := intervals.NewRegistry(nil)
	bus := events.NewBus()
	catalog := events.NewCatalog()
	o := New(st, catalog, clocks, bus, nil, nil, "", nil)
	return o, st
}

func TestOrchestrator_Tick_SendsDirtyTemperatureEvent(t *testing.T) {
	o, st := newTestOrchestrator()
	sender := &recordingSender{}

	st.BedTemperature.SetActual(27.21875)
	st.BedTemperature.SetTarget(floatPtr(0.0))

	require.NoError(t, o.Tick(context.Background(), sender))

	found := findFrame(sender.frames, "temps")
	require.NotNil(t, found)
	data := found["data"].(map[string]any)
	bed := data["bed"].([]any)
	assert.Equal(t, float64(27), bed[0])
	assert.Equal(t, float64(0), bed[1])

	// The event was cleared on send; a second tick with no new mutation
	// produces nothing further for "temps".
	sender.frames = nil
	require.NoError(t, o.Tick(context.Background(), sender))
	assert.Nil(t, findFrame(sender.frames, "temps"))
}

func TestOrchestrator_Tick_RateLimitsJobUnlessStateChanged(t *testing.T) {
	o, st := newTestOrchestrator()
	sender := &recordingSender{}

	// Use up the job clock so the next ordinary change is rate-limited.
	require.NoError(t, o.Clocks.Use(intervals.Job))

	st.JobInfo.SetFilename("test.gcode")
	require.NoError(t, o.Tick(context.Background(), sender))
	assert.Nil(t, findFrame(sender.frames, "job_info"))
	assert.Contains(t, st.GetDirtyEvents(), state.EventJobInfo)

	// A state-boolean change bypasses the job interval even though it's
	// still not ready.
	sender.frames = nil
	st.JobInfo.SetFinished(true)
	require.NoError(t, o.Tick(context.Background(), sender))
	found := findFrame(sender.frames, "job_info")
	require.NotNil(t, found)
	data := found["data"].(map[string]any)
	assert.Equal(t, true, data["finished"])
}

func TestOrchestrator_Tick_SetupGatingSuppressesNonWhitelistedEvents(t *testing.T) {
	o, st := newTestOrchestrator()
	sender := &recordingSender{}

	cfg, store, sess := inSetupSession(t, st, o.Clocks, o.Bus)
	o.Session = sess
	_ = cfg
	_ = store

	st.JobInfo.SetFilename("test.gcode")
	require.NoError(t, o.Tick(context.Background(), sender))
	assert.Nil(t, findFrame(sender.frames, "job_info"))
	assert.Contains(t, st.GetDirtyEvents(), state.EventJobInfo)

	st.SetStatus(state.StatusPrinting)
	require.NoError(t, o.Tick(context.Background(), sender))
	assert.NotNil(t, findFrame(sender.frames, "state_change"))
}

func TestOrchestrator_Tick_SendsPingWhenClockReady(t *testing.T) {
	o, _ := newTestOrchestrator()
	sender := &recordingSender{}

	require.NoError(t, o.Tick(context.Background(), sender))
	assert.NotNil(t, findFrame(sender.frames, "ping"))
}

func inSetupSession(t *testing.T, st *state.PrinterState, clocks *intervals.Registry, bus *events.Bus) (*config.Config, config.Store, *transport.Session) {
	t.Helper()
	cfg := config.NewPending("unique-test")
	sess := transport.NewSession("testws.simplyprint.io", cfg, nil, st, bus, clocks, nil, engine.NewStoppable())
	require.NoError(t, sess.HandleConnected(context.Background(), "ABC123", "", "resume-1", true, nil))
	return cfg, nil, sess
}

func findFrame(frames []map[string]any, eventType string) map[string]any {
	for _, f := range frames {
		if f["type"] == eventType {
			return f
		}
	}
	return nil
}

func floatPtr(v float64) *float64 { return &v }
