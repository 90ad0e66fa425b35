package state

import "math"

// JobInfoState tracks progress of the active print job. The four status
// booleans are mutually exclusive and always-notify: setting one to true
// forces the other three from true to false (never false to true), and
// any write to true re-fires even if the field was already true.
type JobInfoState struct {
	Node

	Progress        Field[float64]
	InitialEstimate Field[float64]
	Layer           Field[int]
	Time            Field[float64]
	Filament        Field[float64]
	Filename        Field[string]
	Delay           Field[float64]

	started   Field[bool]
	finished  Field[bool]
	cancelled Field[bool]
	failed    Field[bool]
}

// JobStateFields lists the four mutually exclusive status booleans, in
// the fixed precedence order the wire protocol checks them in.
var JobStateFields = []string{"started", "finished", "cancelled", "failed"}

func NewJobInfoState() *JobInfoState {
	j := &JobInfoState{Node: newNode()}
	j.started = NewAlwaysField(false)
	j.finished = NewAlwaysField(false)
	j.cancelled = NewAlwaysField(false)
	j.failed = NewAlwaysField(false)

	j.Register("progress", &j.Progress)
	j.Register("initial_estimate", &j.InitialEstimate)
	j.Register("layer", &j.Layer)
	j.Register("time", &j.Time)
	j.Register("filament", &j.Filament)
	j.Register("filename", &j.Filename)
	j.Register("delay", &j.Delay)
	j.Register("started", &j.started)
	j.Register("finished", &j.finished)
	j.Register("cancelled", &j.cancelled)
	j.Register("failed", &j.failed)
	j.Bind("", EventJobInfo)
	return j
}

func (j *JobInfoState) Started() bool   { return j.started.Get() }
func (j *JobInfoState) Finished() bool  { return j.finished.Get() }
func (j *JobInfoState) Cancelled() bool { return j.cancelled.Get() }
func (j *JobInfoState) Failed() bool    { return j.failed.Get() }

func (j *JobInfoState) SetStarted(v bool) bool   { return j.setStatus("started", &j.started, v) }
func (j *JobInfoState) SetFinished(v bool) bool  { return j.setStatus("finished", &j.finished, v) }
func (j *JobInfoState) SetCancelled(v bool) bool { return j.setStatus("cancelled", &j.cancelled, v) }
func (j *JobInfoState) SetFailed(v bool) bool    { return j.setStatus("failed", &j.failed, v) }

func (j *JobInfoState) setStatus(name string, f *Field[bool], v bool) bool {
	changed := SetField(&j.Node, name, f, v)
	if !changed || !v {
		return changed
	}
	for _, other := range JobStateFields {
		if other == name {
			continue
		}
		j.forceFalse(other)
	}
	return changed
}

func (j *JobInfoState) forceFalse(name string) {
	switch name {
	case "started":
		if j.started.Get() {
			SetField(&j.Node, "started", &j.started, false)
		}
	case "finished":
		if j.finished.Get() {
			SetField(&j.Node, "finished", &j.finished, false)
		}
	case "cancelled":
		if j.cancelled.Get() {
			SetField(&j.Node, "cancelled", &j.cancelled, false)
		}
	case "failed":
		if j.failed.Get() {
			SetField(&j.Node, "failed", &j.failed, false)
		}
	}
}

func (j *JobInfoState) SetProgress(v float64) bool {
	return SetField(&j.Node, "progress", &j.Progress, math.Round(v))
}
func (j *JobInfoState) SetInitialEstimate(v float64) bool {
	return SetField(&j.Node, "initial_estimate", &j.InitialEstimate, v)
}
func (j *JobInfoState) SetLayer(v int) bool { return SetField(&j.Node, "layer", &j.Layer, v) }
func (j *JobInfoState) SetTime(v float64) bool { return SetField(&j.Node, "time", &j.Time, v) }
func (j *JobInfoState) SetFilament(v float64) bool {
	return SetField(&j.Node, "filament", &j.Filament, v)
}
func (j *JobInfoState) SetFilename(v string) bool {
	return SetField(&j.Node, "filename", &j.Filename, v)
}
func (j *JobInfoState) SetDelay(v float64) bool { return SetField(&j.Node, "delay", &j.Delay, v) }
