package state

import "math"

// Ambient-check tunables, named and timed exactly as the original
// heuristic: sample the first tool's actual reading while it has no
// target, and once two samples taken 20s apart land within 2 degrees of
// each other, settle on their average as ambient and only re-check every
// 5 minutes. A tool with a non-zero target skips sampling entirely (it's
// actively heating, so its reading tells us nothing about room
// temperature); with no tools at all, re-check every 5s until one shows
// up.
const (
	AmbientCheckIntervalSeconds = 300.0
	AmbientSampleIntervalSeconds = 20.0
	AmbientNoToolIntervalSeconds = 5.0
	AmbientSettleThreshold       = 2.0
)

// AmbientCheck is the pure transition function driving ambient-temperature
// smoothing. It takes the first tool temperature (tools[0], if any), the
// previously captured sample (nil if none), and the current ambient
// estimate, and returns the next sample to remember, the new (rounded)
// ambient estimate, the number of seconds to wait before checking again,
// and whether the ambient estimate actually changed.
func AmbientCheck(tools []*Temperature, initialSample *float64, ambient float64) (nextSample *float64, newAmbient int, nextIntervalSeconds float64, changed bool) {
	if len(tools) == 0 {
		return nil, int(math.Round(ambient)), AmbientNoToolIntervalSeconds, false
	}

	tool0 := tools[0]
	if target := tool0.Target(); target != nil && *target != 0 {
		return nil, int(math.Round(ambient)), AmbientCheckIntervalSeconds, false
	}

	actual := tool0.Actual()
	if initialSample == nil {
		sample := actual
		return &sample, int(math.Round(ambient)), AmbientSampleIntervalSeconds, false
	}

	diff := math.Abs(actual - *initialSample)
	if diff <= AmbientSettleThreshold {
		newAmbientValue := (actual + *initialSample) / 2
		rounded := int(math.Round(newAmbientValue))
		return nil, rounded, AmbientCheckIntervalSeconds, rounded != int(math.Round(ambient))
	}

	sample := actual
	return &sample, int(math.Round(ambient)), AmbientSampleIntervalSeconds, false
}

// AmbientTemperatureState holds the smoothed ambient reading and the
// bookkeeping AmbientCheck needs between invocations.
type AmbientTemperatureState struct {
	Node

	initialSample  *float64
	ambient        Field[int]
	updateInterval float64
}

func NewAmbientTemperatureState() *AmbientTemperatureState {
	a := &AmbientTemperatureState{Node: newNode()}
	a.ambient = NewField(0)
	a.Register("ambient", &a.ambient)
	a.Bind("ambient", EventAmbient)
	return a
}

func (a *AmbientTemperatureState) Ambient() int { return a.ambient.Get() }

// InvokeCheck runs AmbientCheck against the printer's tool temperatures
// and applies the result, marking the ambient field dirty if it changed.
// It returns the seconds to wait before calling InvokeCheck again.
func (a *AmbientTemperatureState) InvokeCheck(tools []*Temperature) float64 {
	sample, ambient, interval, _ := AmbientCheck(tools, a.initialSample, float64(a.ambient.Get()))
	a.initialSample = sample
	a.updateInterval = interval
	SetField(&a.Node, "ambient", &a.ambient, ambient)
	return interval
}
