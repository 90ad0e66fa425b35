package state

import "math"

// Temperature is a single actual/target heater reading. Both fields are
// always-notify: re-sending the same actual reading still counts as a
// change, which keeps temperature deltas flowing at the configured
// interval even when a printer is idle and holding steady.
type Temperature struct {
	Node

	actual Field[float64]
	target Field[*float64]
}

func NewTemperature() *Temperature {
	t := &Temperature{Node: newNode()}
	t.actual = NewAlwaysField(0.0)
	t.target = NewAlwaysField[*float64](nil)
	t.Register("actual", &t.actual)
	t.Register("target", &t.target)
	t.Bind("actual", EventTemperatures)
	t.Bind("target", EventTemperatures)
	return t
}

func (t *Temperature) Actual() float64    { return t.actual.Get() }
func (t *Temperature) Target() *float64   { return t.target.Get() }
func (t *Temperature) SetActual(v float64) bool { return SetField(&t.Node, "actual", &t.actual, v) }

func (t *Temperature) SetTarget(v *float64) bool {
	return SetField(&t.Node, "target", &t.target, v)
}

// IsHeating reports whether a target is set and the rounded actual
// reading hasn't reached it yet. A target of exactly 0 is still a set
// target (e.g. "cool down to ambient") and follows the same rounded
// comparison as any other target.
func (t *Temperature) IsHeating() bool {
	target := t.target.Get()
	if target == nil {
		return false
	}
	return math.Round(t.actual.Get()) != math.Round(*target)
}

// ToList renders [actual] or [actual, target] the way the wire protocol
// expects a temps entry, rounding both values to whole degrees.
func (t *Temperature) ToList() []int {
	out := []int{int(math.Round(t.actual.Get()))}
	if target := t.target.Get(); target != nil {
		out = append(out, int(math.Round(*target)))
	}
	return out
}
