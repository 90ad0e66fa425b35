package events

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DispatchPriorityOrder(t *testing.T) {
	bus := NewBus()
	var order []int

	bus.Subscribe("topic", 1, UniquenessNone, func(any) error {
		order = append(order, 1)
		return nil
	})
	bus.Subscribe("topic", 5, UniquenessNone, func(any) error {
		order = append(order, 5)
		return nil
	})
	bus.Subscribe("topic", 3, UniquenessNone, func(any) error {
		order = append(order, 3)
		return nil
	})

	bus.Dispatch("topic", nil, nil)
	assert.Equal(t, []int{5, 3, 1}, order)
}

func TestBus_UniquenessExclusiveEvictsOthers(t *testing.T) {
	bus := NewBus()
	called := false
	bus.Subscribe("topic", 0, UniquenessNone, func(any) error { called = true; return nil })
	bus.Subscribe("topic", 0, UniquenessExclusive, func(any) error { return nil })

	bus.Dispatch("topic", nil, nil)
	assert.False(t, called)
	assert.Equal(t, 1, bus.ListenerCount("topic"))
}

func TestBus_UniquenessPriorityEvictsSamePriorityOnly(t *testing.T) {
	bus := NewBus()
	var calls []string
	bus.Subscribe("topic", 1, UniquenessNone, func(any) error { calls = append(calls, "low-old"); return nil })
	bus.Subscribe("topic", 2, UniquenessNone, func(any) error { calls = append(calls, "high"); return nil })
	bus.Subscribe("topic", 1, UniquenessPriority, func(any) error { calls = append(calls, "low-new"); return nil })

	bus.Dispatch("topic", nil, nil)
	assert.ElementsMatch(t, []string{"high", "low-new"}, calls)
}

func TestBus_HandlerErrorDoesNotStopDispatch(t *testing.T) {
	bus := NewBus()
	secondCalled := false
	bus.Subscribe("topic", 1, UniquenessNone, func(any) error { return assertError{} })
	bus.Subscribe("topic", 0, UniquenessNone, func(any) error { secondCalled = true; return nil })

	var gotErr error
	bus.Dispatch("topic", nil, func(topic string, err error) { gotErr = err })

	assert.True(t, secondCalled)
	require.Error(t, gotErr)
}

func TestBus_StopPropagationHaltsLowerPriorityListeners(t *testing.T) {
	bus := NewBus()
	var calls []string
	bus.Subscribe("topic", 2, UniquenessNone, func(any) error {
		calls = append(calls, "high")
		return ErrStopPropagation
	})
	bus.Subscribe("topic", 1, UniquenessNone, func(any) error {
		calls = append(calls, "low")
		return nil
	})

	var gotErr error
	bus.Dispatch("topic", nil, func(topic string, err error) { gotErr = err })

	assert.Equal(t, []string{"high"}, calls)
	assert.NoError(t, gotErr)
}

func TestBus_WrappedStopPropagationAlsoHalts(t *testing.T) {
	bus := NewBus()
	var calls []string
	bus.Subscribe("topic", 2, UniquenessNone, func(any) error {
		calls = append(calls, "high")
		return fmt.Errorf("setup handshake done: %w", ErrStopPropagation)
	})
	bus.Subscribe("topic", 1, UniquenessNone, func(any) error {
		calls = append(calls, "low")
		return nil
	})

	bus.Dispatch("topic", nil, nil)
	assert.Equal(t, []string{"high"}, calls)
}

func TestBus_UnsubscribeRemovesListener(t *testing.T) {
	bus := NewBus()
	called := false
	unsubscribe := bus.Subscribe("topic", 0, UniquenessNone, func(any) error { called = true; return nil })
	unsubscribe()

	bus.Dispatch("topic", nil, nil)
	assert.False(t, called)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
