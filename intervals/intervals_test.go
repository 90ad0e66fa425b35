package intervals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_DefaultsAllReady(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []Name{AI, Job, Temps, TempsTarget, CPU, Reconnect, ReadyMessage, Ping, Webcam} {
		assert.True(t, r.IsReady(name), "expected %s to start ready", name)
	}
}

func TestRegistry_UseThenNotReady(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Use(Ping))
	assert.False(t, r.IsReady(Ping))
	assert.Greater(t, r.TimeUntilReady(Ping), time.Duration(0))
}

func TestRegistry_UseNotReadyReturnsError(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Use(Job))

	err := r.Use(Job)
	require.Error(t, err)

	var intervalErr *Error
	require.ErrorAs(t, err, &intervalErr)
	assert.Equal(t, Job, intervalErr.Name)
}

func TestRegistry_SetOverridesDefault(t *testing.T) {
	r := NewRegistry(nil)
	r.Set(Webcam, 50*time.Millisecond)
	require.NoError(t, r.Use(Webcam))
	assert.False(t, r.IsReady(Webcam))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, r.IsReady(Webcam))
}

func TestRegistry_SetWithNonPositiveFallsBackToDefault(t *testing.T) {
	r := NewRegistry(nil)
	r.Set(Temps, 0)
	assert.Equal(t, 5000*time.Millisecond, r.periods[Temps])
}

func TestRegistry_UpdateFromCopiesPeriods(t *testing.T) {
	a := NewRegistry(nil)
	b := NewRegistry(nil)
	b.Set(CPU, 10*time.Second)

	a.UpdateFrom(b)
	assert.Equal(t, 10*time.Second, a.periods[CPU])
}

func TestRegistry_UnknownClockIsAlwaysReady(t *testing.T) {
	r := NewRegistry(nil)
	assert.True(t, r.IsReady(Name("not-a-real-clock")))
	assert.NoError(t, r.Use(Name("not-a-real-clock")))
}

func TestRegistry_NewRegistryHonorsOverrides(t *testing.T) {
	r := NewRegistry(map[Name]time.Duration{Ping: 100 * time.Millisecond})
	require.NoError(t, r.Use(Ping))
	time.Sleep(110 * time.Millisecond)
	assert.True(t, r.IsReady(Ping))
}
