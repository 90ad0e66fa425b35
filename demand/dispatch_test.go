package demand

import (
	"testing"

	"github.com/printerlink/agent/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_PsuKeepaliveReachesListener(t *testing.T) {
	bus := events.NewBus()
	var got PsuControl
	called := false
	bus.Subscribe(Topic(PsuKeepalive), 0, events.UniquenessNone, func(payload any) error {
		called = true
		got = payload.(PsuControl)
		return nil
	})

	env, err := events.DecodeInbound([]byte(`{"type":"demand","data":{"demand":"psu_keepalive"}}`))
	require.NoError(t, err)

	Dispatch(bus, env, nil)
	assert.True(t, called)
	assert.Equal(t, PsuControl{On: true}, got)
}

func TestDispatch_UnknownDemandDoesNotPanic(t *testing.T) {
	bus := events.NewBus()
	env, err := events.DecodeInbound([]byte(`{"type":"demand","data":{"demand":"not_a_real_demand"}}`))
	require.NoError(t, err)

	assert.NotPanics(t, func() { Dispatch(bus, env, nil) })
}

func TestDispatch_MalformedEnvelopeDoesNotPanic(t *testing.T) {
	bus := events.NewBus()
	env := &events.InboundEnvelope{Type: "demand", Data: []byte(`not json`)}
	assert.NotPanics(t, func() { Dispatch(bus, env, nil) })
}
