package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_OmitsForInSingleClientMode(t *testing.T) {
	res := &BuildResult{Data: map[string]any{"bed": []int{27, 0}}}
	raw, err := Marshal("temps", "", res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"temps","data":{"bed":[27,0]}}`, string(raw))
}

func TestMarshal_IncludesForInMultiplexMode(t *testing.T) {
	res := &BuildResult{Data: map[string]any{"bed": []int{27, 0}}}
	raw, err := Marshal("temps", "pid-1", res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"temps","for":"pid-1","data":{"bed":[27,0]}}`, string(raw))
}

func TestDecodeInbound_MostEvents(t *testing.T) {
	env, err := DecodeInbound([]byte(`{"type":"pong","data":{"ping":123}}`))
	require.NoError(t, err)
	assert.Equal(t, "pong", env.Type)

	var payload struct {
		Ping int `json:"ping"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, 123, payload.Ping)
}

func TestDecodeInbound_Demand(t *testing.T) {
	env, err := DecodeInbound([]byte(`{"type":"demand","data":{"demand":"psu_keepalive"}}`))
	require.NoError(t, err)
	assert.Equal(t, "demand", env.Type)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "psu_keepalive", payload["demand"])
}

func TestDecodeInbound_MalformedJSON(t *testing.T) {
	_, err := DecodeInbound([]byte(`not json`))
	assert.Error(t, err)
}
