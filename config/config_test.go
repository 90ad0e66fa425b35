package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPendingIsPending(t *testing.T) {
	cfg := NewPending("abc")
	assert.True(t, cfg.IsPending())
	assert.Equal(t, int64(0), cfg.PrinterID)
	assert.Equal(t, "0", cfg.Token)
	assert.True(t, cfg.InSetup)
}

func TestNewTokenClearsPendingTokenOnly(t *testing.T) {
	cfg := NewPending("abc")
	cfg.NewToken("real-token")
	assert.Equal(t, "real-token", cfg.Token)
	assert.True(t, cfg.IsPending(), "still pending until printer id is assigned")
}

func TestCompleteSetup(t *testing.T) {
	cfg := NewPending("abc")
	cfg.NewToken("real-token")
	cfg.CompleteSetup(7)
	assert.False(t, cfg.IsPending())
	assert.False(t, cfg.InSetup)
	assert.Equal(t, int64(7), cfg.PrinterID)
}
