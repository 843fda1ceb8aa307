package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "IAC Driver MCP Bridge", cfg.MidiPortName)
	assert.Equal(t, uint8(0), cfg.MidiChannel)
	assert.Equal(t, 240, cfg.MaxChunkBytes)
	assert.Equal(t, 64, cfg.MaxChunksPerCommand)
	assert.Equal(t, 5*time.Second, cfg.ReassemblyTimeout)
	assert.Equal(t, 5*time.Second, cfg.FeedbackTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("FLSTUDIO_MCP_MIDI_PORT_NAME", "loopMIDI Port")
	t.Setenv("FLSTUDIO_MCP_MIDI_CHANNEL", "9")
	t.Setenv("FLSTUDIO_MCP_LOG_LEVEL", "debug")

	cfg := LoadConfig()
	assert.Equal(t, "loopMIDI Port", cfg.MidiPortName)
	assert.Equal(t, uint8(9), cfg.MidiChannel)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigChannelMasked(t *testing.T) {
	t.Setenv("FLSTUDIO_MCP_MIDI_CHANNEL", "18")

	cfg := LoadConfig()
	assert.Equal(t, uint8(2), cfg.MidiChannel, "MIDI channels occupy four bits")
}
