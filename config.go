package main

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the runtime options for the bridge. Values come from defaults,
// an optional flstudiomcp.yaml next to the binary, and FLSTUDIO_MCP_*
// environment variables, in increasing precedence.
type Config struct {
	MidiPortName string
	MidiChannel  uint8

	MaxChunkBytes       int
	MaxChunksPerCommand int
	ReassemblyTimeout   time.Duration
	FeedbackTimeout     time.Duration

	LogLevel string
}

func LoadConfig() Config {
	v := viper.New()
	v.SetEnvPrefix("flstudio_mcp")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("midi.port_name", "IAC Driver MCP Bridge")
	v.SetDefault("midi.channel", 0)
	// 240 payload bytes keeps each message under common SysEx buffer limits.
	v.SetDefault("sysex.max_chunk_bytes", 240)
	v.SetDefault("sysex.max_chunks_per_command", 64)
	v.SetDefault("sysex.reassembly_timeout_seconds", 5)
	v.SetDefault("feedback.timeout_seconds", 5)
	v.SetDefault("log.level", "info")

	v.SetConfigName("flstudiomcp")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/flstudiomcp")
	_ = v.ReadInConfig() // config file is optional

	return Config{
		MidiPortName:        v.GetString("midi.port_name"),
		MidiChannel:         uint8(v.GetInt("midi.channel") & 0x0F),
		MaxChunkBytes:       v.GetInt("sysex.max_chunk_bytes"),
		MaxChunksPerCommand: v.GetInt("sysex.max_chunks_per_command"),
		ReassemblyTimeout:   time.Duration(v.GetInt("sysex.reassembly_timeout_seconds")) * time.Second,
		FeedbackTimeout:     time.Duration(v.GetInt("feedback.timeout_seconds")) * time.Second,
		LogLevel:            v.GetString("log.level"),
	}
}
