package main

import (
	"math"

	"gitlab.com/gomidi/midi/v2"
)

const (
	minBPM = 20.0
	maxBPM = 999.0
)

// Controller numbers used by the CC fast path. One controller per command;
// anything outside this set rides the SysEx path. Only commands whose whole
// payload fits one value byte qualify, which is why select_channel does not:
// its mode argument would not survive the trip.
const (
	ccControlTransport uint8 = 102
	ccSelectPattern    uint8 = 103
	ccSetTempo         uint8 = 105
)

// ccSpec maps one simple command onto a single CC message. Encoding is
// lossy: the scalar argument is clamped and quantized into 0-127.
type ccSpec struct {
	controller uint8
	encode     func(args Payload) uint8
	decode     func(value uint8) Payload
}

var ccSpecs = map[CommandID]ccSpec{
	CmdControlTransport: {
		controller: ccControlTransport,
		encode: func(args Payload) uint8 {
			return transportActionValues[args.(ControlTransportArgs).Action]
		},
		decode: func(value uint8) Payload {
			for action, v := range transportActionValues {
				if v == value {
					return ControlTransportArgs{Action: action}
				}
			}
			return ControlTransportArgs{Action: "stop"}
		},
	},
	CmdSelectPattern: {
		controller: ccSelectPattern,
		encode: func(args Payload) uint8 {
			// Patterns beyond 128 cannot ride a single value byte; clamp.
			return uint8(clampInt(args.(SelectPatternArgs).Pattern-1, 0, 127))
		},
		decode: func(value uint8) Payload {
			return SelectPatternArgs{Pattern: int(value) + 1}
		},
	},
	CmdSetTempo: {
		controller: ccSetTempo,
		encode: func(args Payload) uint8 {
			bpm := math.Min(math.Max(args.(SetTempoArgs).BPM, minBPM), maxBPM)
			return uint8(math.Round((bpm - minBPM) * 127 / (maxBPM - minBPM)))
		},
		decode: func(value uint8) Payload {
			return SetTempoArgs{BPM: minBPM + float64(value)*(maxBPM-minBPM)/127}
		},
	},
}

var ccByController = func() map[uint8]CommandID {
	m := make(map[uint8]CommandID, len(ccSpecs))
	for id, spec := range ccSpecs {
		m[spec.controller] = id
	}
	return m
}()

// EncodeCC renders a simple command as one 3-byte CC message. The second
// return is false when the command has no CC mapping and must use SysEx.
func EncodeCC(channel uint8, cmd Command) (midi.Message, bool) {
	spec, ok := ccSpecs[cmd.ID]
	if !ok {
		return nil, false
	}
	return midi.ControlChange(channel, spec.controller, spec.encode(cmd.Args)), true
}

// DecodeCC reverses EncodeCC. Unrecognized controller numbers return false
// rather than an error so unrelated MIDI traffic on the port is tolerated.
func DecodeCC(controller, value uint8) (Command, bool) {
	id, ok := ccByController[controller]
	if !ok {
		return Command{}, false
	}
	return Command{ID: id, Args: ccSpecs[id].decode(value & 0x7F)}, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
