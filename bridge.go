package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Bridge owns the MIDI output port and the SysEx input listener. It is the
// sole path to the transport; everything above it sends through the
// Transport interface.
type Bridge struct {
	out drivers.Out
	log *zap.SugaredLogger
}

// OpenBridge opens the output port whose name contains the configured
// fragment. The returned closer releases the port and the driver.
func OpenBridge(portName string, log *zap.SugaredLogger) (*Bridge, func(), error) {
	portIdx, err := findOutPort(portName)
	if err != nil {
		return nil, nil, err
	}

	outs, err := drivers.Outs()
	if err != nil {
		return nil, nil, err
	}
	out := outs[portIdx]
	if err := out.Open(); err != nil {
		return nil, nil, err
	}

	closer := func() {
		_ = out.Close()
		drivers.Close()
	}
	log.Infow("opened MIDI output port", "port", out.String())
	return &Bridge{out: out, log: log}, closer, nil
}

// Send transmits raw MIDI bytes on the output port, reopening it if needed.
func (b *Bridge) Send(msg []byte) error {
	if !b.out.IsOpen() {
		if err := b.out.Open(); err != nil {
			return transportError("open output", err)
		}
	}
	if err := b.out.Send(msg); err != nil {
		return transportError("send", err)
	}
	return nil
}

// Listen starts a listener on the input port matching the name fragment,
// feeding every message to handle. Returns a stop function.
func (b *Bridge) Listen(portName string, handle func(msg midi.Message)) (func(), error) {
	inIdx, err := findInPort(portName)
	if err != nil {
		return nil, err
	}
	inPort := midi.GetInPorts()[inIdx]

	stop, err := midi.ListenTo(inPort, func(msg midi.Message, _ int32) {
		handle(msg)
	}, midi.UseSysEx(), midi.SysExBufferSize(4096))
	if err != nil {
		return nil, transportError("listen", err)
	}
	b.log.Infow("listening on MIDI input", "port", inPort.String())
	return stop, nil
}

func findOutPort(nameFragment string) (int, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return -1, fmt.Errorf("no MIDI outputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), lower) {
			return out.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI output contains %q", nameFragment)
}

func findInPort(nameFragment string) (int, error) {
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return -1, fmt.Errorf("no MIDI inputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), lower) {
			return in.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI input contains %q", nameFragment)
}
