package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	cfg := LoadConfig()
	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	sub := "mcp"
	if len(os.Args) > 1 {
		sub = os.Args[1]
	}

	switch sub {
	case "ports":
		fmt.Println("Outputs:")
		for _, out := range midi.GetOutPorts() {
			fmt.Printf("  [%d] %s\n", out.Number(), out.String())
		}
		fmt.Println("Inputs:")
		for _, in := range midi.GetInPorts() {
			fmt.Printf("  [%d] %s\n", in.Number(), in.String())
		}
		midi.CloseDriver()

	case "mcp":
		bridge, closer, err := OpenBridge(cfg.MidiPortName, log)
		if err != nil {
			log.Fatalw("failed to open MIDI output", "port", cfg.MidiPortName, "error", err)
		}
		defer closer()

		ctrl := NewController(bridge, cfg, log)
		reasm := NewReassembler(cfg.ReassemblyTimeout, log)

		stop, err := bridge.Listen(cfg.MidiPortName, func(msg midi.Message) {
			if len(msg) > 0 && msg[0] == sysexStart {
				ctrl.HandleIncoming(reasm, msg)
			}
		})
		if err != nil {
			// Replies never arrive without an input port. Commands still work.
			log.Warnw("feedback unavailable", "error", err)
		} else {
			defer stop()
		}

		runMCP(ctrl, log)

	case "device":
		bridge, closer, err := OpenBridge(cfg.MidiPortName, log)
		if err != nil {
			log.Fatalw("failed to open MIDI output", "port", cfg.MidiPortName, "error", err)
		}
		defer closer()

		daw := NewMidiDaw(bridge, cfg.MidiChannel)
		recv := NewReceiver(daw, bridge, cfg, log)

		stop, err := bridge.Listen(cfg.MidiPortName, recv.HandleMessage)
		if err != nil {
			log.Fatalw("failed to open MIDI input", "port", cfg.MidiPortName, "error", err)
		}
		defer stop()

		log.Infow("device emulator running", "port", cfg.MidiPortName, "channel", cfg.MidiChannel)
		waitForInterrupt()

	case "play":
		bridge, closer, err := OpenBridge(cfg.MidiPortName, log)
		if err != nil {
			log.Fatalw("failed to open MIDI output", "port", cfg.MidiPortName, "error", err)
		}
		defer closer()

		ctrl := NewController(bridge, cfg, log)
		if err := playFromArgs(ctrl, os.Args[2:]); err != nil {
			log.Fatalw("play failed", "error", err)
		}

	default:
		log.Fatalf("unknown command %q, use mcp, device, ports or play", sub)
	}
}

func waitForInterrupt() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
