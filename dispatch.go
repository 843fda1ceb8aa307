package main

import (
	"fmt"

	"go.uber.org/zap"
)

// StatusResult is the outcome of one command, surfaced back to the caller
// as the tool-call response.
type StatusResult struct {
	Command string         `json:"command"`
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func successResult(id CommandID, data map[string]any) StatusResult {
	return StatusResult{Command: id.String(), Success: true, Data: data}
}

func failureResult(id CommandID, err error) StatusResult {
	return StatusResult{Command: id.String(), Success: false, Error: err.Error()}
}

// HandlerFunc executes one reconstructed command against the DAW surface.
type HandlerFunc func(daw DawAPI, args Payload) (map[string]any, error)

// Dispatcher routes reconstructed commands to their handlers. The routing
// table is built once at construction, so the set of known identifiers is
// fixed before the first message arrives. The dispatcher holds no per-command
// state; it is a routing function plus error translation.
type Dispatcher struct {
	daw      DawAPI
	handlers map[CommandID]HandlerFunc
	log      *zap.SugaredLogger
}

func NewDispatcher(daw DawAPI, log *zap.SugaredLogger) *Dispatcher {
	d := &Dispatcher{
		daw:      daw,
		handlers: make(map[CommandID]HandlerFunc),
		log:      log,
	}

	d.handlers[CmdPlayNote] = handlePlayNote
	d.handlers[CmdControlTransport] = handleControlTransport
	d.handlers[CmdSelectPattern] = handleSelectPattern
	d.handlers[CmdSetTempo] = handleSetTempo
	d.handlers[CmdSetMixerLevel] = handleSetMixerLevel
	d.handlers[CmdSelectChannel] = handleSelectChannel
	d.handlers[CmdAddAudioEffect] = handleAddAudioEffect
	d.handlers[CmdCreateChordProgression] = handleChordProgression
	d.handlers[CmdGetStatus] = handleGetStatus

	// The original device script never implemented these; their wire
	// encoding is fixed but the DAW-side behavior is unresolved.
	for _, id := range []CommandID{
		CmdCreateTrack, CmdLoadInstrument, CmdAddMidiEffect,
		CmdCreateMelody, CmdAutomateParameter, CmdSetArrangement,
	} {
		d.handlers[id] = notImplemented
	}

	return d
}

// Dispatch runs the handler for a command and converts every failure mode,
// including handler panics, into a StatusResult. It never raises.
func (d *Dispatcher) Dispatch(cmd *InboundCommand) (result StatusResult) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Errorw("handler panicked", "command", cmd.ID.String(), "panic", rec)
			result = failureResult(cmd.ID, fmt.Errorf("handler panicked: %v", rec))
		}
	}()

	handler, ok := d.handlers[cmd.ID]
	if !ok {
		return failureResult(cmd.ID, fmt.Errorf("unknown command %s", cmd.ID))
	}

	data, err := handler(d.daw, cmd.Args)
	if err != nil {
		d.log.Warnw("command failed", "command", cmd.ID.String(), "error", err)
		return failureResult(cmd.ID, err)
	}
	return successResult(cmd.ID, data)
}

// Known reports whether an identifier has a registered handler.
func (d *Dispatcher) Known(id CommandID) bool {
	_, ok := d.handlers[id]
	return ok
}

func handlePlayNote(daw DawAPI, args Payload) (map[string]any, error) {
	a, err := argsAs[PlayNoteArgs](args)
	if err != nil {
		return nil, err
	}
	if err := daw.PlayNote(uint8(a.Note), uint8(a.Velocity), a.DurationBeats); err != nil {
		return nil, dawError("play_note", err)
	}
	return map[string]any{"note": a.Note, "velocity": a.Velocity}, nil
}

func handleControlTransport(daw DawAPI, args Payload) (map[string]any, error) {
	a, err := argsAs[ControlTransportArgs](args)
	if err != nil {
		return nil, err
	}
	if err := daw.Transport(a.Action); err != nil {
		return nil, dawError("control_transport", err)
	}
	return map[string]any{"action": a.Action}, nil
}

func handleSelectPattern(daw DawAPI, args Payload) (map[string]any, error) {
	a, err := argsAs[SelectPatternArgs](args)
	if err != nil {
		return nil, err
	}
	if err := daw.SelectPattern(a.Pattern); err != nil {
		return nil, dawError("select_pattern", err)
	}
	return map[string]any{"pattern": a.Pattern}, nil
}

func handleSetTempo(daw DawAPI, args Payload) (map[string]any, error) {
	a, err := argsAs[SetTempoArgs](args)
	if err != nil {
		return nil, err
	}
	if err := daw.SetTempo(a.BPM); err != nil {
		return nil, dawError("set_tempo", err)
	}
	return map[string]any{"bpm": a.BPM}, nil
}

func handleSetMixerLevel(daw DawAPI, args Payload) (map[string]any, error) {
	a, err := argsAs[SetMixerLevelArgs](args)
	if err != nil {
		return nil, err
	}
	if err := daw.SetMixerLevel(a.Track, a.Level); err != nil {
		return nil, dawError("set_mixer_level", err)
	}
	return map[string]any{"track": a.Track, "level": a.Level}, nil
}

func handleSelectChannel(daw DawAPI, args Payload) (map[string]any, error) {
	a, err := argsAs[SelectChannelArgs](args)
	if err != nil {
		return nil, err
	}
	if err := daw.SelectChannel(a.Index, a.Mode); err != nil {
		return nil, dawError("select_channel", err)
	}
	return map[string]any{"index": a.Index, "mode": a.Mode}, nil
}

func handleAddAudioEffect(daw DawAPI, args Payload) (map[string]any, error) {
	a, err := argsAs[AddAudioEffectArgs](args)
	if err != nil {
		return nil, err
	}
	if err := daw.AddAudioEffect(a.Track, a.Effect); err != nil {
		return nil, dawError("add_audio_effect", err)
	}
	return map[string]any{"track": a.Track, "effect": a.Effect}, nil
}

// handleChordProgression expands each chord symbol into its note set and
// plays them in sequence, each held for the requested duration.
func handleChordProgression(daw DawAPI, args Payload) (map[string]any, error) {
	a, err := argsAs[ChordProgressionArgs](args)
	if err != nil {
		return nil, err
	}
	played := 0
	for _, sym := range a.Chords {
		notes, err := parseChordSymbol(sym, a.Octave)
		if err != nil {
			return nil, validationError("create_chord_progression", "invalid chord %q: %v", sym, err)
		}
		if err := daw.PlayChord(notes, a.DurationBeats); err != nil {
			return nil, dawError("create_chord_progression", err)
		}
		played++
	}
	return map[string]any{"chords_played": played}, nil
}

func handleGetStatus(daw DawAPI, args Payload) (map[string]any, error) {
	data, err := daw.Status()
	if err != nil {
		return nil, dawError("get_status", err)
	}
	return data, nil
}

func notImplemented(_ DawAPI, args Payload) (map[string]any, error) {
	return nil, fmt.Errorf("command %s is not implemented on the DAW side", args.commandID())
}

// argsAs narrows a payload to the handler's expected type.
func argsAs[T Payload](args Payload) (T, error) {
	a, ok := args.(T)
	if !ok {
		var zero T
		return zero, validationError(zero.commandID().String(), "unexpected argument type %T", args)
	}
	return a, nil
}
