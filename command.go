package main

import (
	"encoding/json"
	"fmt"
)

// CommandID identifies one bridge command on the wire. The byte values are
// part of the protocol and must not be renumbered.
type CommandID byte

const (
	CmdPlayNote               CommandID = 0x01
	CmdCreateTrack            CommandID = 0x02
	CmdLoadInstrument         CommandID = 0x03
	CmdSetTempo               CommandID = 0x04
	CmdControlTransport       CommandID = 0x05
	CmdSelectPattern          CommandID = 0x06
	CmdSetMixerLevel          CommandID = 0x07
	CmdCreateChordProgression CommandID = 0x08
	CmdAddMidiEffect          CommandID = 0x09
	CmdAddAudioEffect         CommandID = 0x0A
	CmdSelectChannel          CommandID = 0x0B
	CmdCreateMelody           CommandID = 0x0C
	CmdAutomateParameter      CommandID = 0x0D
	CmdSetArrangement         CommandID = 0x0E
	CmdGetStatus              CommandID = 0x0F

	// Device -> server response classes.
	CmdResponseSuccess CommandID = 0x70
	CmdResponseError   CommandID = 0x71
	CmdAsyncUpdate     CommandID = 0x7F
)

var commandNames = map[CommandID]string{
	CmdPlayNote:               "play_note",
	CmdCreateTrack:            "create_track",
	CmdLoadInstrument:         "load_instrument",
	CmdSetTempo:               "set_tempo",
	CmdControlTransport:       "control_transport",
	CmdSelectPattern:          "select_pattern",
	CmdSetMixerLevel:          "set_mixer_level",
	CmdCreateChordProgression: "create_chord_progression",
	CmdAddMidiEffect:          "add_midi_effect",
	CmdAddAudioEffect:         "add_audio_effect",
	CmdSelectChannel:          "select_channel",
	CmdCreateMelody:           "create_melody",
	CmdAutomateParameter:      "automate_parameter",
	CmdSetArrangement:         "set_arrangement",
	CmdGetStatus:              "get_status",
}

func (id CommandID) String() string {
	if name, ok := commandNames[id]; ok {
		return name
	}
	return fmt.Sprintf("command_0x%02X", byte(id))
}

// commandByName resolves a tool-facing command name to its wire identifier.
func commandByName(name string) (CommandID, bool) {
	for id, n := range commandNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// Payload is the typed argument set of one command. Each command identifier
// has exactly one payload type; the pairing is enforced by commandID().
type Payload interface {
	commandID() CommandID
	validate() error
}

// Command is an immutable (identifier, arguments) pair. Construct it with
// NewCommand so the identifier/payload pairing and argument ranges are
// checked before any MIDI traffic happens.
type Command struct {
	ID   CommandID
	Args Payload
}

func NewCommand(args Payload) (Command, error) {
	if args == nil {
		return Command{}, validationError("command", "missing arguments")
	}
	if err := args.validate(); err != nil {
		return Command{}, err
	}
	return Command{ID: args.commandID(), Args: args}, nil
}

type PlayNoteArgs struct {
	Note          int     `json:"note"`
	Velocity      int     `json:"velocity"`
	DurationBeats float64 `json:"duration_beats"`
}

func (PlayNoteArgs) commandID() CommandID { return CmdPlayNote }

func (a PlayNoteArgs) validate() error {
	if a.Note < 0 || a.Note > 127 {
		return validationError("play_note", "note %d out of range 0-127", a.Note)
	}
	if a.Velocity < 0 || a.Velocity > 127 {
		return validationError("play_note", "velocity %d out of range 0-127", a.Velocity)
	}
	if a.DurationBeats <= 0 {
		return validationError("play_note", "duration must be positive, got %g", a.DurationBeats)
	}
	return nil
}

type ControlTransportArgs struct {
	Action string `json:"action"` // play, stop, record, toggle_play
}

func (ControlTransportArgs) commandID() CommandID { return CmdControlTransport }

func (a ControlTransportArgs) validate() error {
	if _, ok := transportActionValues[a.Action]; !ok {
		return validationError("control_transport", "invalid action %q, use play, stop, record, or toggle_play", a.Action)
	}
	return nil
}

var transportActionValues = map[string]byte{
	"play":        0,
	"stop":        1,
	"record":      2,
	"toggle_play": 3,
}

type SelectPatternArgs struct {
	Pattern int `json:"pattern"` // 1-based
}

func (SelectPatternArgs) commandID() CommandID { return CmdSelectPattern }

func (a SelectPatternArgs) validate() error {
	if a.Pattern < 1 || a.Pattern > 999 {
		return validationError("select_pattern", "pattern %d out of range 1-999", a.Pattern)
	}
	return nil
}

type SetTempoArgs struct {
	BPM float64 `json:"bpm"`
}

func (SetTempoArgs) commandID() CommandID { return CmdSetTempo }

func (a SetTempoArgs) validate() error {
	if a.BPM < minBPM || a.BPM > maxBPM {
		return validationError("set_tempo", "bpm %g out of range %g-%g", a.BPM, minBPM, maxBPM)
	}
	return nil
}

type SetMixerLevelArgs struct {
	Track int     `json:"track"`
	Level float64 `json:"level"` // 0.0-1.0
}

func (SetMixerLevelArgs) commandID() CommandID { return CmdSetMixerLevel }

func (a SetMixerLevelArgs) validate() error {
	if a.Track < 0 || a.Track > 125 {
		return validationError("set_mixer_level", "mixer track %d out of range 0-125", a.Track)
	}
	if a.Level < 0 || a.Level > 1 {
		return validationError("set_mixer_level", "level %g out of range 0.0-1.0", a.Level)
	}
	return nil
}

type SelectChannelArgs struct {
	Index int    `json:"index"`
	Mode  string `json:"mode"` // select, deselect, toggle
}

func (SelectChannelArgs) commandID() CommandID { return CmdSelectChannel }

func (a SelectChannelArgs) validate() error {
	if a.Index < 0 || a.Index > 127 {
		return validationError("select_channel", "channel index %d out of range 0-127", a.Index)
	}
	switch a.Mode {
	case "select", "deselect", "toggle":
		return nil
	}
	return validationError("select_channel", "invalid mode %q, use select, deselect, or toggle", a.Mode)
}

type CreateTrackArgs struct {
	Name string `json:"name"`
	Type string `json:"type"` // instrument, audio, automation
}

func (CreateTrackArgs) commandID() CommandID { return CmdCreateTrack }

func (a CreateTrackArgs) validate() error {
	switch a.Type {
	case "instrument", "audio", "automation":
		return nil
	}
	return validationError("create_track", "invalid track type %q", a.Type)
}

type LoadInstrumentArgs struct {
	Name    string `json:"name"`
	Channel int    `json:"channel"`
}

func (LoadInstrumentArgs) commandID() CommandID { return CmdLoadInstrument }

func (a LoadInstrumentArgs) validate() error {
	if a.Name == "" {
		return validationError("load_instrument", "instrument name must not be empty")
	}
	if a.Channel < 0 || a.Channel > 127 {
		return validationError("load_instrument", "channel %d out of range 0-127", a.Channel)
	}
	return nil
}

type AddAudioEffectArgs struct {
	Track  int    `json:"track"`
	Effect string `json:"effect"`
}

func (AddAudioEffectArgs) commandID() CommandID { return CmdAddAudioEffect }

func (a AddAudioEffectArgs) validate() error {
	if a.Track < 0 || a.Track > 125 {
		return validationError("add_audio_effect", "mixer track %d out of range 0-125", a.Track)
	}
	if a.Effect == "" {
		return validationError("add_audio_effect", "effect name must not be empty")
	}
	return nil
}

type AddMidiEffectArgs struct {
	Channel int    `json:"channel"`
	Effect  string `json:"effect"`
}

func (AddMidiEffectArgs) commandID() CommandID { return CmdAddMidiEffect }

func (a AddMidiEffectArgs) validate() error {
	if a.Channel < 0 || a.Channel > 127 {
		return validationError("add_midi_effect", "channel %d out of range 0-127", a.Channel)
	}
	if a.Effect == "" {
		return validationError("add_midi_effect", "effect name must not be empty")
	}
	return nil
}

type ChordProgressionArgs struct {
	Chords        []string `json:"chords"` // symbols like "C", "G7", "Am", "Fmaj7"
	Channel       int      `json:"channel"`
	Octave        int      `json:"octave"`
	DurationBeats float64  `json:"duration_beats"` // per chord
}

func (ChordProgressionArgs) commandID() CommandID { return CmdCreateChordProgression }

func (a ChordProgressionArgs) validate() error {
	if len(a.Chords) == 0 {
		return validationError("create_chord_progression", "no chords provided")
	}
	for _, sym := range a.Chords {
		if _, err := parseChordSymbol(sym, a.Octave); err != nil {
			return validationError("create_chord_progression", "invalid chord %q: %v", sym, err)
		}
	}
	if a.Channel < 0 || a.Channel > 127 {
		return validationError("create_chord_progression", "channel %d out of range 0-127", a.Channel)
	}
	if a.Octave < 0 || a.Octave > 9 {
		return validationError("create_chord_progression", "octave %d out of range 0-9", a.Octave)
	}
	if a.DurationBeats <= 0 {
		return validationError("create_chord_progression", "duration must be positive, got %g", a.DurationBeats)
	}
	return nil
}

// MelodyNote is one timed note inside a create_melody payload.
type MelodyNote struct {
	Note          int     `json:"note"`
	StartBeats    float64 `json:"start_beats"`
	DurationBeats float64 `json:"duration_beats"`
	Velocity      int     `json:"velocity"`
}

type MelodyArgs struct {
	Notes   []MelodyNote `json:"notes"`
	Channel int          `json:"channel"`
}

func (MelodyArgs) commandID() CommandID { return CmdCreateMelody }

func (a MelodyArgs) validate() error {
	if len(a.Notes) == 0 {
		return validationError("create_melody", "no notes provided")
	}
	for i, n := range a.Notes {
		if n.Note < 0 || n.Note > 127 {
			return validationError("create_melody", "note %d at index %d out of range 0-127", n.Note, i)
		}
		if n.Velocity < 0 || n.Velocity > 127 {
			return validationError("create_melody", "velocity %d at index %d out of range 0-127", n.Velocity, i)
		}
		if n.StartBeats < 0 || n.DurationBeats <= 0 {
			return validationError("create_melody", "bad timing at index %d", i)
		}
	}
	if a.Channel < 0 || a.Channel > 127 {
		return validationError("create_melody", "channel %d out of range 0-127", a.Channel)
	}
	return nil
}

// AutomationPoint is one (time, value) pair of an automation curve.
type AutomationPoint struct {
	TimeBeats float64 `json:"time_beats"`
	Value     float64 `json:"value"` // normalized 0.0-1.0
}

type AutomateParameterArgs struct {
	Track     int               `json:"track"`
	Parameter string            `json:"parameter"`
	Points    []AutomationPoint `json:"points"`
}

func (AutomateParameterArgs) commandID() CommandID { return CmdAutomateParameter }

func (a AutomateParameterArgs) validate() error {
	if a.Parameter == "" {
		return validationError("automate_parameter", "parameter name must not be empty")
	}
	if len(a.Points) == 0 {
		return validationError("automate_parameter", "no automation points provided")
	}
	for i, p := range a.Points {
		if p.TimeBeats < 0 {
			return validationError("automate_parameter", "negative time at point %d", i)
		}
		if p.Value < 0 || p.Value > 1 {
			return validationError("automate_parameter", "value %g at point %d out of range 0.0-1.0", p.Value, i)
		}
	}
	return nil
}

// ArrangementSection places one pattern in the playlist.
type ArrangementSection struct {
	Name       string `json:"name"`
	Pattern    int    `json:"pattern"`
	StartBar   int    `json:"start_bar"`
	LengthBars int    `json:"length_bars"`
}

type SetArrangementArgs struct {
	Sections []ArrangementSection `json:"sections"`
}

func (SetArrangementArgs) commandID() CommandID { return CmdSetArrangement }

func (a SetArrangementArgs) validate() error {
	if len(a.Sections) == 0 {
		return validationError("set_arrangement", "no sections provided")
	}
	for i, s := range a.Sections {
		if s.Pattern < 1 || s.Pattern > 999 {
			return validationError("set_arrangement", "pattern %d at section %d out of range 1-999", s.Pattern, i)
		}
		if s.StartBar < 0 || s.LengthBars < 1 {
			return validationError("set_arrangement", "bad placement at section %d", i)
		}
	}
	return nil
}

type GetStatusArgs struct{}

func (GetStatusArgs) commandID() CommandID { return CmdGetStatus }

func (GetStatusArgs) validate() error { return nil }

// decodePayload reconstructs the typed payload for a command identifier from
// its JSON form. Used by the receiving side after reassembly.
func decodePayload(id CommandID, data []byte) (Payload, error) {
	var args Payload
	switch id {
	case CmdPlayNote:
		args = &PlayNoteArgs{}
	case CmdControlTransport:
		args = &ControlTransportArgs{}
	case CmdSelectPattern:
		args = &SelectPatternArgs{}
	case CmdSetTempo:
		args = &SetTempoArgs{}
	case CmdSetMixerLevel:
		args = &SetMixerLevelArgs{}
	case CmdSelectChannel:
		args = &SelectChannelArgs{}
	case CmdCreateTrack:
		args = &CreateTrackArgs{}
	case CmdLoadInstrument:
		args = &LoadInstrumentArgs{}
	case CmdAddAudioEffect:
		args = &AddAudioEffectArgs{}
	case CmdAddMidiEffect:
		args = &AddMidiEffectArgs{}
	case CmdCreateChordProgression:
		args = &ChordProgressionArgs{}
	case CmdCreateMelody:
		args = &MelodyArgs{}
	case CmdAutomateParameter:
		args = &AutomateParameterArgs{}
	case CmdSetArrangement:
		args = &SetArrangementArgs{}
	case CmdGetStatus:
		args = &GetStatusArgs{}
	default:
		return nil, fmt.Errorf("no payload type for %s", id)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, args); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", id, err)
		}
	}
	return deref(args), nil
}

// deref flattens the pointer forms used for unmarshalling back to the value
// forms the rest of the code works with.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *PlayNoteArgs:
		return *v
	case *ControlTransportArgs:
		return *v
	case *SelectPatternArgs:
		return *v
	case *SetTempoArgs:
		return *v
	case *SetMixerLevelArgs:
		return *v
	case *SelectChannelArgs:
		return *v
	case *CreateTrackArgs:
		return *v
	case *LoadInstrumentArgs:
		return *v
	case *AddAudioEffectArgs:
		return *v
	case *AddMidiEffectArgs:
		return *v
	case *ChordProgressionArgs:
		return *v
	case *MelodyArgs:
		return *v
	case *AutomateParameterArgs:
		return *v
	case *SetArrangementArgs:
		return *v
	case *GetStatusArgs:
		return *v
	}
	return p
}
