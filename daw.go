package main

import (
	"fmt"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

// DawAPI is the DAW-facing surface the dispatcher drives. In production the
// operations run inside FL Studio's scripting host; MidiDaw below is the
// bridge-side stand-in that renders note commands as live MIDI and records
// the control state it was told about.
type DawAPI interface {
	PlayNote(note, velocity uint8, durationBeats float64) error
	PlayChord(notes []uint8, durationBeats float64) error
	SetTempo(bpm float64) error
	Transport(action string) error
	SelectPattern(pattern int) error
	SetMixerLevel(track int, level float64) error
	SelectChannel(index int, mode string) error
	AddAudioEffect(track int, effect string) error
	Status() (map[string]any, error)
}

// MidiDaw plays notes on a MIDI output and tracks transport/mixer state.
type MidiDaw struct {
	out     Transport
	channel uint8

	tempo       float64
	playing     bool
	pattern     int
	selected    int
	mixerLevels map[int]float64
	effects     map[int][]string
}

func NewMidiDaw(out Transport, channel uint8) *MidiDaw {
	return &MidiDaw{
		out:         out,
		channel:     channel,
		tempo:       120,
		pattern:     1,
		mixerLevels: make(map[int]float64),
		effects:     make(map[int][]string),
	}
}

func (d *MidiDaw) beats(n float64) time.Duration {
	return time.Duration(n * float64(time.Minute) / d.tempo)
}

func (d *MidiDaw) PlayNote(note, velocity uint8, durationBeats float64) error {
	if err := d.out.Send(midi.NoteOn(d.channel, note, velocity)); err != nil {
		return fmt.Errorf("note on failed for %d: %w", note, err)
	}
	time.Sleep(d.beats(durationBeats))
	if err := d.out.Send(midi.NoteOff(d.channel, note)); err != nil {
		return fmt.Errorf("note off failed for %d: %w", note, err)
	}
	return nil
}

func (d *MidiDaw) PlayChord(notes []uint8, durationBeats float64) error {
	for _, n := range notes {
		if err := d.out.Send(midi.NoteOn(d.channel, n, 100)); err != nil {
			return fmt.Errorf("note on failed for %d: %w", n, err)
		}
	}
	time.Sleep(d.beats(durationBeats))
	for _, n := range notes {
		if err := d.out.Send(midi.NoteOff(d.channel, n)); err != nil {
			return fmt.Errorf("note off failed for %d: %w", n, err)
		}
	}
	return nil
}

func (d *MidiDaw) SetTempo(bpm float64) error {
	d.tempo = bpm
	return nil
}

func (d *MidiDaw) Transport(action string) error {
	switch action {
	case "play", "record":
		d.playing = true
	case "stop":
		d.playing = false
	case "toggle_play":
		d.playing = !d.playing
	default:
		return fmt.Errorf("invalid transport action %q", action)
	}
	return nil
}

func (d *MidiDaw) SelectPattern(pattern int) error {
	d.pattern = pattern
	return nil
}

func (d *MidiDaw) SetMixerLevel(track int, level float64) error {
	d.mixerLevels[track] = level
	return nil
}

func (d *MidiDaw) SelectChannel(index int, mode string) error {
	switch mode {
	case "select", "toggle":
		d.selected = index
	case "deselect":
		if d.selected == index {
			d.selected = 0
		}
	default:
		return fmt.Errorf("invalid select mode %q", mode)
	}
	return nil
}

func (d *MidiDaw) AddAudioEffect(track int, effect string) error {
	d.effects[track] = append(d.effects[track], effect)
	return nil
}

func (d *MidiDaw) Status() (map[string]any, error) {
	return map[string]any{
		"tempo":            d.tempo,
		"is_playing":       d.playing,
		"pattern":          d.pattern,
		"selected_channel": d.selected,
	}, nil
}
