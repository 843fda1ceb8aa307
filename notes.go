package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// parseNoteToken turns a note name like "C4", "F#3" or "Bb5" into a MIDI
// note number. "r"/"rest" tokens report isRest.
func parseNoteToken(tok string) (uint8, bool, error) {
	t := strings.TrimSpace(tok)
	if t == "" {
		return 0, false, fmt.Errorf("empty token")
	}

	if strings.EqualFold(t, "r") || strings.EqualFold(t, "rest") {
		return 0, true, nil
	}

	if len(t) < 2 {
		return 0, false, fmt.Errorf("too short")
	}

	semitone, rest, err := parsePitchClass(t)
	if err != nil {
		return 0, false, err
	}
	if rest == "" {
		return 0, false, fmt.Errorf("missing octave")
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false, fmt.Errorf("invalid octave: %w", err)
	}

	n := 12*(octave+1) + semitone
	if n < 0 || n > 127 {
		return 0, false, fmt.Errorf("MIDI note out of range: %d", n)
	}
	return uint8(n), false, nil
}

// parsePitchClass consumes the leading note letter plus accidental and
// returns the semitone offset within the octave and the unconsumed tail.
func parsePitchClass(t string) (int, string, error) {
	base := strings.ToUpper(string(t[0]))
	rest := t[1:]

	accidental := 0
	if len(rest) > 0 {
		switch rest[0] {
		case '#':
			accidental = 1
			rest = rest[1:]
		case 'b':
			accidental = -1
			rest = rest[1:]
		}
	}

	var semitone int
	switch base {
	case "C":
		semitone = 0
	case "D":
		semitone = 2
	case "E":
		semitone = 4
	case "F":
		semitone = 5
	case "G":
		semitone = 7
	case "A":
		semitone = 9
	case "B":
		semitone = 11
	default:
		return 0, "", fmt.Errorf("invalid note letter %q", base)
	}

	return semitone + accidental, rest, nil
}

// parseChordSymbol expands a chord symbol like "C", "Am", "G7", "Fmaj7" or
// "Bdim" into the MIDI notes of the chord voiced at the given octave.
func parseChordSymbol(sym string, octave int) ([]uint8, error) {
	t := strings.TrimSpace(sym)
	if t == "" {
		return nil, fmt.Errorf("empty chord symbol")
	}

	semitone, rest, err := parsePitchClass(t)
	if err != nil {
		return nil, err
	}

	intervals, err := chordIntervals(rest)
	if err != nil {
		return nil, err
	}

	root := 12*(octave+1) + semitone
	notes := make([]uint8, 0, len(intervals))
	for _, iv := range intervals {
		n := root + iv
		if n < 0 || n > 127 {
			return nil, fmt.Errorf("chord note out of MIDI range: %d", n)
		}
		notes = append(notes, uint8(n))
	}
	return notes, nil
}

// chordIntervals maps the quality suffix of a chord symbol to semitone
// offsets from the root.
func chordIntervals(quality string) ([]int, error) {
	switch strings.ToLower(quality) {
	case "", "maj":
		return []int{0, 4, 7}, nil
	case "m", "min":
		return []int{0, 3, 7}, nil
	case "7":
		return []int{0, 4, 7, 10}, nil
	case "maj7":
		return []int{0, 4, 7, 11}, nil
	case "m7", "min7":
		return []int{0, 3, 7, 10}, nil
	case "dim":
		return []int{0, 3, 6}, nil
	case "aug":
		return []int{0, 4, 8}, nil
	case "sus2":
		return []int{0, 2, 7}, nil
	case "sus4":
		return []int{0, 5, 7}, nil
	}
	return nil, fmt.Errorf("unknown chord quality %q", quality)
}

// splitNoteList tokenizes a text list of notes or chords separated by
// whitespace, commas, semicolons or bars.
func splitNoteList(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == '|'
	})
}
