package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNoteToken(t *testing.T) {
	tests := []struct {
		token   string
		want    uint8
		rest    bool
		wantErr bool
	}{
		{"C4", 60, false, false},
		{"c4", 60, false, false},
		{"A4", 69, false, false},
		{"F#3", 54, false, false},
		{"Bb5", 82, false, false},
		{"C-1", 0, false, false},
		{"G9", 127, false, false},
		{"r", 0, true, false},
		{"REST", 0, true, false},
		{"", 0, false, true},
		{"C", 0, false, true},
		{"H4", 0, false, true},
		{"Cx", 0, false, true},
		{"A12", 0, false, true}, // above MIDI range
	}

	for _, tt := range tests {
		n, isRest, err := parseNoteToken(tt.token)
		if tt.wantErr {
			assert.Error(t, err, "token %q", tt.token)
			continue
		}
		require.NoError(t, err, "token %q", tt.token)
		assert.Equal(t, tt.rest, isRest, "token %q", tt.token)
		if !tt.rest {
			assert.Equal(t, tt.want, n, "token %q", tt.token)
		}
	}
}

func TestParseChordSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   []uint8
	}{
		{"C", []uint8{60, 64, 67}},
		{"Cmaj", []uint8{60, 64, 67}},
		{"Am", []uint8{69, 72, 76}},
		{"G7", []uint8{67, 71, 74, 77}},
		{"Fmaj7", []uint8{65, 69, 72, 76}},
		{"Dm7", []uint8{62, 65, 69, 72}},
		{"Bdim", []uint8{71, 74, 77}},
		{"Caug", []uint8{60, 64, 68}},
		{"Dsus2", []uint8{62, 64, 69}},
		{"Gsus4", []uint8{67, 72, 74}},
		{"F#m", []uint8{66, 69, 73}},
		{"Bb7", []uint8{70, 74, 77, 80}},
	}

	for _, tt := range tests {
		got, err := parseChordSymbol(tt.symbol, 4)
		require.NoError(t, err, "symbol %q", tt.symbol)
		assert.Equal(t, tt.want, got, "symbol %q", tt.symbol)
	}
}

func TestParseChordSymbolErrors(t *testing.T) {
	for _, sym := range []string{"", "Xm", "Cstrange", "G13"} {
		_, err := parseChordSymbol(sym, 4)
		assert.Error(t, err, "symbol %q", sym)
	}
}

func TestParseChordSymbolOctaveShift(t *testing.T) {
	low, err := parseChordSymbol("C", 2)
	require.NoError(t, err)
	high, err := parseChordSymbol("C", 5)
	require.NoError(t, err)
	assert.Equal(t, low[0]+36, high[0])
}

func TestSplitNoteList(t *testing.T) {
	assert.Equal(t, []string{"C", "G", "Am", "F"}, splitNoteList("C G Am F"))
	assert.Equal(t, []string{"C", "G", "Am", "F"}, splitNoteList("C, G; Am | F"))
	assert.Empty(t, splitNoteList("   "))
}
