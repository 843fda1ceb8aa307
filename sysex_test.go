package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureTransport records sent messages; a non-nil err fails every send.
type captureTransport struct {
	msgs [][]byte
	err  error
}

func (c *captureTransport) Send(msg []byte) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, append([]byte(nil), msg...))
	return nil
}

// transportFunc adapts a function to the Transport interface.
type transportFunc func(msg []byte) error

func (f transportFunc) Send(msg []byte) error { return f(msg) }

func TestPack7bitRoundTrip(t *testing.T) {
	allBytes := make([]byte, 256)
	for i := range allBytes {
		allBytes[i] = byte(i)
	}

	cases := [][]byte{
		{},
		{0x00},
		{0xFF},
		[]byte("hello"),
		[]byte(`{"note":60,"text":"übergröße"}`),
		allBytes,
	}

	for _, in := range cases {
		packed := pack7bit(in)
		for _, b := range packed {
			require.Less(t, b, byte(0x80), "packed stream must be 7-bit safe")
		}
		out, err := unpack7bit(packed)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestUnpack7bitTruncated(t *testing.T) {
	packed := pack7bit([]byte("some payload"))

	_, err := unpack7bit(packed[:len(packed)-4])
	require.Error(t, err)

	_, err = unpack7bit([]byte{0x01})
	require.Error(t, err)
}

func TestFrameProducesValidChunks(t *testing.T) {
	f := NewFramer(16, 64)

	chunks, err := f.Frame(CmdCreateChordProgression, 7, ChordProgressionArgs{
		Chords:        []string{"C", "G", "Am", "F"},
		Octave:        4,
		DurationBeats: 4,
	})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1, "a chord progression should not fit one 16-byte chunk")

	var tag byte
	for i, chunk := range chunks {
		env, ours, err := parseChunk(chunk)
		require.NoError(t, err)
		require.True(t, ours)
		assert.Equal(t, CmdCreateChordProgression, env.Command)
		assert.Equal(t, i, env.Seq)
		assert.Equal(t, len(chunks), env.Total)
		assert.LessOrEqual(t, len(env.Payload), 16)
		if i == 0 {
			tag = env.Tag
		} else {
			assert.Equal(t, tag, env.Tag, "all chunks of one command share a tag")
		}
	}
}

func TestFrameTagsDiffer(t *testing.T) {
	f := NewFramer(64, 8)

	first, err := f.Frame(CmdGetStatus, 1, GetStatusArgs{})
	require.NoError(t, err)
	second, err := f.Frame(CmdGetStatus, 2, GetStatusArgs{})
	require.NoError(t, err)

	envA, _, _ := parseChunk(first[0])
	envB, _, _ := parseChunk(second[0])
	assert.NotEqual(t, envA.Tag, envB.Tag)
}

func TestSendRejectsOversizedPayloadBeforeTransmitting(t *testing.T) {
	f := NewFramer(8, 2)
	sink := &captureTransport{}

	big := make([]string, 40)
	for i := range big {
		big[i] = "Cmaj7"
	}

	err := f.Send(sink, CmdCreateChordProgression, 0, ChordProgressionArgs{
		Chords: big, Octave: 4, DurationBeats: 4,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPayloadTooLarge), "got %v", err)
	assert.Empty(t, sink.msgs, "nothing may hit the wire after a size rejection")
}

func TestSendEmitsChunksInOrder(t *testing.T) {
	f := NewFramer(16, 64)
	sink := &captureTransport{}

	err := f.Send(sink, CmdPlayNote, 0, PlayNoteArgs{Note: 60, Velocity: 100, DurationBeats: 1})
	require.NoError(t, err)
	require.NotEmpty(t, sink.msgs)

	for i, msg := range sink.msgs {
		env, ours, err := parseChunk(msg)
		require.NoError(t, err)
		require.True(t, ours)
		assert.Equal(t, i, env.Seq)
	}
}

func TestFramerCapsChunkBudgetAtSevenBits(t *testing.T) {
	// seq and total are single SysEx data bytes; a configured budget above
	// 127 must not let header bytes >= 0x80 onto the wire.
	f := NewFramer(4, 200)

	chords := make([]string, 60)
	for i := range chords {
		chords[i] = "Cmaj7"
	}
	_, err := f.Frame(CmdCreateChordProgression, 0, ChordProgressionArgs{
		Chords: chords, Octave: 4, DurationBeats: 4,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPayloadTooLarge), "got %v", err)
}

func TestChunkBytesAre7BitSafe(t *testing.T) {
	f := NewFramer(8, 127)

	chunks, err := f.Frame(CmdCreateChordProgression, 0, ChordProgressionArgs{
		Chords: []string{"C", "G", "Am", "F", "Dm7", "G7"}, Octave: 4, DurationBeats: 4,
	})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		for _, b := range chunk[1 : len(chunk)-1] {
			assert.Less(t, b, byte(0x80), "every byte between F0 and F7 must stay below 0x80")
		}
	}
}

func TestParseChunkForeignTraffic(t *testing.T) {
	cases := [][]byte{
		{0xF0, 0x3E, 0x13, 0x00, 0x00, 0x00, 0x01, 0xF7}, // another manufacturer
		{0xF0, 0x7D, 0x02, 0x01, 0x00, 0x00, 0x01, 0xF7}, // another product
		{0xF0, 0x7D},    // truncated
		{0x90, 60, 100}, // not SysEx at all
	}
	for _, raw := range cases {
		_, ours, err := parseChunk(raw)
		assert.False(t, ours)
		assert.NoError(t, err)
	}
}

func TestParseChunkMalformed(t *testing.T) {
	// total of zero
	_, ours, err := parseChunk([]byte{0xF0, 0x7D, 0x01, 0x01, 0x05, 0x00, 0x00, 0xF7})
	assert.True(t, ours)
	require.Error(t, err)

	// seq beyond total
	_, ours, err = parseChunk([]byte{0xF0, 0x7D, 0x01, 0x01, 0x05, 0x02, 0x02, 0xF7})
	assert.True(t, ours)
	require.Error(t, err)
}
