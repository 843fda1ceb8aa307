package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
)

func testConfig() Config {
	return Config{
		MidiChannel:         0,
		MaxChunkBytes:       32,
		MaxChunksPerCommand: 64,
		ReassemblyTimeout:   5 * time.Second,
		FeedbackTimeout:     time.Second,
	}
}

// loopback wires a controller and a receiver back to back in memory, the
// way the MIDI ports connect them in production.
func loopback(t *testing.T, daw DawAPI) (*Controller, *Receiver) {
	t.Helper()
	cfg := testConfig()
	log := testLogger()

	var ctrl *Controller
	var recv *Receiver
	serverReasm := NewReassembler(cfg.ReassemblyTimeout, log)

	toDevice := transportFunc(func(msg []byte) error {
		recv.HandleMessage(midi.Message(msg))
		return nil
	})
	toServer := transportFunc(func(msg []byte) error {
		if len(msg) > 0 && msg[0] == sysexStart {
			ctrl.HandleIncoming(serverReasm, msg)
		}
		return nil
	})

	ctrl = NewController(toDevice, cfg, log)
	recv = NewReceiver(daw, toServer, cfg, log)
	return ctrl, recv
}

func TestEndToEndGetStatus(t *testing.T) {
	daw := newMockDaw()
	daw.tempo = 140
	ctrl, _ := loopback(t, daw)

	cmd, err := NewCommand(GetStatusArgs{})
	require.NoError(t, err)

	result := ctrl.Execute(cmd)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "get_status", result.Command)
	// JSON transit turns every number into float64.
	assert.Equal(t, 140.0, result.Data["tempo"])
	assert.Equal(t, 1.0, result.Data["pattern"])
}

func TestEndToEndChordProgressionAcrossManyChunks(t *testing.T) {
	daw := newMockDaw()
	ctrl, _ := loopback(t, daw)

	cmd, err := NewCommand(ChordProgressionArgs{
		Chords:        []string{"C", "G", "Am", "F", "Dm7", "G7", "Cmaj7"},
		Octave:        4,
		DurationBeats: 4,
	})
	require.NoError(t, err)

	result := ctrl.Execute(cmd)
	require.True(t, result.Success, result.Error)
	assert.Len(t, daw.chords, 7)
	assert.Equal(t, []uint8{62, 65, 69, 72}, daw.chords[4]) // Dm7
}

func TestEndToEndCCFastPath(t *testing.T) {
	daw := newMockDaw()
	ctrl, _ := loopback(t, daw)

	cmd, err := NewCommand(SetTempoArgs{BPM: 174})
	require.NoError(t, err)

	result := ctrl.Execute(cmd)
	require.True(t, result.Success)
	assert.InDelta(t, 174, daw.tempo, (maxBPM-minBPM)/127)

	cmd, err = NewCommand(ControlTransportArgs{Action: "play"})
	require.NoError(t, err)
	result = ctrl.Execute(cmd)
	require.True(t, result.Success)
	assert.Equal(t, []string{"play"}, daw.actions)
}

func TestEndToEndDeviceFailureSurfacesAsError(t *testing.T) {
	daw := newMockDaw()
	daw.failWith = fmt.Errorf("mixer offline")
	ctrl, _ := loopback(t, daw)

	cmd, err := NewCommand(GetStatusArgs{})
	require.NoError(t, err)

	result := ctrl.Execute(cmd)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "mixer offline")
}

func TestEndToEndFireAndForgetDoesNotBlock(t *testing.T) {
	daw := newMockDaw()
	ctrl, _ := loopback(t, daw)

	cmd, err := NewCommand(PlayNoteArgs{Note: 60, Velocity: 100, DurationBeats: 1})
	require.NoError(t, err)

	done := make(chan StatusResult, 1)
	go func() { done <- ctrl.Execute(cmd) }()

	select {
	case result := <-done:
		require.True(t, result.Success, result.Error)
		assert.Equal(t, []uint8{60}, daw.notes)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("fire-and-forget command must not wait for feedback")
	}
}

func TestEndToEndSelectChannelPreservesMode(t *testing.T) {
	daw := newMockDaw()
	ctrl, _ := loopback(t, daw)

	for _, mode := range []string{"deselect", "toggle", "select"} {
		cmd, err := NewCommand(SelectChannelArgs{Index: 5, Mode: mode})
		require.NoError(t, err)

		result := ctrl.Execute(cmd)
		require.True(t, result.Success, result.Error)
	}
	assert.Equal(t, []string{"deselect", "toggle", "select"}, daw.modes)
}

func TestCCCommandPushesAsyncStateUpdate(t *testing.T) {
	daw := newMockDaw()
	_, recv := loopback(t, daw)

	sink := &captureTransport{}
	recv.out = sink

	recv.HandleMessage(midi.ControlChange(0, ccSetTempo, 64))
	require.NotEmpty(t, sink.msgs, "a handled CC command must push a state update")

	reasm := NewReassembler(time.Second, testLogger())
	var resp *InboundResponse
	for _, msg := range sink.msgs {
		_, resp = reasm.Accept(msg)
	}
	require.NotNil(t, resp)
	assert.Equal(t, CmdAsyncUpdate, resp.Class)
	assert.InDelta(t, daw.tempo, resp.Data["tempo"], 1e-9)
}

func TestReceiverIgnoresCCOnOtherChannels(t *testing.T) {
	daw := newMockDaw()
	_, recv := loopback(t, daw)

	recv.HandleMessage(midi.ControlChange(5, ccSetTempo, 64))
	assert.Equal(t, 120.0, daw.tempo, "traffic on other channels is not ours")
}

func TestReceiverNotifyAsync(t *testing.T) {
	daw := newMockDaw()
	_, recv := loopback(t, daw)

	// Async pushes have no waiter; they must flow without error or deadlock.
	require.NoError(t, recv.NotifyAsync(map[string]any{"event": "pattern_changed", "pattern": 3}))
}

func TestSendFailureSurfacesTransportError(t *testing.T) {
	cfg := testConfig()
	broken := transportFunc(func([]byte) error { return fmt.Errorf("port closed") })
	ctrl := NewController(broken, cfg, testLogger())

	cmd, err := NewCommand(PlayNoteArgs{Note: 60, Velocity: 100, DurationBeats: 1})
	require.NoError(t, err)

	result := ctrl.Execute(cmd)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "port closed")
}
