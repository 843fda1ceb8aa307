package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

func runMCP(ctrl *Controller, log *zap.SugaredLogger) {

	s := server.NewMCPServer(
		"FL Studio MCP",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	// runCommand validates, executes and renders one command as JSON text.
	runCommand := func(args Payload) (*mcp.CallToolResult, error) {
		cmd, err := NewCommand(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result := ctrl.Execute(cmd)
		asJson, err := json.MarshalIndent(&result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result to JSON: %v", err)
		}
		return mcp.NewToolResultText(string(asJson)), nil
	}

	playNoteTool := mcp.NewTool("flstudio_play-note",
		mcp.WithDescription("Plays a single note on the currently selected FL Studio channel."),
		mcp.WithNumber("note", mcp.Required(), mcp.Description("MIDI note number (0-127, middle C is 60).")),
		mcp.WithNumber("velocity", mcp.Description("Note velocity (0-127). Defaults to 100.")),
		mcp.WithNumber("duration", mcp.Description("Note length in beats. Defaults to 1.")),
	)
	s.AddTool(playNoteTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		note, err := request.RequireInt("note")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return runCommand(PlayNoteArgs{
			Note:          note,
			Velocity:      request.GetInt("velocity", 100),
			DurationBeats: request.GetFloat("duration", 1),
		})
	})

	setTempoTool := mcp.NewTool("flstudio_set-tempo",
		mcp.WithDescription("Sets the FL Studio project tempo."),
		mcp.WithNumber("bpm", mcp.Required(), mcp.Description("Tempo in beats per minute (20-999).")),
	)
	s.AddTool(setTempoTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		bpm, err := request.RequireFloat("bpm")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return runCommand(SetTempoArgs{BPM: bpm})
	})

	transportTool := mcp.NewTool("flstudio_control-transport",
		mcp.WithDescription("Controls FL Studio playback."),
		mcp.WithString("action", mcp.Required(), mcp.Description("One of play, stop, record, toggle_play.")),
	)
	s.AddTool(transportTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action, err := request.RequireString("action")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return runCommand(ControlTransportArgs{Action: action})
	})

	selectPatternTool := mcp.NewTool("flstudio_select-pattern",
		mcp.WithDescription("Selects a pattern in FL Studio."),
		mcp.WithNumber("pattern", mcp.Required(), mcp.Description("Pattern number (1-999).")),
	)
	s.AddTool(selectPatternTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pattern, err := request.RequireInt("pattern")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return runCommand(SelectPatternArgs{Pattern: pattern})
	})

	mixerLevelTool := mcp.NewTool("flstudio_set-mixer-level",
		mcp.WithDescription("Sets the volume level of a mixer track."),
		mcp.WithNumber("track", mcp.Required(), mcp.Description("Mixer track index (0 is master).")),
		mcp.WithNumber("level", mcp.Required(), mcp.Description("Volume level between 0.0 and 1.0.")),
	)
	s.AddTool(mixerLevelTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		track, err := request.RequireInt("track")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		level, err := request.RequireFloat("level")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return runCommand(SetMixerLevelArgs{Track: track, Level: level})
	})

	selectChannelTool := mcp.NewTool("flstudio_select-channel",
		mcp.WithDescription("Selects a channel in the FL Studio channel rack."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Channel rack index (0-based).")),
		mcp.WithString("mode", mcp.Description("One of select, deselect, toggle. Defaults to select.")),
	)
	s.AddTool(selectChannelTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		index, err := request.RequireInt("index")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return runCommand(SelectChannelArgs{
			Index: index,
			Mode:  request.GetString("mode", "select"),
		})
	})

	createTrackTool := mcp.NewTool("flstudio_create-track",
		mcp.WithDescription("Creates a new track in FL Studio."),
		mcp.WithString("name", mcp.Description("Track name.")),
		mcp.WithString("type", mcp.Description("One of instrument, audio, automation. Defaults to instrument.")),
	)
	s.AddTool(createTrackTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return runCommand(CreateTrackArgs{
			Name: request.GetString("name", ""),
			Type: request.GetString("type", "instrument"),
		})
	})

	loadInstrumentTool := mcp.NewTool("flstudio_load-instrument",
		mcp.WithDescription("Loads an instrument onto a channel."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Instrument name to load.")),
		mcp.WithNumber("channel", mcp.Description("Channel rack index. Defaults to 0.")),
	)
	s.AddTool(loadInstrumentTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return runCommand(LoadInstrumentArgs{
			Name:    name,
			Channel: request.GetInt("channel", 0),
		})
	})

	audioEffectTool := mcp.NewTool("flstudio_add-audio-effect",
		mcp.WithDescription("Adds an audio effect to a mixer track."),
		mcp.WithNumber("track", mcp.Required(), mcp.Description("Mixer track index.")),
		mcp.WithString("effect", mcp.Required(), mcp.Description("Effect name (e.g. reverb, delay).")),
	)
	s.AddTool(audioEffectTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		track, err := request.RequireInt("track")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		effect, err := request.RequireString("effect")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return runCommand(AddAudioEffectArgs{Track: track, Effect: effect})
	})

	midiEffectTool := mcp.NewTool("flstudio_add-midi-effect",
		mcp.WithDescription("Adds a MIDI effect to a channel."),
		mcp.WithNumber("channel", mcp.Required(), mcp.Description("Channel rack index.")),
		mcp.WithString("effect", mcp.Required(), mcp.Description("MIDI effect name (e.g. arpeggiator).")),
	)
	s.AddTool(midiEffectTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		channel, err := request.RequireInt("channel")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		effect, err := request.RequireString("effect")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return runCommand(AddMidiEffectArgs{Channel: channel, Effect: effect})
	})

	chordTool := mcp.NewTool("flstudio_create-chord-progression",
		mcp.WithDescription("Plays a chord progression. Chords are symbols like C, Am, G7, Fmaj7."),
		mcp.WithString("chords", mcp.Required(), mcp.Description("Chord symbols separated by spaces or commas, e.g. \"C G Am F\".")),
		mcp.WithNumber("octave", mcp.Description("Base octave (0-9). Defaults to 4.")),
		mcp.WithNumber("channel", mcp.Description("Channel rack index. Defaults to 0.")),
		mcp.WithNumber("duration", mcp.Description("Beats per chord. Defaults to 4.")),
	)
	s.AddTool(chordTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		chordText, err := request.RequireString("chords")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return runCommand(ChordProgressionArgs{
			Chords:        splitNoteList(chordText),
			Octave:        request.GetInt("octave", 4),
			Channel:       request.GetInt("channel", 0),
			DurationBeats: request.GetFloat("duration", 4),
		})
	})

	melodyTool := mcp.NewTool("flstudio_create-melody",
		mcp.WithDescription("Writes a melody into the selected pattern."),
		mcp.WithString("notes-json", mcp.Required(), mcp.Description(`JSON array of notes: [{"note":60,"start_beats":0,"duration_beats":1,"velocity":100}, ...].`)),
		mcp.WithNumber("channel", mcp.Description("Channel rack index. Defaults to 0.")),
	)
	s.AddTool(melodyTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		notesJson, err := request.RequireString("notes-json")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var notes []MelodyNote
		if err := json.Unmarshal([]byte(notesJson), &notes); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to unmarshal notes JSON: %v", err)), nil
		}
		return runCommand(MelodyArgs{
			Notes:   notes,
			Channel: request.GetInt("channel", 0),
		})
	})

	automateTool := mcp.NewTool("flstudio_automate-parameter",
		mcp.WithDescription("Creates an automation curve for a plugin or mixer parameter."),
		mcp.WithNumber("track", mcp.Required(), mcp.Description("Mixer track index.")),
		mcp.WithString("parameter", mcp.Required(), mcp.Description("Parameter name to automate.")),
		mcp.WithString("points-json", mcp.Required(), mcp.Description(`JSON array of points: [{"time_beats":0,"value":0.5}, ...]. Values are normalized 0.0-1.0.`)),
	)
	s.AddTool(automateTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		track, err := request.RequireInt("track")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		parameter, err := request.RequireString("parameter")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		pointsJson, err := request.RequireString("points-json")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var points []AutomationPoint
		if err := json.Unmarshal([]byte(pointsJson), &points); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to unmarshal points JSON: %v", err)), nil
		}
		return runCommand(AutomateParameterArgs{Track: track, Parameter: parameter, Points: points})
	})

	arrangementTool := mcp.NewTool("flstudio_set-arrangement",
		mcp.WithDescription("Lays out patterns in the playlist."),
		mcp.WithString("sections-json", mcp.Required(), mcp.Description(`JSON array of sections: [{"name":"intro","pattern":1,"start_bar":0,"length_bars":8}, ...].`)),
	)
	s.AddTool(arrangementTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sectionsJson, err := request.RequireString("sections-json")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var sections []ArrangementSection
		if err := json.Unmarshal([]byte(sectionsJson), &sections); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to unmarshal sections JSON: %v", err)), nil
		}
		return runCommand(SetArrangementArgs{Sections: sections})
	})

	executeTool := mcp.NewTool("flstudio_execute",
		mcp.WithDescription("Runs any bridge command by name with JSON arguments. For commands without a dedicated tool."),
		mcp.WithString("command", mcp.Required(), mcp.Description("Command name, e.g. play_note, set_tempo, get_status.")),
		mcp.WithString("args-json", mcp.Description("Command arguments as a JSON object. Defaults to {}.")),
	)
	s.AddTool(executeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("command")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id, ok := commandByName(name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown command %q", name)), nil
		}
		args, err := decodePayload(id, []byte(request.GetString("args-json", "{}")))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return runCommand(args)
	})

	statusTool := mcp.NewTool("flstudio_get-status",
		mcp.WithDescription("Reads the current FL Studio state: tempo, transport, selected pattern and channel."),
	)
	s.AddTool(statusTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return runCommand(GetStatusArgs{})
	})

	portsTool := mcp.NewTool("flstudio_list-midi-ports",
		mcp.WithDescription("Lists the available MIDI input and output ports."),
	)
	s.AddTool(portsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var sb strings.Builder
		sb.WriteString("Outputs:\n")
		for _, out := range midi.GetOutPorts() {
			fmt.Fprintf(&sb, "  [%d] %s\n", out.Number(), out.String())
		}
		sb.WriteString("Inputs:\n")
		for _, in := range midi.GetInPorts() {
			fmt.Fprintf(&sb, "  [%d] %s\n", in.Number(), in.String())
		}
		return mcp.NewToolResultText(sb.String()), nil
	})

	log.Info("starting FL Studio MCP server")

	if err := server.ServeStdio(s); err != nil {
		log.Errorw("server error", "error", err)
	}
}
