package main

import (
	"fmt"
	"strings"
)

// playFromArgs drives the controller from the command line. Tokens that
// parse as note names (C4, F#3) play as single notes; everything else is
// treated as a chord symbol. With no tokens it plays a short test sequence.
func playFromArgs(ctrl *Controller, args []string) error {
	tokens := splitNoteList(strings.Join(args, " "))
	if len(tokens) == 0 {
		tokens = []string{"C4", "E4", "G4"}
	}

	for _, tok := range tokens {
		n, isRest, err := parseNoteToken(tok)
		if err == nil {
			if isRest {
				continue
			}
			result := ctrl.Execute(mustCommand(PlayNoteArgs{
				Note:          int(n),
				Velocity:      100,
				DurationBeats: 1,
			}))
			if !result.Success {
				return fmt.Errorf("play %q: %s", tok, result.Error)
			}
			continue
		}

		cmd, err := NewCommand(ChordProgressionArgs{
			Chords:        []string{tok},
			Octave:        4,
			DurationBeats: 4,
		})
		if err != nil {
			return fmt.Errorf("invalid token %q: %w", tok, err)
		}
		if result := ctrl.Execute(cmd); !result.Success {
			return fmt.Errorf("play chord %q: %s", tok, result.Error)
		}
	}

	return nil
}

// mustCommand wraps NewCommand for payloads built from constants.
func mustCommand(args Payload) Command {
	cmd, err := NewCommand(args)
	if err != nil {
		panic(err)
	}
	return cmd
}
