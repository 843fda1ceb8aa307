package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolErrorClassification(t *testing.T) {
	err := validationError("play_note", "note %d out of range", 200)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrTransport))
	assert.Contains(t, err.Error(), "play_note")
	assert.Contains(t, err.Error(), "200")
}

func TestProtocolErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("port closed")
	err := transportError("send", cause)
	assert.True(t, errors.Is(err, ErrTransport))

	var pe *ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, cause, pe.Err)
	assert.Equal(t, "send", pe.Op)
}

func TestErrorHelpersPassNil(t *testing.T) {
	assert.NoError(t, transportError("send", nil))
	assert.NoError(t, dawError("set_tempo", nil))
}
