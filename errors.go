package main

import (
	"errors"
	"fmt"
)

// Sentinel errors for protocol failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrValidation indicates a malformed command rejected before any MIDI traffic.
	ErrValidation = errors.New("validation failed")

	// ErrPayloadTooLarge indicates a command payload exceeding the configured
	// chunk budget, rejected before transmission.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrTransport indicates a MIDI send/receive failure. Not retried.
	ErrTransport = errors.New("transport error")

	// ErrReassemblyTimeout indicates a partial SysEx sequence was abandoned.
	ErrReassemblyTimeout = errors.New("reassembly timed out")

	// ErrDawAPI indicates a DAW-side operation failed.
	ErrDawAPI = errors.New("daw api error")
)

// ProtocolError wraps an underlying error with a classification sentinel.
// The original error stays in the chain for errors.As inspection.
type ProtocolError struct {
	Kind error
	Op   string
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func (e *ProtocolError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func validationError(op string, format string, args ...any) error {
	return &ProtocolError{Kind: ErrValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

func transportError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ProtocolError{Kind: ErrTransport, Op: op, Err: err}
}

func dawError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ProtocolError{Kind: ErrDawAPI, Op: op, Err: err}
}
