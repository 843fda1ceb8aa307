package main

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// InboundCommand is a fully reconstructed command ready for dispatch.
type InboundCommand struct {
	ID        CommandID
	RequestID int
	Args      Payload
}

// InboundResponse is a reconstructed response-class message for the
// feedback correlator.
type InboundResponse struct {
	Class      CommandID
	ResponseTo int
	Data       map[string]any
	Error      string
}

type reassemblyEntry struct {
	chunks    map[int][]byte
	total     int
	firstSeen time.Time
}

// Reassembler collects SysEx chunks keyed by tag and reconstructs the
// original payload once every index 0..total-1 has arrived. It owns all
// in-flight chunk state; entries older than the timeout are purged, silently,
// because one-way MIDI gives the sender no NACK channel.
//
// All methods run on the single inbound listener flow; the table needs no
// locking.
type Reassembler struct {
	entries map[byte]*reassemblyEntry
	timeout time.Duration
	now     func() time.Time
	log     *zap.SugaredLogger
}

func NewReassembler(timeout time.Duration, log *zap.SugaredLogger) *Reassembler {
	return &Reassembler{
		entries: make(map[byte]*reassemblyEntry),
		timeout: timeout,
		now:     time.Now,
		log:     log,
	}
}

// Accept consumes one raw SysEx message. It returns a completed command or
// response once the final chunk of a tag arrives; foreign SysEx traffic
// returns all-nil. Malformed chunks are logged and dropped.
func (r *Reassembler) Accept(raw []byte) (*InboundCommand, *InboundResponse) {
	env, ours, err := parseChunk(raw)
	if !ours {
		return nil, nil
	}
	if err != nil {
		r.log.Warnw("dropping malformed chunk", "error", err)
		return nil, nil
	}

	r.sweep()

	entry, ok := r.entries[env.Tag]
	if !ok {
		entry = &reassemblyEntry{
			chunks:    make(map[int][]byte, env.Total),
			total:     env.Total,
			firstSeen: r.now(),
		}
		r.entries[env.Tag] = entry
	}
	if env.Total != entry.total {
		r.log.Warnw("chunk total mismatch, ignoring chunk",
			"tag", env.Tag, "have", entry.total, "got", env.Total)
		return nil, nil
	}
	if _, dup := entry.chunks[env.Seq]; dup {
		// Retransmission; first-seen wins.
		return nil, nil
	}
	entry.chunks[env.Seq] = append([]byte(nil), env.Payload...)

	if len(entry.chunks) < entry.total {
		return nil, nil
	}
	delete(r.entries, env.Tag)

	packed := make([]byte, 0)
	for seq := 0; seq < entry.total; seq++ {
		packed = append(packed, entry.chunks[seq]...)
	}
	payload, err := unpack7bit(packed)
	if err != nil {
		r.log.Warnw("discarding unreadable payload", "tag", env.Tag, "command", env.Command.String(), "error", err)
		return nil, nil
	}
	return r.decode(env.Command, payload)
}

func (r *Reassembler) decode(id CommandID, payload []byte) (*InboundCommand, *InboundResponse) {
	switch id {
	case CmdResponseSuccess, CmdResponseError, CmdAsyncUpdate:
		var resp responseEnvelope
		if err := json.Unmarshal(payload, &resp); err != nil {
			r.log.Warnw("discarding unreadable response", "class", id.String(), "error", err)
			return nil, nil
		}
		return nil, &InboundResponse{
			Class:      id,
			ResponseTo: resp.ResponseTo,
			Data:       resp.Data,
			Error:      resp.Error,
		}
	}

	var env commandEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.log.Warnw("discarding unreadable command envelope", "command", id.String(), "error", err)
		return nil, nil
	}
	args, err := decodePayload(id, env.Args)
	if err != nil {
		r.log.Warnw("discarding command with bad arguments", "command", id.String(), "error", err)
		return nil, nil
	}
	return &InboundCommand{ID: id, RequestID: env.RequestID, Args: args}, nil
}

// sweep purges entries whose first chunk is older than the timeout. Called
// lazily on each Accept; Sweep exposes the same pass for periodic callers.
func (r *Reassembler) sweep() {
	cutoff := r.now().Add(-r.timeout)
	for tag, entry := range r.entries {
		if entry.firstSeen.Before(cutoff) {
			r.log.Warnw("purging stale reassembly buffer",
				"tag", tag, "received", len(entry.chunks), "expected", entry.total,
				"error", fmt.Sprintf("%v", ErrReassemblyTimeout))
			delete(r.entries, tag)
		}
	}
}

// Sweep runs one timeout pass over the table.
func (r *Reassembler) Sweep() { r.sweep() }

// Pending reports the number of in-flight tags, for tests and status.
func (r *Reassembler) Pending() int { return len(r.entries) }

// Clear drops all in-flight state, for session teardown.
func (r *Reassembler) Clear() {
	r.entries = make(map[byte]*reassemblyEntry)
}
