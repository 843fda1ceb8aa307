package main

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Wire framing for the command protocol. Every chunk looks like:
//
//	F0 7D 01 <cmd> <tag> <seq> <total> <payload, 7-bit safe> F7
//
// 0x7D is the MIDI educational/non-commercial manufacturer id, 0x01 the
// product id of this bridge. Everything between F0 and F7 must stay below
// 0x80, hence the 7-bit packing of the JSON payload.
const (
	sysexStart     byte = 0xF0
	sysexEnd       byte = 0xF7
	manufacturerID byte = 0x7D
	productID      byte = 0x01

	chunkHeaderLen = 7 // F0 7D 01 cmd tag seq total
	chunkFrameLen  = chunkHeaderLen + 1
)

// ChunkEnvelope is one parsed SysEx chunk of a logical command.
type ChunkEnvelope struct {
	Command CommandID
	Tag     byte
	Seq     int
	Total   int
	Payload []byte // still 7-bit packed
}

// commandEnvelope wraps the typed arguments with the correlation id that
// links a device response back to the request.
type commandEnvelope struct {
	RequestID int             `json:"request_id,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
}

// responseEnvelope is the payload shape of response-class messages.
type responseEnvelope struct {
	ResponseTo int            `json:"response_to,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// pack7bit converts arbitrary bytes into a 7-bit-safe stream: a two-byte
// length prefix (14-bit, high septet first) followed by groups of one MSB
// bitmap byte and up to seven data bytes with their high bits cleared.
func pack7bit(data []byte) []byte {
	n := len(data)
	out := make([]byte, 0, 2+n+(n+6)/7)
	out = append(out, byte(n>>7)&0x7F, byte(n)&0x7F)
	for i := 0; i < n; i += 7 {
		group := data[i:min(i+7, n)]
		var msb byte
		for j, b := range group {
			if b >= 0x80 {
				msb |= 1 << j
			}
		}
		out = append(out, msb)
		for _, b := range group {
			out = append(out, b&0x7F)
		}
		// Pad the final group so every group is 8 bytes on the wire.
		for j := len(group); j < 7; j++ {
			out = append(out, 0)
		}
	}
	return out
}

// unpack7bit reverses pack7bit.
func unpack7bit(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("7-bit stream too short (%d bytes)", len(data))
	}
	n := int(data[0])<<7 | int(data[1])
	body := data[2:]
	if want := ((n + 6) / 7) * 8; len(body) < want {
		return nil, fmt.Errorf("7-bit stream truncated: have %d bytes, want %d", len(body), want)
	}
	out := make([]byte, 0, n)
	for i := 0; len(out) < n; i += 8 {
		msb := body[i]
		group := body[i+1 : i+8]
		for j := 0; j < 7 && len(out) < n; j++ {
			b := group[j]
			if msb&(1<<j) != 0 {
				b |= 0x80
			}
			out = append(out, b)
		}
	}
	return out, nil
}

// tagAllocator hands out in-flight command tags from a wrapping counter so
// concurrently framed commands do not collide on the receiving side.
type tagAllocator struct {
	next atomic.Uint32
}

func (t *tagAllocator) alloc() byte {
	return byte(t.next.Add(1) & 0x7F)
}

// Transport is the outbound MIDI surface the framer writes to.
type Transport interface {
	Send(msg []byte) error
}

// Framer serializes commands to JSON and splits them into tagged SysEx
// chunks bounded by the configured chunk size.
type Framer struct {
	maxChunkBytes int
	maxChunks     int
	tags          *tagAllocator
}

func NewFramer(maxChunkBytes, maxChunks int) *Framer {
	// seq and total travel as single data bytes between F0 and F7, so the
	// chunk budget can never exceed 127 regardless of configuration.
	if maxChunks > 127 {
		maxChunks = 127
	}
	return &Framer{
		maxChunkBytes: maxChunkBytes,
		maxChunks:     maxChunks,
		tags:          &tagAllocator{},
	}
}

// Frame builds the chunk sequence for one command without sending anything.
// It fails with ErrPayloadTooLarge before the first chunk is produced when
// the payload would exceed the chunk budget.
func (f *Framer) Frame(id CommandID, requestID int, args Payload) ([][]byte, error) {
	var rawArgs json.RawMessage
	if args != nil {
		encoded, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshal %s args: %w", id, err)
		}
		rawArgs = encoded
	}
	payload, err := json.Marshal(commandEnvelope{RequestID: requestID, Args: rawArgs})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", id, err)
	}
	return f.frameRaw(id, payload)
}

// FrameResponse builds the chunk sequence for a device-side response.
func (f *Framer) FrameResponse(class CommandID, resp responseEnvelope) ([][]byte, error) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal response envelope: %w", err)
	}
	return f.frameRaw(class, payload)
}

func (f *Framer) frameRaw(id CommandID, payload []byte) ([][]byte, error) {
	packed := pack7bit(payload)

	total := (len(packed) + f.maxChunkBytes - 1) / f.maxChunkBytes
	if total == 0 {
		total = 1
	}
	if total > f.maxChunks {
		return nil, &ProtocolError{
			Kind: ErrPayloadTooLarge,
			Op:   id.String(),
			Err:  fmt.Errorf("%d bytes need %d chunks, budget is %d", len(payload), total, f.maxChunks),
		}
	}

	tag := f.tags.alloc()
	chunks := make([][]byte, 0, total)
	for seq := 0; seq < total; seq++ {
		part := packed[seq*f.maxChunkBytes : min((seq+1)*f.maxChunkBytes, len(packed))]
		msg := make([]byte, 0, chunkFrameLen+len(part))
		msg = append(msg, sysexStart, manufacturerID, productID, byte(id), tag, byte(seq), byte(total))
		msg = append(msg, part...)
		msg = append(msg, sysexEnd)
		chunks = append(chunks, msg)
	}
	return chunks, nil
}

// Send frames a command and emits its chunks in sequence order.
func (f *Framer) Send(t Transport, id CommandID, requestID int, args Payload) error {
	chunks, err := f.Frame(id, requestID, args)
	if err != nil {
		return err
	}
	return sendChunks(t, chunks)
}

func sendChunks(t Transport, chunks [][]byte) error {
	for _, msg := range chunks {
		if err := t.Send(msg); err != nil {
			return transportError("sysex send", err)
		}
	}
	return nil
}

// parseChunk validates the fixed prefix and extracts the envelope fields.
// A false second return flags foreign SysEx traffic to be ignored.
func parseChunk(raw []byte) (ChunkEnvelope, bool, error) {
	if len(raw) < chunkFrameLen || raw[0] != sysexStart || raw[len(raw)-1] != sysexEnd {
		return ChunkEnvelope{}, false, nil
	}
	if raw[1] != manufacturerID || raw[2] != productID {
		return ChunkEnvelope{}, false, nil
	}
	env := ChunkEnvelope{
		Command: CommandID(raw[3]),
		Tag:     raw[4],
		Seq:     int(raw[5]),
		Total:   int(raw[6]),
		Payload: raw[chunkHeaderLen : len(raw)-1],
	}
	if env.Total < 1 {
		return ChunkEnvelope{}, true, fmt.Errorf("chunk with zero total for tag %d", env.Tag)
	}
	if env.Seq >= env.Total {
		return ChunkEnvelope{}, true, fmt.Errorf("chunk index %d outside total %d for tag %d", env.Seq, env.Total, env.Tag)
	}
	return env, true, nil
}
