package main

import (
	"go.uber.org/zap"
	"gitlab.com/gomidi/midi/v2"
)

// Receiver is the device side of the bridge. It reassembles inbound SysEx
// commands, decodes the CC fast path, runs every command through the
// dispatcher and answers each SysEx command on the return port.
type Receiver struct {
	reasm      *Reassembler
	dispatcher *Dispatcher
	framer     *Framer
	daw        DawAPI
	out        Transport
	channel    uint8
	log        *zap.SugaredLogger
}

func NewReceiver(daw DawAPI, out Transport, cfg Config, log *zap.SugaredLogger) *Receiver {
	return &Receiver{
		reasm:      NewReassembler(cfg.ReassemblyTimeout, log),
		dispatcher: NewDispatcher(daw, log),
		framer:     NewFramer(cfg.MaxChunkBytes, cfg.MaxChunksPerCommand),
		daw:        daw,
		out:        out,
		channel:    cfg.MidiChannel,
		log:        log,
	}
}

// HandleMessage consumes one inbound MIDI message. CC fast-path commands
// execute immediately and never get a reply. SysEx chunks accumulate until
// a command completes, which is dispatched and always answered.
func (r *Receiver) HandleMessage(msg midi.Message) {
	var ch, ctrl, val uint8
	if msg.GetControlChange(&ch, &ctrl, &val) {
		if ch != r.channel {
			return
		}
		cmd, ok := DecodeCC(ctrl, val)
		if !ok {
			return
		}
		result := r.dispatcher.Dispatch(&InboundCommand{ID: cmd.ID, Args: cmd.Args})
		r.log.Debugw("CC command handled", "command", cmd.ID, "success", result.Success)

		// CC commands carry no request id, so the only feedback channel is
		// an unsolicited state push after the change lands.
		if result.Success {
			if data, err := r.daw.Status(); err == nil {
				if err := r.NotifyAsync(data); err != nil {
					r.log.Warnw("async update send failed", "error", err)
				}
			}
		}
		return
	}

	if len(msg) > 0 && msg[0] == sysexStart {
		r.HandleSysEx(msg)
	}
}

// HandleSysEx feeds one SysEx message into the reassembly table and, when a
// command completes, dispatches it and sends the response back.
func (r *Receiver) HandleSysEx(raw []byte) {
	cmd, _ := r.reasm.Accept(raw)
	if cmd == nil {
		return
	}

	result := r.dispatcher.Dispatch(cmd)
	r.log.Infow("command dispatched",
		"command", cmd.ID, "request_id", cmd.RequestID, "success", result.Success)

	if err := r.respond(cmd.RequestID, result); err != nil {
		r.log.Errorw("response send failed", "command", cmd.ID, "error", err)
	}
}

func (r *Receiver) respond(requestID int, result StatusResult) error {
	class := CmdResponseSuccess
	if !result.Success {
		class = CmdResponseError
	}
	chunks, err := r.framer.FrameResponse(class, responseEnvelope{
		ResponseTo: requestID,
		Data:       result.Data,
		Error:      result.Error,
	})
	if err != nil {
		return err
	}
	return sendChunks(r.out, chunks)
}

// NotifyAsync pushes an unsolicited device-state update to the server.
func (r *Receiver) NotifyAsync(data map[string]any) error {
	chunks, err := r.framer.FrameResponse(CmdAsyncUpdate, responseEnvelope{Data: data})
	if err != nil {
		return err
	}
	return sendChunks(r.out, chunks)
}
