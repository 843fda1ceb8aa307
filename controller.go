package main

import (
	"go.uber.org/zap"
)

// Controller is the server side of the bridge. It turns validated commands
// into MIDI traffic: single CC messages where a fast path exists, chunked
// SysEx otherwise, and correlates replies for commands that want one.
type Controller struct {
	transport Transport
	framer    *Framer
	feedback  *FeedbackCorrelator
	channel   uint8
	log       *zap.SugaredLogger
}

func NewController(t Transport, cfg Config, log *zap.SugaredLogger) *Controller {
	return &Controller{
		transport: t,
		framer:    NewFramer(cfg.MaxChunkBytes, cfg.MaxChunksPerCommand),
		feedback:  NewFeedbackCorrelator(cfg.FeedbackTimeout, log),
		channel:   cfg.MidiChannel,
		log:       log,
	}
}

// HandleIncoming routes a reassembled response to its waiting caller. The
// input listener calls this for every SysEx message received.
func (c *Controller) HandleIncoming(reasm *Reassembler, raw []byte) {
	_, resp := reasm.Accept(raw)
	if resp != nil {
		c.feedback.Deliver(resp)
	}
}

// Execute sends a command and returns its outcome. Commands with a CC fast
// path go out as a single control change and succeed as soon as the send
// does. Commands that expect a reply block until the device answers or the
// feedback timeout fires.
func (c *Controller) Execute(cmd Command) StatusResult {
	if msg, ok := EncodeCC(c.channel, cmd); ok {
		if err := c.transport.Send(msg.Bytes()); err != nil {
			c.log.Errorw("CC send failed", "command", cmd.ID, "error", err)
			return failureResult(cmd.ID, err)
		}
		c.log.Debugw("sent CC command", "command", cmd.ID)
		return successResult(cmd.ID, nil)
	}

	requestID := 0
	var replyCh <-chan *InboundResponse
	if wantsReply(cmd.ID) {
		requestID, replyCh = c.feedback.Register()
	}

	if err := c.framer.Send(c.transport, cmd.ID, requestID, cmd.Args); err != nil {
		c.log.Errorw("SysEx send failed", "command", cmd.ID, "error", err)
		return failureResult(cmd.ID, err)
	}
	c.log.Debugw("sent SysEx command", "command", cmd.ID, "request_id", requestID)

	if replyCh == nil {
		return successResult(cmd.ID, nil)
	}

	resp, err := c.feedback.Wait(requestID, replyCh)
	if err != nil {
		return failureResult(cmd.ID, err)
	}
	if resp.Error != "" {
		return StatusResult{Command: cmd.ID.String(), Success: false, Error: resp.Error}
	}
	return successResult(cmd.ID, resp.Data)
}

// wantsReply reports whether a command blocks for a device response.
// Everything else is fire and forget; the device still answers, but the
// answer is only logged.
func wantsReply(id CommandID) bool {
	return id == CmdGetStatus
}
