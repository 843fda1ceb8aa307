package main

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FeedbackCorrelator matches device responses to the requests that expect
// them. Tool-call goroutines register and wait; the inbound listener
// delivers. Responses for unknown or timed-out request ids are logged and
// dropped, as are unsolicited async updates.
type FeedbackCorrelator struct {
	mu      sync.Mutex
	pending map[int]chan *InboundResponse
	counter int
	timeout time.Duration
	log     *zap.SugaredLogger
}

func NewFeedbackCorrelator(timeout time.Duration, log *zap.SugaredLogger) *FeedbackCorrelator {
	return &FeedbackCorrelator{
		pending: make(map[int]chan *InboundResponse),
		timeout: timeout,
		log:     log,
	}
}

// Register allocates a request id and the channel its response will arrive
// on. Ids wrap within 14 bits and skip zero, which marks "no reply wanted".
func (f *FeedbackCorrelator) Register() (int, <-chan *InboundResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		f.counter = (f.counter + 1) & 0x3FFF
		if f.counter == 0 {
			f.counter = 1
		}
		if _, taken := f.pending[f.counter]; !taken {
			break
		}
	}
	ch := make(chan *InboundResponse, 1)
	f.pending[f.counter] = ch
	return f.counter, ch
}

// Wait blocks until the response for a registered id arrives or the
// configured timeout passes. The id is released either way.
func (f *FeedbackCorrelator) Wait(requestID int, ch <-chan *InboundResponse) (*InboundResponse, error) {
	defer f.cancel(requestID)

	select {
	case resp := <-ch:
		return resp, nil
	case <-time.After(f.timeout):
		return nil, fmt.Errorf("timeout waiting for feedback (request %d)", requestID)
	}
}

func (f *FeedbackCorrelator) cancel(requestID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, requestID)
}

// Deliver routes one reconstructed response. Async updates and responses
// nobody is waiting for are logged and discarded.
func (f *FeedbackCorrelator) Deliver(resp *InboundResponse) {
	if resp.Class == CmdAsyncUpdate {
		f.log.Infow("async update from device", "data", resp.Data)
		return
	}

	f.mu.Lock()
	ch, ok := f.pending[resp.ResponseTo]
	if ok {
		delete(f.pending, resp.ResponseTo)
	}
	f.mu.Unlock()

	if !ok {
		f.log.Warnw("response for unknown or timed-out request, discarding",
			"response_to", resp.ResponseTo, "class", resp.Class.String())
		return
	}
	ch <- resp
}
