package services

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// eventStream writes named server-sent events to one client connection.
//
// Two flags guard the relay contract: terminal ensures at most one result or
// error event per stream, and closed makes Close idempotent while silently
// dropping every write after the client has gone away. A failed flush is how
// a disconnect shows up here; it flips closed instead of propagating.
type eventStream struct {
	w        writeFlusher
	log      *log.Logger
	closed   bool
	terminal bool
}

// writeFlusher is what bufio.Writer provides under fasthttp's stream writer.
type writeFlusher interface {
	io.Writer
	Flush() error
}

func newEventStream(w writeFlusher, logger *log.Logger) *eventStream {
	return &eventStream{w: w, log: logger}
}

func (s *eventStream) Status(status string) {
	s.send("status", statusEvent{Status: status})
}

func (s *eventStream) Log(message string) {
	s.send("log", logEvent{Message: message})
}

// Result emits the terminal success event with the upstream payload verbatim.
func (s *eventStream) Result(payload json.RawMessage) {
	if s.terminal {
		return
	}
	s.terminal = true
	s.write("result", payload)
}

// Fail emits the terminal error event. Calls after the first terminal event
// are no-ops, so any code path may report failure without double-emitting.
func (s *eventStream) Fail(message, details string) {
	if s.terminal {
		return
	}
	s.terminal = true
	s.send("error", errorEvent{Message: message, Details: details})
}

// Close marks the stream finished. Safe to call any number of times.
func (s *eventStream) Close() {
	s.closed = true
}

func (s *eventStream) Closed() bool {
	return s.closed
}

func (s *eventStream) send(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal event payload", "event", name, "err", err)
		return
	}
	s.write(name, data)
}

func (s *eventStream) write(name string, data []byte) {
	if s.closed {
		return
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		s.disconnect(name, err)
		return
	}
	if err := s.w.Flush(); err != nil {
		s.disconnect(name, err)
	}
}

func (s *eventStream) disconnect(event string, err error) {
	s.closed = true
	s.log.Debug("client gone, suppressing stream writes", "event", event, "err", err)
}
