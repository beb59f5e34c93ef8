package services

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

// failAfter starts failing writes once n bytes went through, standing in for
// a client that dropped the connection mid-stream.
type failAfter struct {
	buf     bytes.Buffer
	n       int
	written int
}

func (f *failAfter) Write(p []byte) (int, error) {
	if f.written >= f.n {
		return 0, errors.New("connection reset")
	}
	f.written += len(p)
	return f.buf.Write(p)
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestEventStream(t *testing.T) {
	t.Run("framing", func(t *testing.T) {
		var buf bytes.Buffer
		s := newEventStream(bufio.NewWriter(&buf), testLogger())
		s.Status("IN_PROGRESS")
		s.Log("sampling")
		s.Result(json.RawMessage(`{"data":{"images":[{"url":"X"}]}}`))

		want := "event: status\ndata: {\"status\":\"IN_PROGRESS\"}\n\n" +
			"event: log\ndata: {\"message\":\"sampling\"}\n\n" +
			"event: result\ndata: {\"data\":{\"images\":[{\"url\":\"X\"}]}}\n\n"
		if buf.String() != want {
			t.Fatalf("framing mismatch:\ngot  %q\nwant %q", buf.String(), want)
		}
	})

	t.Run("single_terminal_event", func(t *testing.T) {
		var buf bytes.Buffer
		s := newEventStream(bufio.NewWriter(&buf), testLogger())
		s.Fail("boom", "details")
		s.Result(json.RawMessage(`{}`))
		s.Fail("boom again", "")

		if got := strings.Count(buf.String(), "event: "); got != 1 {
			t.Fatalf("expected exactly one event after first terminal, got %d:\n%s", got, buf.String())
		}
		if !strings.Contains(buf.String(), `"message":"boom"`) {
			t.Fatalf("first terminal should win: %s", buf.String())
		}
	})

	t.Run("idempotent_close", func(t *testing.T) {
		var buf bytes.Buffer
		s := newEventStream(bufio.NewWriter(&buf), testLogger())
		s.Close()
		s.Close()
		s.Status("IN_PROGRESS")
		s.Fail("late", "")

		if buf.Len() != 0 {
			t.Fatalf("no event may be written after close, got %q", buf.String())
		}
	})

	t.Run("disconnect_suppresses_writes", func(t *testing.T) {
		sink := &failAfter{n: 1}
		s := newEventStream(bufio.NewWriter(sink), testLogger())
		s.Status("IN_QUEUE") // flushes, then the connection dies
		s.Status("IN_PROGRESS")
		s.Result(json.RawMessage(`{}`))
		s.Close()

		if !s.Closed() {
			t.Fatal("stream should be marked closed after a failed flush")
		}
		if got := strings.Count(sink.buf.String(), "event: "); got != 1 {
			t.Fatalf("writes after disconnect must be dropped, got %d events", got)
		}
	})
}
