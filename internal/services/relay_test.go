package services

import (
	"be/config"
	"be/internal/clients/fal"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type fakeGenerator struct {
	calls  atomic.Int32
	events []fal.Event
}

func (f *fakeGenerator) Subscribe(ctx context.Context, req fal.GenerateRequest) <-chan fal.Event {
	f.calls.Add(1)
	ch := make(chan fal.Event)
	go func() {
		defer close(ch)
		for _, ev := range f.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func update(status string, logs ...string) fal.Event {
	u := fal.Update{Status: status}
	for _, msg := range logs {
		u.Logs = append(u.Logs, fal.LogEntry{Message: msg})
	}
	return fal.Event{Update: &u}
}

func newTestApi(gen Generator) *Api {
	a := NewApi(gen, nil, NewHub(), config.ApiConfig{Port: "0"})
	a.addRoutes()
	return a
}

func TestGenerateTexture(t *testing.T) {
	t.Run("two_statuses_then_result", func(t *testing.T) {
		raw := `{"data":{"images":[{"url":"X"}]}}`
		gen := &fakeGenerator{events: []fal.Event{
			update(fal.StatusInQueue),
			update(fal.StatusInProgress, "loading model", "sampling"),
			{Result: json.RawMessage(raw)},
		}}
		a := newTestApi(gen)

		req := httptest.NewRequest("GET", "/generate?prompt=red+dragon", nil)
		resp, err := a.server.Test(req, 5000)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()

		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
			t.Fatalf("content type %q", ct)
		}
		if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
			t.Fatalf("cache control %q", cc)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		text := string(body)

		if got := strings.Count(text, "event: status"); got != 2 {
			t.Fatalf("expected 2 status events, got %d:\n%s", got, text)
		}
		if got := strings.Count(text, "event: log"); got != 2 {
			t.Fatalf("expected 2 log events, got %d:\n%s", got, text)
		}
		if got := strings.Count(text, "event: result"); got != 1 {
			t.Fatalf("expected 1 result event, got %d:\n%s", got, text)
		}
		if !strings.Contains(text, "data: "+raw) {
			t.Fatalf("result payload must be relayed byte for byte:\n%s", text)
		}

		// logs belong after their status and before the next one
		inProgress := strings.Index(text, `"status":"IN_PROGRESS"`)
		firstLog := strings.Index(text, "event: log")
		resultAt := strings.Index(text, "event: result")
		if !(inProgress < firstLog && firstLog < resultAt) {
			t.Fatalf("event order wrong:\n%s", text)
		}
	})

	t.Run("missing_prompt", func(t *testing.T) {
		gen := &fakeGenerator{}
		a := newTestApi(gen)

		resp, err := a.server.Test(httptest.NewRequest("GET", "/generate", nil), 5000)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		text := string(body)

		if got := strings.Count(text, "event: error"); got != 1 {
			t.Fatalf("expected exactly 1 error event, got %d:\n%s", got, text)
		}
		if !strings.Contains(text, "prompt") {
			t.Fatalf("error should name the missing parameter:\n%s", text)
		}
		if strings.Contains(text, "event: result") || strings.Contains(text, "event: status") {
			t.Fatalf("no other events expected:\n%s", text)
		}
		if gen.calls.Load() != 0 {
			t.Fatalf("upstream must not be called for invalid requests, got %d calls", gen.calls.Load())
		}
	})

	t.Run("upstream_fails_after_status", func(t *testing.T) {
		gen := &fakeGenerator{events: []fal.Event{
			update(fal.StatusInQueue),
			{Err: errors.New("gpu on fire")},
		}}
		a := newTestApi(gen)

		resp, err := a.server.Test(httptest.NewRequest("GET", "/generate?prompt=red+dragon", nil), 5000)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		text := string(body)

		if got := strings.Count(text, "event: status"); got != 1 {
			t.Fatalf("expected 1 status event, got %d:\n%s", got, text)
		}
		if got := strings.Count(text, "event: error"); got != 1 {
			t.Fatalf("expected 1 error event, got %d:\n%s", got, text)
		}
		if strings.Contains(text, "event: result") {
			t.Fatalf("no result after an error:\n%s", text)
		}
		if !strings.Contains(text, "gpu on fire") {
			t.Fatalf("error details lost:\n%s", text)
		}
	})

	t.Run("missing_credential", func(t *testing.T) {
		gen := &fakeGenerator{events: []fal.Event{{Err: fal.ErrMissingAPIKey}}}
		a := newTestApi(gen)

		resp, err := a.server.Test(httptest.NewRequest("GET", "/generate?prompt=red+dragon", nil), 5000)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		text := string(body)

		if got := strings.Count(text, "event: error"); got != 1 {
			t.Fatalf("expected 1 error event, got %d:\n%s", got, text)
		}
		if !strings.Contains(text, "api key") {
			t.Fatalf("error should carry the credential detail:\n%s", text)
		}
	})
}

func TestRelayEvents(t *testing.T) {
	t.Run("client_disconnect_mid_stream", func(t *testing.T) {
		// one status fits, then the connection dies
		sink := &failAfter{n: 1}
		stream := newEventStream(bufio.NewWriter(sink), testLogger())

		cancelled := false
		events := make(chan fal.Event, 4)
		events <- update(fal.StatusInQueue)
		events <- update(fal.StatusInProgress, "sampling")
		events <- fal.Event{Result: json.RawMessage(`{}`)}
		close(events)

		relayEvents(stream, func() { cancelled = true }, events)
		stream.Close()
		stream.Close() // close path must stay a no-op the second time

		if !cancelled {
			t.Fatal("disconnect should cancel the upstream subscription")
		}
		if got := strings.Count(sink.buf.String(), "event: "); got != 1 {
			t.Fatalf("expected only the pre-disconnect event, got %d:\n%s", got, sink.buf.String())
		}
	})

	t.Run("closed_channel_without_terminal", func(t *testing.T) {
		var buf bytes.Buffer
		stream := newEventStream(bufio.NewWriter(&buf), testLogger())

		events := make(chan fal.Event)
		close(events)
		relayEvents(stream, func() {}, events)

		if got := strings.Count(buf.String(), "event: error"); got != 1 {
			t.Fatalf("expected a synthesized terminal error, got:\n%s", buf.String())
		}
	})
}
