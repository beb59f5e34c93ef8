package fal

import (
	"be/config"
	"be/internal/clients/transport"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrMissingAPIKey = errors.New("fal api key not configured")

const defaultPollInterval = 500 * time.Millisecond

// Client talks to the hosted generation queue: submit, poll status with
// logs, fetch the final response. One Subscribe call covers one request
// end to end.
type Client struct {
	apiKey       string
	baseUrl      string
	endpoint     string
	pollInterval time.Duration
	httpClient   *http.Client
}

func NewClient(config config.FalConfig) *Client {

	interval := defaultPollInterval
	if config.PollIntervalMs > 0 {
		interval = time.Duration(config.PollIntervalMs) * time.Millisecond
	}

	return &Client{
		apiKey:       strings.TrimSpace(config.ApiKey),
		baseUrl:      strings.TrimRight(strings.TrimSpace(config.BaseUrl), "/"),
		endpoint:     strings.Trim(strings.TrimSpace(config.Endpoint), "/"),
		pollInterval: interval,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// Subscribe submits the request and returns a channel of lifecycle events.
// The channel carries progress updates in poll order, then exactly one
// terminal event (Result or Err), then closes. Cancelling ctx abandons the
// queue request and surfaces ctx's error as the terminal event.
func (c *Client) Subscribe(ctx context.Context, req GenerateRequest) <-chan Event {
	events := make(chan Event, 1)
	go func() {
		defer close(events)
		result, err := c.run(ctx, req, events)
		if err != nil {
			emit(ctx, events, Event{Err: err})
			return
		}
		emit(ctx, events, Event{Result: result})
	}()
	return events
}

func (c *Client) run(ctx context.Context, req GenerateRequest, events chan<- Event) (json.RawMessage, error) {

	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	headers := map[string]string{
		"Authorization": "Key " + c.apiKey,
	}

	sub, err := transport.Post[GenerateRequest, submitResponse](*c.httpClient, ctx, c.baseUrl+"/"+c.endpoint, req, headers)
	if err != nil {
		return nil, fmt.Errorf("submit generation request: %w", err)
	}
	if sub.StatusUrl == "" || sub.ResponseUrl == "" {
		return nil, fmt.Errorf("queue submit returned no status/response urls for request %q", sub.RequestID)
	}

	statusUrl := sub.StatusUrl
	if !strings.Contains(statusUrl, "logs=") {
		sep := "?"
		if strings.Contains(statusUrl, "?") {
			sep = "&"
		}
		statusUrl += sep + "logs=1"
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	// Status logs are cumulative; only relay lines not seen before.
	seenLogs := 0
	for {
		status, err := transport.Get[queueStatus](*c.httpClient, ctx, statusUrl, headers)
		if err != nil {
			return nil, fmt.Errorf("poll queue status: %w", err)
		}

		update := Update{Status: status.Status, QueuePosition: status.QueuePosition}
		if status.Status == StatusInProgress && len(status.Logs) > seenLogs {
			update.Logs = status.Logs[seenLogs:]
			seenLogs = len(status.Logs)
		}
		if !emit(ctx, events, Event{Update: &update}) {
			return nil, ctx.Err()
		}

		if status.Status == StatusCompleted {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	result, err := transport.GetRaw(*c.httpClient, ctx, sub.ResponseUrl, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch generation result: %w", err)
	}
	return result, nil
}

func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// FirstImageURL digs the first image URL out of a raw generation result.
// Results arrive either as {"images": [...]} or wrapped as
// {"data": {"images": [...]}} depending on which client produced them.
func FirstImageURL(result json.RawMessage) (string, error) {
	var parsed resultImages
	if err := json.Unmarshal(result, &parsed); err != nil {
		return "", fmt.Errorf("parse generation result: %w", err)
	}

	images := parsed.Images
	if len(images) == 0 && parsed.Data != nil {
		images = parsed.Data.Images
	}
	if len(images) == 0 || strings.TrimSpace(images[0].Url) == "" {
		return "", errors.New("generation result contains no image url")
	}
	return images[0].Url, nil
}
