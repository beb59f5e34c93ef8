package fal

import (
	"encoding/json"
)

// Queue statuses reported by the hosted generation service.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// GenerateRequest is the payload submitted to the generation queue. Extra
// carries caller-supplied parameters the backend does not interpret; known
// fields win over Extra on conflict.
type GenerateRequest struct {
	Prompt    string
	Seed      *int64
	ImageSize string
	NumImages *int
	Extra     map[string]string
}

func (r GenerateRequest) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, len(r.Extra)+4)
	for key, val := range r.Extra {
		payload[key] = val
	}
	payload["prompt"] = r.Prompt
	if r.Seed != nil {
		payload["seed"] = *r.Seed
	}
	if r.ImageSize != "" {
		payload["image_size"] = r.ImageSize
	}
	if r.NumImages != nil {
		payload["num_images"] = *r.NumImages
	}
	return json.Marshal(payload)
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusUrl   string `json:"status_url"`
	ResponseUrl string `json:"response_url"`
}

type queueStatus struct {
	Status        string     `json:"status"`
	QueuePosition *int       `json:"queue_position,omitempty"`
	Logs          []LogEntry `json:"logs,omitempty"`
}

type LogEntry struct {
	Message   string       `json:"message"`
	Level     *string      `json:"level,omitempty"`
	Source    *string      `json:"source,omitempty"`
	Timestamp FlexibleTime `json:"timestamp,omitzero"`
}

// Update is one progress notification observed while the request sits in the
// queue. Logs holds only lines not seen on a previous poll, and only for
// IN_PROGRESS updates.
type Update struct {
	Status        string
	QueuePosition *int
	Logs          []LogEntry
}

// Event is what a subscription channel carries: zero or more progress
// updates followed by exactly one terminal event, either Result or Err.
type Event struct {
	Update *Update
	Result json.RawMessage
	Err    error
}

type resultImages struct {
	Images []resultImage `json:"images"`
	Data   *struct {
		Images []resultImage `json:"images"`
	} `json:"data,omitempty"`
}

type resultImage struct {
	Url string `json:"url"`
}
