package services

// Payloads for the named events on the generation stream.

type statusEvent struct {
	Status string `json:"status"`
}

type logEvent struct {
	Message string `json:"message"`
}

type errorEvent struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
