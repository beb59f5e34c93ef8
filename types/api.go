package types

import "encoding/json"

type HealthResponse struct {
	Status    int   `json:"status"`
	TimeStamp int64 `json:"timestamp"`
}

type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type UploadTextureResponse struct {
	Name string `json:"name"`
	Url  string `json:"url"`
	Size int64  `json:"size"`
}

type DesignEntry struct {
	Name       string `json:"name"`
	Url        string `json:"url"`
	Size       int64  `json:"size"`
	ModifiedAt int64  `json:"modifiedAt"`
}

type ListDesignsResponse struct {
	Designs []DesignEntry `json:"designs"`
}

// SaveDesignRequest asks the backend to persist one generated design. Result
// is the raw payload the generation stream delivered; the backend digs the
// image URL out of it.
type SaveDesignRequest struct {
	ClientID string          `json:"clientId"`
	Name     string          `json:"name,omitempty"`
	Result   json.RawMessage `json:"result"`
}

type SaveDesignResponse struct {
	JobID string `json:"jobId"`
}
