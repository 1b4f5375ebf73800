package models

import "time"

// SubmitResponse is the immediate acknowledgment for POST /api/v1/scrape.
type SubmitResponse struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// JobResponse is the response for GET /api/v1/jobs/:id.
type JobResponse struct {
	JobID       string     `json:"job_id"`
	URL         string     `json:"url"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Result is the terminal payload, present once the job is terminal.
	Result *Payload `json:"result,omitempty"`
}

// NewJobResponse renders a job snapshot for the API.
func NewJobResponse(j Job) JobResponse {
	resp := JobResponse{
		JobID:     j.ID,
		URL:       j.URL,
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
		Result:    j.Payload,
	}
	if !j.CompletedAt.IsZero() {
		t := j.CompletedAt
		resp.CompletedAt = &t
	}
	return resp
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status            string   `json:"status"` // "healthy" or "degraded"
	Uptime            string   `json:"uptime"`
	Jobs              JobStats `json:"jobs"`
	ProxyConfigured   bool     `json:"proxy_configured"`
	CookiesConfigured bool     `json:"cookies_configured"`
	Version           string   `json:"version"`
}

// JobStats reports coordinator load.
type JobStats struct {
	MaxConcurrent int `json:"max_concurrent"`
	Running       int `json:"running"`
	Queued        int `json:"queued"`
	Tracked       int `json:"tracked"`
}

// ErrorResponse wraps a synchronous API error.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}
