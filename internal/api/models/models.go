package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// TextResponse is a plain-text reply whose status depends on the outcome.
// Process control endpoints answer this way so a console can show the body
// as-is.
type TextResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// NewTextResponse builds a text/plain response.
func NewTextResponse(status int, body string) *TextResponse {
	return &TextResponse{
		Status:      status,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(body),
	}
}

// Command models
type CommandRequestData struct {
	Command string `json:"command,omitempty" example:"say hello" doc:"Line written to the child's stdin; surrounding whitespace is trimmed"`
}

type CommandRequest struct {
	Body CommandRequestData
}

// Process status models
type StatusData struct {
	State     string     `json:"state" example:"running" enum:"idle,running" doc:"Supervisor state"`
	Running   bool       `json:"running" example:"true" doc:"Whether a child is recorded as running"`
	PID       int        `json:"pid,omitempty" example:"4242" doc:"Process ID of the running child"`
	StartedAt *time.Time `json:"started_at,omitempty" doc:"When the running child was spawned"`
	Uptime    string     `json:"uptime,omitempty" example:"1h2m3s" doc:"Time since the child was spawned"`
	Command   string     `json:"command" example:"java -Xmx2G -jar server.jar nogui" doc:"Running command, or the one the next start will use"`
}

type StatusResponse struct {
	Body StatusData
}
