package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/warden/internal/api/models"
	"github.com/smazurov/warden/internal/process"
)

// Controller is the supervisor surface the API drives.
type Controller interface {
	Start(ctx context.Context) (process.StartResult, error)
	Stop(ctx context.Context) (process.StopResult, error)
	SendCommand(ctx context.Context, command string) error
	Status() process.Info
}

// statusFor maps a supervisor error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, process.ErrEmptyCommand):
		return http.StatusBadRequest
	case errors.Is(err, process.ErrNotRunning), errors.Is(err, process.ErrAlreadyRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorText(err error) *models.TextResponse {
	return models.NewTextResponse(statusFor(err), err.Error())
}

// registerProcessRoutes registers the process control endpoints.
func (s *Server) registerProcessRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "start-process",
		Method:      http.MethodPost,
		Path:        "/api/start",
		Summary:     "Start Process",
		Description: "Spawn the configured child process with piped stdin, stdout and stderr",
		Tags:        []string{"process"},
		Security:    withAuth(),
		Errors:      []int{401, 409, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.TextResponse, error) {
		res, err := s.controller.Start(ctx)
		if err != nil {
			return errorText(err), nil
		}
		return models.NewTextResponse(http.StatusOK, res.Message), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-process",
		Method:      http.MethodPost,
		Path:        "/api/stop",
		Summary:     "Stop Process",
		Description: "Force-kill the running child. Succeeds when nothing is running.",
		Tags:        []string{"process"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.TextResponse, error) {
		res, err := s.controller.Stop(ctx)
		if err != nil {
			return errorText(err), nil
		}
		return models.NewTextResponse(http.StatusOK, res.Message), nil
	})

	sendCommand := func(ctx context.Context, input *models.CommandRequest) (*models.TextResponse, error) {
		if err := s.controller.SendCommand(ctx, input.Body.Command); err != nil {
			return errorText(err), nil
		}
		return models.NewTextResponse(http.StatusOK, process.CommandSentMessage(input.Body.Command)), nil
	}

	for _, op := range []struct{ id, path string }{
		{"send-command", "/api/command"},
		{"send-command-alias", "/api/send-command"},
	} {
		huma.Register(s.api, huma.Operation{
			OperationID: op.id,
			Method:      http.MethodPost,
			Path:        op.path,
			Summary:     "Send Command",
			Description: "Write one line to the child's stdin. The command is echoed to log viewers first.",
			Tags:        []string{"process"},
			Security:    withAuth(),
			Errors:      []int{400, 401, 409, 500},
		}, sendCommand)
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-process-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Process Status",
		Description: "Snapshot of the supervised child",
		Tags:        []string{"process"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{Body: statusData(s.controller.Status())}, nil
	})
}

func statusData(info process.Info) models.StatusData {
	data := models.StatusData{
		State:   string(info.State),
		Running: info.State == process.StateRunning,
		PID:     info.PID,
		Command: info.Command,
	}
	if data.Running && !info.StartedAt.IsZero() {
		started := info.StartedAt
		data.StartedAt = &started
		data.Uptime = time.Since(started).Round(time.Second).String()
	}
	return data
}
