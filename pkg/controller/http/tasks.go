package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
)

type taskResponse struct {
	Name   string           `json:"name,omitempty"`
	Status types.TaskStatus `json:"status"`
	Result any              `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		Name:   t.Name,
		Status: t.Status,
		Result: t.Result,
		Error:  t.Error,
	}
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks := s.uc.Tasks.List()
	resp := make(map[string]taskResponse, len(tasks))
	for id, t := range tasks {
		resp[id.String()] = toTaskResponse(t)
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) taskHandler(w http.ResponseWriter, r *http.Request) {
	t := s.uc.Tasks.Status(model.TaskID(chi.URLParam(r, "id")))

	status := http.StatusOK
	if t.Status == types.TaskStatusNotFound {
		status = http.StatusNotFound
	}
	writeJSON(r.Context(), w, status, toTaskResponse(t))
}
