package http

import (
	"net/http"
	"strings"

	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/usecase"
)

// routeHandler passes the JSON payload to the router, which decides the
// pipeline and the status code
func (s *Server) routeHandler(feature string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload map[string]any
		if err := decodeJSON(r, &payload); err != nil {
			writeError(ctx, w, err)
			return
		}

		res := s.uc.Router.Route(ctx, feature, payload)
		writeJSON(ctx, w, res.Status, res.Body)
	}
}

type summarizeRequest struct {
	Text      string   `json:"text"`
	NoteIDs   []string `json:"note_ids"`
	Filenames []string `json:"filenames"`
}

func (s *Server) summarizeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req summarizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	ids := req.NoteIDs
	if len(ids) == 0 {
		ids = req.Filenames
	}

	summary, err := s.uc.Summarize.Summarize(ctx, usecase.SummarizeRequest{
		Text:    req.Text,
		NoteIDs: toNoteIDs(ids),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, summary)
}

type evidenceRequest struct {
	Question string `json:"question"`
	Subject  string `json:"subject"`
	TopK     int    `json:"top_k"`
}

type evidenceItem struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Tag    string  `json:"tag"`
	Index  int     `json:"index"`
	Score  float64 `json:"score"`
}

type evidenceResponse struct {
	Evidence []evidenceItem `json:"evidence"`
}

func (s *Server) evidenceHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req evidenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(ctx, w, usecase.ErrInvalidRequest)
		return
	}

	subject := req.Subject
	if model.IsAllBuckets(subject) {
		subject = ""
	}

	candidates, err := s.uc.Retriever.Evidence(ctx, req.Question, subject, req.TopK)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp := evidenceResponse{Evidence: make([]evidenceItem, 0, len(candidates))}
	for _, c := range candidates {
		if c == nil || c.Chunk == nil {
			continue
		}
		resp.Evidence = append(resp.Evidence, evidenceItem{
			Text:   c.Chunk.Text,
			Source: c.Chunk.SourceLabel,
			Tag:    c.Chunk.Tag,
			Index:  c.Chunk.Index,
			Score:  c.Score,
		})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func toNoteIDs(ids []string) []model.NoteID {
	var result []model.NoteID
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			result = append(result, model.NoteID(id))
		}
	}
	return result
}
