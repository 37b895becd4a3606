package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/usecase"
	"github.com/secmon-lab/studypal/pkg/utils/safe"
)

type createNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Bucket  string `json:"bucket"`
}

type createNoteResponse struct {
	Message string `json:"message"`
	NoteID  string `json:"note_id"`
	Chunks  int    `json:"chunks"`
}

func (s *Server) createNoteHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := s.uc.Note.CreateNote(ctx, req.Title, req.Content, req.Bucket)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, createNoteResponse{
		Message: "Note saved and indexed successfully",
		NoteID:  res.Note.ID.String(),
		Chunks:  res.Chunks,
	})
}

func (s *Server) deleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := model.NoteID(chi.URLParam(r, "id"))

	if err := s.uc.Note.DeleteNote(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]string{"message": "Note deleted"})
}

type fileEntry struct {
	OriginalName string `json:"original_name"`
	BucketName   string `json:"bucket_name"`
	ID           string `json:"id"`
	FilePath     string `json:"file_path,omitempty"`
}

// listFilesHandler returns the notes of ?bucket= keyed by note ID
func (s *Server) listFilesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	notes, err := s.uc.Note.ListNotes(ctx, r.URL.Query().Get("bucket"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp := make(map[string]fileEntry, len(notes))
	for _, n := range notes {
		bucket := n.Bucket
		if bucket == "" {
			bucket = model.DefaultBucket
		}
		resp[n.ID.String()] = fileEntry{
			OriginalName: n.Title,
			BucketName:   bucket,
			ID:           n.ID.String(),
			FilePath:     n.FilePath,
		}
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

type uploadResponse struct {
	Message        string `json:"message"`
	Filename       string `json:"filename"`
	NoteID         string `json:"note_id"`
	ContentPreview string `json:"content_preview"`
	IndexingTaskID string `json:"indexing_task_id"`
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(ctx, w, goerr.Wrap(usecase.ErrInvalidRequest, "malformed multipart form", goerr.V("cause", err.Error())))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(ctx, w, goerr.Wrap(usecase.ErrInvalidRequest, "no file part"))
		return
	}
	defer safe.Close(ctx, file)

	res, err := s.uc.Note.Upload(ctx, header.Filename, r.FormValue("bucketName"), file)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, uploadResponse{
		Message:        "File uploaded, indexing started",
		Filename:       res.Filename,
		NoteID:         res.Note.ID.String(),
		ContentPreview: res.ContentPreview,
		IndexingTaskID: res.TaskID.String(),
	})
}

type reprocessRequest struct {
	NoteID   string `json:"noteId"`
	FilePath string `json:"filePath"`
}

type reprocessResponse struct {
	Message string `json:"message"`
	Preview string `json:"preview"`
	Chunks  int    `json:"chunks"`
}

func (s *Server) reprocessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req reprocessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := s.uc.Note.Reprocess(ctx, model.NoteID(req.NoteID), req.FilePath)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, reprocessResponse{
		Message: "Document reprocessed and indexed successfully",
		Preview: res.Preview,
		Chunks:  res.Chunks,
	})
}
