package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/service/evidence"
	"github.com/secmon-lab/studypal/pkg/service/extract"
	"github.com/secmon-lab/studypal/pkg/service/task"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
)

const previewLength = 200

// DocumentIndexer replaces and removes the indexed chunks of a source
type DocumentIndexer interface {
	AddDocument(ctx context.Context, doc evidence.Document) (int, error)
	RemoveDocument(ctx context.Context, sourceID string) (int, error)
}

// TaskSubmitter runs work in the background and returns its task ID immediately
type TaskSubmitter interface {
	Submit(ctx context.Context, name string, fn task.Func) model.TaskID
}

// IndexResult is the result value of a background indexing task
type IndexResult struct {
	NoteID model.NoteID `json:"note_id"`
	Chunks int          `json:"chunks"`
}

// CreateNoteResult is returned after a typed note is stored and indexed
type CreateNoteResult struct {
	Note   *model.Note
	Chunks int
}

// UploadResult is returned after an upload is stored and its indexing submitted
type UploadResult struct {
	Note           *model.Note
	Filename       string
	ContentPreview string
	TaskID         model.TaskID
}

// ReprocessResult is returned after a stored file is extracted and re-indexed again
type ReprocessResult struct {
	Note    *model.Note
	Preview string
	Chunks  int
}

// NoteUseCase manages notes and keeps the evidence index in sync with them
type NoteUseCase struct {
	notes   interfaces.NoteRepository
	storage interfaces.FileStorage
	indexer DocumentIndexer
	tasks   TaskSubmitter
}

func NewNoteUseCase(notes interfaces.NoteRepository, storage interfaces.FileStorage, indexer DocumentIndexer, tasks TaskSubmitter) *NoteUseCase {
	return &NoteUseCase{
		notes:   notes,
		storage: storage,
		indexer: indexer,
		tasks:   tasks,
	}
}

// IndexNote replaces every chunk of note with chunks of its current content
func (uc *NoteUseCase) IndexNote(ctx context.Context, note *model.Note) (int, error) {
	bucket := note.Bucket
	if bucket == "" {
		bucket = model.DefaultBucket
	}

	n, err := uc.indexer.AddDocument(ctx, evidence.Document{
		SourceID:    note.ID.String(),
		SourceLabel: note.Label(),
		Tag:         bucket,
		Text:        note.Content,
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to index note", goerr.V(NoteIDKey, note.ID))
	}
	return n, nil
}

func (uc *NoteUseCase) submitIndex(ctx context.Context, note *model.Note) model.TaskID {
	return uc.tasks.Submit(ctx, "index:"+note.Label(), func(ctx context.Context) (any, error) {
		n, err := uc.IndexNote(ctx, note)
		if err != nil {
			return nil, err
		}
		return &IndexResult{NoteID: note.ID, Chunks: n}, nil
	})
}

// CreateNote stores a typed note and indexes it before returning
func (uc *NoteUseCase) CreateNote(ctx context.Context, title, content, bucket string) (*CreateNoteResult, error) {
	title = strings.TrimSpace(title)
	bucket = strings.TrimSpace(bucket)
	if title == "" || strings.TrimSpace(content) == "" || bucket == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "title, content and bucket are required")
	}

	note, err := uc.notes.Create(ctx, &model.Note{
		Title:   title,
		Content: content,
		Bucket:  bucket,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create note")
	}

	n, err := uc.IndexNote(ctx, note)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("Note saved and indexed", NoteIDKey, note.ID, "chunks", n)
	return &CreateNoteResult{Note: note, Chunks: n}, nil
}

// ListNotes returns the notes of bucket. An empty bucket lists every note.
func (uc *NoteUseCase) ListNotes(ctx context.Context, bucket string) ([]*model.Note, error) {
	if model.IsAllBuckets(bucket) {
		bucket = ""
	}
	notes, err := uc.notes.List(ctx, bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes", goerr.V("bucket", bucket))
	}
	return notes, nil
}

// DeleteNote removes a note, its chunks and its stored file
func (uc *NoteUseCase) DeleteNote(ctx context.Context, id model.NoteID) error {
	note, err := uc.getNote(ctx, id)
	if err != nil {
		return err
	}

	if _, err := uc.indexer.RemoveDocument(ctx, id.String()); err != nil {
		return goerr.Wrap(err, "failed to remove note chunks", goerr.V(NoteIDKey, id))
	}

	if note.FilePath != "" && uc.storage != nil {
		if err := uc.storage.Delete(ctx, note.FilePath); err != nil {
			logging.From(ctx).Warn("Failed to delete note file",
				NoteIDKey, id,
				"path", note.FilePath,
				"error", err.Error())
		}
	}

	if err := uc.notes.Delete(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete note", goerr.V(NoteIDKey, id))
	}
	return nil
}

// Upload extracts the text of an uploaded file, stores the file and the note,
// and submits indexing in the background. The note is searchable once the
// returned task is done.
func (uc *NoteUseCase) Upload(ctx context.Context, filename, bucket string, r io.Reader) (*UploadResult, error) {
	filename = sanitizeFilename(filename)
	if filename == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "no selected file")
	}
	if !extract.IsSupported(filename) {
		return nil, goerr.Wrap(ErrInvalidRequest, "unsupported file type",
			goerr.V("filename", filename),
			goerr.V("supported", extract.SupportedExtensions()))
	}
	if strings.TrimSpace(bucket) == "" {
		bucket = model.DefaultBucket
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read upload", goerr.V("filename", filename))
	}

	text, err := extract.Text(ctx, filename, bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract text", goerr.V("filename", filename))
	}
	if text == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "could not extract text from file", goerr.V("filename", filename))
	}

	noteID := model.NewNoteID()
	var filePath string
	if uc.storage != nil {
		filePath = path.Join("uploads", noteID.String(), filename)
		if err := uc.storage.Put(ctx, filePath, bytes.NewReader(data)); err != nil {
			return nil, goerr.Wrap(err, "failed to store upload", goerr.V("path", filePath))
		}
	}

	note, err := uc.notes.Create(ctx, &model.Note{
		ID:       noteID,
		Title:    filename,
		Content:  text,
		Bucket:   bucket,
		FilePath: filePath,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create note", goerr.V("filename", filename))
	}

	taskID := uc.submitIndex(ctx, note)
	logging.From(ctx).Info("Scheduled background indexing",
		"filename", filename,
		NoteIDKey, note.ID,
		"task_id", taskID)

	return &UploadResult{
		Note:           note,
		Filename:       filename,
		ContentPreview: preview(text),
		TaskID:         taskID,
	}, nil
}

// Reprocess downloads the stored file of a note, extracts its text again,
// replaces the note content and re-indexes it. filePath overrides the path
// recorded on the note when given.
func (uc *NoteUseCase) Reprocess(ctx context.Context, id model.NoteID, filePath string) (*ReprocessResult, error) {
	if id == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "note id is required")
	}

	note, err := uc.getNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if filePath == "" {
		filePath = note.FilePath
	}
	if filePath == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "note has no stored file", goerr.V(NoteIDKey, id))
	}

	loader := &noteLoader{notes: uc.notes, storage: uc.storage}
	text, err := loader.readFile(ctx, filePath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read stored file", goerr.V(NoteIDKey, id))
	}
	if text == "" {
		return nil, goerr.New("failed to extract text", goerr.V(NoteIDKey, id), goerr.V("path", filePath))
	}

	updated, err := uc.notes.UpdateContent(ctx, id, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update note content", goerr.V(NoteIDKey, id))
	}

	n, err := uc.IndexNote(ctx, updated)
	if err != nil {
		return nil, err
	}

	return &ReprocessResult{
		Note:    updated,
		Preview: truncateRunes(text, 100),
		Chunks:  n,
	}, nil
}

// Rehydrate submits one indexing task per stored note with content. It is run
// at startup so that an in-memory index matches the notes store.
func (uc *NoteUseCase) Rehydrate(ctx context.Context) ([]model.TaskID, error) {
	notes, err := uc.notes.List(ctx, "")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes for rehydration")
	}

	var ids []model.TaskID
	for _, note := range notes {
		if strings.TrimSpace(note.Content) == "" {
			continue
		}
		ids = append(ids, uc.submitIndex(ctx, note))
	}

	logging.From(ctx).Info("Submitted rehydration tasks", "notes", len(notes), "tasks", len(ids))
	return ids, nil
}

func (uc *NoteUseCase) getNote(ctx context.Context, id model.NoteID) (*model.Note, error) {
	note, err := uc.notes.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, goerr.Wrap(ErrNoteNotFound, "note does not exist", goerr.V(NoteIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get note", goerr.V(NoteIDKey, id))
	}
	return note, nil
}

func preview(text string) string {
	if p := truncateRunes(text, previewLength); p != text {
		return p + "..."
	}
	return text
}

// sanitizeFilename keeps the base name with letters, digits, dot, dash and
// underscore. Spaces become underscores; anything else is dropped.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
