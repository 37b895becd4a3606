package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/model"
)

type noteRepository struct {
	mu    sync.RWMutex
	notes map[model.NoteID]*model.Note
}

func newNoteRepository() *noteRepository {
	return &noteRepository{
		notes: make(map[model.NoteID]*model.Note),
	}
}

func copyNote(n *model.Note) *model.Note {
	copied := *n
	return &copied
}

func (r *noteRepository) Create(ctx context.Context, note *model.Note) (*model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyNote(note)
	if created.ID == "" {
		created.ID = model.NewNoteID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.notes[created.ID] = created
	return copyNote(created), nil
}

func (r *noteRepository) Get(ctx context.Context, id model.NoteID) (*model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	note, exists := r.notes[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
	}
	return copyNote(note), nil
}

func (r *noteRepository) List(ctx context.Context, bucket string) ([]*model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Note, 0, len(r.notes))
	for _, n := range r.notes {
		if bucket != "" && n.Bucket != bucket {
			continue
		}
		result = append(result, copyNote(n))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *noteRepository) UpdateContent(ctx context.Context, id model.NoteID, content string) (*model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	note, exists := r.notes[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
	}
	note.Content = content
	note.UpdatedAt = time.Now().UTC()
	return copyNote(note), nil
}

func (r *noteRepository) Delete(ctx context.Context, id model.NoteID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notes[id]; !exists {
		return goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
	}
	delete(r.notes, id)
	return nil
}
