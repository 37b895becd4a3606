package interfaces

import (
	"context"

	"github.com/secmon-lab/studypal/pkg/domain/model"
)

// NoteRepository defines the interface for note persistence
type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) (*model.Note, error)
	Get(ctx context.Context, id model.NoteID) (*model.Note, error)

	// List returns notes of bucket ordered by CreatedAt. An empty bucket lists every note.
	List(ctx context.Context, bucket string) ([]*model.Note, error)

	// UpdateContent replaces the text of a note
	UpdateContent(ctx context.Context, id model.NoteID, content string) (*model.Note, error)
	Delete(ctx context.Context, id model.NoteID) error
}
