package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultBucket holds notes uploaded without a bucket
const DefaultBucket = "Uncategorized"

// NoteID is a UUID-based identifier for Note
type NoteID string

// NewNoteID generates a new UUID v4 NoteID
func NewNoteID() NoteID {
	return NoteID(uuid.New().String())
}

func (id NoteID) String() string {
	return string(id)
}

// Note is a user note stored in a bucket. Content holds the text; FilePath
// points at the original upload in file storage when the note came from a file.
type Note struct {
	ID        NoteID
	Title     string
	Content   string
	Bucket    string
	FilePath  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Label returns the citation label of the note
func (n *Note) Label() string {
	if n.Title != "" {
		return n.Title
	}
	if n.FilePath != "" {
		return n.FilePath
	}
	return string(n.ID)
}
