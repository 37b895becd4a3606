package interfaces

import (
	"context"

	"github.com/secmon-lab/studypal/pkg/domain/model"
)

// ChunkRepository defines the interface for chunk persistence and vector search
type ChunkRepository interface {
	// PutBatch stores all chunks. Existing chunks with the same ID are overwritten.
	PutBatch(ctx context.Context, chunks []*model.Chunk) error

	// DeleteBySource removes every chunk cut from sourceID and returns how many were removed
	DeleteBySource(ctx context.Context, sourceID string) (int, error)

	// ListBySource returns the chunks of sourceID ordered by Index
	ListBySource(ctx context.Context, sourceID string) ([]*model.Chunk, error)

	// FindNearest returns up to limit chunks closest to embedding, most relevant first.
	// An empty tag searches every tag.
	FindNearest(ctx context.Context, embedding []float32, tag string, limit int) ([]*model.Candidate, error)
}
