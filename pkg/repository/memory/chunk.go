package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/secmon-lab/studypal/pkg/domain/model"
)

type chunkRepository struct {
	mu     sync.RWMutex
	chunks map[model.ChunkID]*model.Chunk
}

func newChunkRepository() *chunkRepository {
	return &chunkRepository{
		chunks: make(map[model.ChunkID]*model.Chunk),
	}
}

// copyChunk creates a deep copy of a chunk
func copyChunk(c *model.Chunk) *model.Chunk {
	copied := *c
	if c.Embedding != nil {
		copied.Embedding = make([]float32, len(c.Embedding))
		copy(copied.Embedding, c.Embedding)
	}
	return &copied
}

func (r *chunkRepository) PutBatch(ctx context.Context, chunks []*model.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, c := range chunks {
		stored := copyChunk(c)
		if stored.ID == "" {
			stored.ID = model.NewChunkID()
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		r.chunks[stored.ID] = stored
	}
	return nil
}

func (r *chunkRepository) DeleteBySource(ctx context.Context, sourceID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, c := range r.chunks {
		if c.SourceID == sourceID {
			delete(r.chunks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *chunkRepository) ListBySource(ctx context.Context, sourceID string) ([]*model.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Chunk, 0)
	for _, c := range r.chunks {
		if c.SourceID == sourceID {
			result = append(result, copyChunk(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})
	return result, nil
}

func (r *chunkRepository) FindNearest(ctx context.Context, embedding []float32, tag string, limit int) ([]*model.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]*model.Candidate, 0, len(r.chunks))
	for _, c := range r.chunks {
		if tag != "" && c.Tag != tag {
			continue
		}
		if len(c.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, &model.Candidate{
			Chunk: copyChunk(c),
			Score: cosineSimilarity(embedding, c.Embedding),
		})
	}

	// Map iteration order is random; tie-break on source position so that
	// repeated searches over the same data return the same order.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Chunk.SourceID != candidates[j].Chunk.SourceID {
			return candidates[i].Chunk.SourceID < candidates[j].Chunk.SourceID
		}
		return candidates[i].Chunk.Index < candidates[j].Chunk.Index
	})

	if limit >= 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
