package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmbeddingDimension is the dimension of the embedding vector
// Gemini text-embedding-004 uses 768 dimensions
const EmbeddingDimension = 768

// AllBuckets is the bucket name clients send to search every bucket
const AllBuckets = "All Notes"

// IsAllBuckets reports whether tag selects every bucket. Empty means all buckets too.
func IsAllBuckets(tag string) bool {
	tag = strings.TrimSpace(tag)
	return tag == "" || strings.EqualFold(tag, AllBuckets)
}

// ChunkID is a UUID-based identifier for Chunk
type ChunkID string

// NewChunkID generates a new UUID v4 ChunkID
func NewChunkID() ChunkID {
	return ChunkID(uuid.New().String())
}

// Chunk is a piece of an indexed document. Chunks of one source are always
// replaced as a whole, never updated in place.
type Chunk struct {
	ID          ChunkID
	Text        string
	Tag         string // bucket or dataset subject
	SourceID    string // note ID or file path the chunk was cut from
	SourceLabel string // human readable label reported as a citation
	Index       int    // position of the chunk within its source
	Embedding   []float32
	CreatedAt   time.Time
}

// Candidate is a chunk returned by nearest-neighbour search with its relevance score.
// Higher scores are more relevant.
type Candidate struct {
	Chunk *Chunk
	Score float64
}
