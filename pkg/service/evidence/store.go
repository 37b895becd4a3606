package evidence

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/service/chunker"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
)

const defaultEmbedBatchSize = 16

// Document is a unit of text indexed under one source
type Document struct {
	SourceID    string
	SourceLabel string
	Tag         string
	Text        string
}

// Store chunks, embeds and searches documents. Writers are serialized and hold
// the write lock for a whole replace-batch, so a search never observes a source
// with only part of its chunks.
type Store struct {
	mu        sync.RWMutex
	repo      interfaces.ChunkRepository
	embedder  interfaces.Embedder
	splitter  *chunker.Splitter
	batchSize int
}

type Option func(*Store)

func WithSplitter(s *chunker.Splitter) Option {
	return func(st *Store) {
		st.splitter = s
	}
}

func WithEmbedBatchSize(n int) Option {
	return func(st *Store) {
		if n > 0 {
			st.batchSize = n
		}
	}
}

func New(repo interfaces.ChunkRepository, embedder interfaces.Embedder, opts ...Option) *Store {
	s := &Store{
		repo:      repo,
		embedder:  embedder,
		splitter:  chunker.New(),
		batchSize: defaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddDocument replaces every chunk of doc.SourceID with freshly cut and embedded
// chunks of doc.Text. It returns the number of chunks stored.
func (s *Store) AddDocument(ctx context.Context, doc Document) (int, error) {
	if doc.SourceID == "" {
		return 0, goerr.New("source ID is required")
	}

	texts, err := s.splitter.Split(doc.Text)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to split document", goerr.V("source_id", doc.SourceID))
	}

	embeddings, err := s.embed(ctx, texts)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to embed document", goerr.V("source_id", doc.SourceID))
	}

	chunks := make([]*model.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &model.Chunk{
			ID:          model.NewChunkID(),
			Text:        text,
			Tag:         doc.Tag,
			SourceID:    doc.SourceID,
			SourceLabel: doc.SourceLabel,
			Index:       i,
			Embedding:   embeddings[i],
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.repo.DeleteBySource(ctx, doc.SourceID)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to remove previous chunks", goerr.V("source_id", doc.SourceID))
	}
	if err := s.repo.PutBatch(ctx, chunks); err != nil {
		return 0, goerr.Wrap(err, "failed to store chunks", goerr.V("source_id", doc.SourceID))
	}

	logging.From(ctx).Info("Indexed document",
		"source_id", doc.SourceID,
		"tag", doc.Tag,
		"chunks", len(chunks),
		"replaced", removed,
	)
	return len(chunks), nil
}

// RemoveDocument deletes every chunk of sourceID
func (s *Store) RemoveDocument(ctx context.Context, sourceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.repo.DeleteBySource(ctx, sourceID)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to remove chunks", goerr.V("source_id", sourceID))
	}
	return n, nil
}

// Search returns up to k chunks nearest to query. A tag selecting all buckets
// searches every chunk.
func (s *Store) Search(ctx context.Context, query, tag string, k int) ([]*model.Candidate, error) {
	if model.IsAllBuckets(tag) {
		tag = ""
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}
	if len(vectors) != 1 {
		return nil, goerr.New("unexpected number of query embeddings", goerr.V("count", len(vectors)))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates, err := s.repo.FindNearest(ctx, vectors[0], tag, k)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search chunks", goerr.V("tag", tag), goerr.V("k", k))
	}
	return candidates, nil
}

func (s *Store) embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))

		vectors, err := s.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, goerr.New("embedding count mismatch",
				goerr.V("expected", end-start),
				goerr.V("actual", len(vectors)))
		}
		result = append(result, vectors...)
	}
	return result, nil
}
