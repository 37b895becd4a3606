package usecase

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
)

const (
	// DefaultFetchK is the number of candidates fetched from the evidence store, independent of topK
	DefaultFetchK = 5

	// DefaultScoreThreshold drops candidates whose cosine similarity is below it
	DefaultScoreThreshold = 0.2

	// DefaultMaxChunks is the number of candidates kept for answer synthesis
	DefaultMaxChunks = 2

	// MaxEvidenceK caps the candidates returned by Evidence
	MaxEvidenceK = 100

	// DefaultWordBudget caps the words of the assembled context
	DefaultWordBudget = 350

	contextSeparator = "\n---\n"
)

// EvidenceSearcher returns the k nearest chunks for query within tag
type EvidenceSearcher interface {
	Search(ctx context.Context, query, tag string, k int) ([]*model.Candidate, error)
}

// Retriever selects and assembles evidence for grounded answers
type Retriever struct {
	searcher   EvidenceSearcher
	fetchK     int
	threshold  float64
	maxChunks  int
	wordBudget int
	metrics    *metrics.Collector
}

type RetrieverOption func(*Retriever)

// WithScoreThreshold sets the minimum relevance score. Scores are cosine
// similarity in [-1, 1]; a negative threshold accepts every candidate.
func WithScoreThreshold(threshold float64) RetrieverOption {
	return func(r *Retriever) {
		r.threshold = threshold
	}
}

func WithMaxChunks(n int) RetrieverOption {
	return func(r *Retriever) {
		if n > 0 {
			r.maxChunks = n
		}
	}
}

func WithWordBudget(n int) RetrieverOption {
	return func(r *Retriever) {
		if n > 0 {
			r.wordBudget = n
		}
	}
}

func WithFetchK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.fetchK = k
		}
	}
}

func WithRetrieverMetrics(m *metrics.Collector) RetrieverOption {
	return func(r *Retriever) {
		r.metrics = m
	}
}

func NewRetriever(searcher EvidenceSearcher, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		searcher:   searcher,
		fetchK:     DefaultFetchK,
		threshold:  DefaultScoreThreshold,
		maxChunks:  DefaultMaxChunks,
		wordBudget: DefaultWordBudget,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve fetches candidates for query within tag, drops weak ones, keeps the
// best few and assembles them into a word-capped context. A retrieval with no
// surviving candidate has status no_evidence. A topK between 1 and the chunk cap
// lowers the cap; other values leave it unchanged.
func (r *Retriever) Retrieve(ctx context.Context, query, tag string, topK int) (*model.Retrieval, error) {
	candidates, err := r.searcher.Search(ctx, query, tag, r.fetchK)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search evidence", goerr.V("tag", tag))
	}

	kept := make([]*model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c.Chunk == nil || c.Score < r.threshold {
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	limit := r.maxChunks
	if topK > 0 && topK < limit {
		limit = topK
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}

	logger := logging.From(ctx)
	if len(kept) == 0 {
		logger.Info("No evidence met threshold",
			"tag", tag,
			"fetched", len(candidates),
			"threshold", r.threshold)
		r.metrics.RecordRetrieval(string(model.RetrievalNoEvidence), 0)
		return model.NoEvidence(), nil
	}

	assembled := r.assemble(kept)
	logger.Info("Assembled context",
		"tag", tag,
		"fetched", len(candidates),
		"kept", len(kept),
		"words", assembled.WordCount,
		"truncated", assembled.Truncated)
	r.metrics.RecordRetrieval(string(model.RetrievalFound), len(kept))

	return &model.Retrieval{
		Status:     model.RetrievalFound,
		Context:    assembled,
		Candidates: kept,
	}, nil
}

// assemble joins chunk texts with a separator until the word budget is spent.
// Sources are those of chunks that contributed text.
func (r *Retriever) assemble(candidates []*model.Candidate) *model.AssembledContext {
	var (
		parts   []string
		sources []string
		words   int
		result  = &model.AssembledContext{}
	)

	for _, c := range candidates {
		remaining := r.wordBudget - words
		if remaining <= 0 {
			result.Truncated = true
			break
		}

		fields := strings.Fields(c.Chunk.Text)
		if len(fields) == 0 {
			continue
		}

		text := strings.TrimSpace(c.Chunk.Text)
		if len(fields) > remaining {
			fields = fields[:remaining]
			text = strings.Join(fields, " ")
			result.Truncated = true
		}

		parts = append(parts, text)
		words += len(fields)
		if !slices.Contains(sources, c.Chunk.SourceLabel) {
			sources = append(sources, c.Chunk.SourceLabel)
		}
	}

	sort.Strings(sources)
	result.Text = strings.Join(parts, contextSeparator)
	result.UsedSources = sources
	result.WordCount = words
	return result
}

// Evidence returns the raw scored candidates for query without filtering or
// assembly. A non-positive topK fetches the default number of candidates and
// topK is capped at MaxEvidenceK.
func (r *Retriever) Evidence(ctx context.Context, query, tag string, topK int) ([]*model.Candidate, error) {
	if topK <= 0 {
		topK = r.fetchK
	}
	topK = min(topK, MaxEvidenceK)
	candidates, err := r.searcher.Search(ctx, query, tag, topK)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search evidence", goerr.V("tag", tag))
	}
	return candidates, nil
}
