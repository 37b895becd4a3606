package usecase_test

import (
	"context"
	"strings"
	"sync"

	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
)

// mockGenerator is a mock interfaces.Generator recording every prompt
type mockGenerator struct {
	mu         sync.Mutex
	prompts    []string
	maxTokens  []int
	generateFn func(ctx context.Context, prompt string, maxTokens int) (string, error)
}

func (g *mockGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.maxTokens = append(g.maxTokens, maxTokens)
	g.mu.Unlock()

	if g.generateFn != nil {
		return g.generateFn(ctx, prompt, maxTokens)
	}
	return "default response", nil
}

func (g *mockGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func (g *mockGenerator) prompt(i int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompts[i]
}

// mockResolver returns gen for every provider, or err when set
type mockResolver struct {
	mu        sync.Mutex
	gen       interfaces.Generator
	err       error
	providers []types.Provider
}

func (r *mockResolver) Resolve(ctx context.Context, provider types.Provider, opts model.ProviderOptions) (interfaces.Generator, error) {
	r.mu.Lock()
	r.providers = append(r.providers, provider)
	r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	return r.gen, nil
}

// fakeSearcher returns fixed candidates and records the last query
type fakeSearcher struct {
	mu         sync.Mutex
	candidates []*model.Candidate
	err        error
	lastTag    string
	lastK      int
}

func (s *fakeSearcher) Search(ctx context.Context, query, tag string, k int) ([]*model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTag = tag
	s.lastK = k
	if s.err != nil {
		return nil, s.err
	}
	if len(s.candidates) > k {
		return s.candidates[:k], nil
	}
	return s.candidates, nil
}

func candidate(text, source string, score float64) *model.Candidate {
	return &model.Candidate{
		Chunk: &model.Chunk{
			ID:          model.NewChunkID(),
			Text:        text,
			SourceLabel: source,
		},
		Score: score,
	}
}

// keywordEmbedder maps each text to a vector counting occurrences of a fixed vocabulary
type keywordEmbedder struct{}

var vocabulary = []string{"cell", "mitochondria", "energy", "empire", "war", "atom", "photosynthesis"}

func (keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(vocabulary))
		lower := strings.ToLower(text)
		for j, word := range vocabulary {
			v[j] = float32(strings.Count(lower, word))
		}
		result[i] = v
	}
	return result, nil
}

// mcqResponse builds a well-formed multiple choice response
func mcqResponse(question, correct string, others ...string) string {
	var b strings.Builder
	b.WriteString("Question: " + question + "\n")
	letters := []string{"A", "B", "C", "D"}
	opts := append([]string{correct}, others...)
	for i, o := range opts {
		b.WriteString("Option " + letters[i] + ": " + o + "\n")
	}
	b.WriteString("Correct: " + correct + "\n")
	return b.String()
}
