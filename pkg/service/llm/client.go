package llm

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/utils/async"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
	"golang.org/x/time/rate"
)

// Client adapts a gollem LLM client to the Generator and Embedder interfaces.
// Calls are rate limited and raced against a deadline; a call that misses the
// deadline is abandoned and its result discarded.
type Client struct {
	name         string
	llm          gollem.LLMClient
	systemPrompt string
	timeout      time.Duration
	limiter      *rate.Limiter
	tokenizer    *Tokenizer
	dimension    int
	metrics      *metrics.Collector
}

var (
	_ interfaces.Generator = &Client{}
	_ interfaces.Embedder  = &Client{}
)

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRateLimit allows rps calls per second with the given burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

func WithTokenizer(t *Tokenizer) ClientOption {
	return func(c *Client) {
		c.tokenizer = t
	}
}

func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) {
		c.systemPrompt = prompt
	}
}

func WithEmbeddingDimension(dim int) ClientOption {
	return func(c *Client) {
		c.dimension = dim
	}
}

func WithMetrics(m *metrics.Collector) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient wraps llmClient. name is used in logs and metrics.
func NewClient(name string, llmClient gollem.LLMClient, opts ...ClientOption) *Client {
	c := &Client{
		name:      name,
		llm:       llmClient,
		timeout:   60 * time.Second,
		tokenizer: NewTokenizer(defaultEncoding),
		dimension: model.EmbeddingDimension,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider name of the client
func (c *Client) Name() string {
	return c.name
}

// Generate runs a single-turn generation and caps the output at maxTokens
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	text, err := async.RaceDeadline(ctx, c.timeout, func(ctx context.Context) (string, error) {
		var sessionOpts []gollem.SessionOption
		if c.systemPrompt != "" {
			sessionOpts = append(sessionOpts, gollem.WithSessionSystemPrompt(c.systemPrompt))
		}

		session, err := c.llm.NewSession(ctx, sessionOpts...)
		if err != nil {
			return "", goerr.Wrap(err, "failed to create LLM session")
		}

		resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
		if err != nil {
			return "", goerr.Wrap(err, "failed to generate content from LLM")
		}
		if resp == nil || len(resp.Texts) == 0 {
			return "", goerr.New("LLM returned no text")
		}
		return strings.Join(resp.Texts, ""), nil
	})
	c.metrics.RecordLLM(c.name, "generate", err, time.Since(start))
	if err != nil {
		return "", goerr.Wrap(err, "generation failed", goerr.V("provider", c.name))
	}

	return c.tokenizer.Truncate(strings.TrimSpace(text), maxTokens), nil
}

// Embed returns one embedding per input text
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	vectors, err := async.RaceDeadline(ctx, c.timeout, func(ctx context.Context) ([][]float64, error) {
		return c.llm.GenerateEmbedding(ctx, c.dimension, texts)
	})
	c.metrics.RecordLLM(c.name, "embed", err, time.Since(start))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding", goerr.V("provider", c.name), goerr.V("count", len(texts)))
	}
	if len(vectors) != len(texts) {
		return nil, goerr.New("embedding count mismatch",
			goerr.V("expected", len(texts)),
			goerr.V("actual", len(vectors)))
	}

	// Convert float64 to float32
	result := make([][]float32, len(vectors))
	for i, v := range vectors {
		result[i] = make([]float32, len(v))
		for j, f := range v {
			result[i][j] = float32(f)
		}
	}
	return result, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return goerr.Wrap(err, "rate limiter wait failed", goerr.V("provider", c.name))
	}
	return nil
}
