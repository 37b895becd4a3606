package llm

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
)

// Provider option keys accepted in provider_options
const (
	OptionAPIKey   = "api_key"
	OptionModel    = "model"
	OptionProject  = "project"
	OptionLocation = "location"
)

// GeminiFactory creates a Gemini client for a Vertex AI project
type GeminiFactory func(ctx context.Context, projectID, location, modelName string) (gollem.LLMClient, error)

// OpenAIFactory creates an OpenAI client for an API key
type OpenAIFactory func(ctx context.Context, apiKey, modelName string) (gollem.LLMClient, error)

// NewGemini is the default GeminiFactory
func NewGemini(ctx context.Context, projectID, location, modelName string) (gollem.LLMClient, error) {
	var opts []gemini.Option
	if modelName != "" {
		opts = append(opts, gemini.WithModel(modelName))
	}
	client, err := gemini.New(ctx, projectID, location, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client", goerr.V("project", projectID))
	}
	return client, nil
}

// NewOpenAI is the default OpenAIFactory
func NewOpenAI(ctx context.Context, apiKey, modelName string) (gollem.LLMClient, error) {
	var opts []openai.Option
	if modelName != "" {
		opts = append(opts, openai.WithModel(modelName))
	}
	client, err := openai.New(ctx, apiKey, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create OpenAI client")
	}
	return client, nil
}

// Resolver maps a request provider to a generator.
//
// local is the server's default client. gemini and openai use the server's
// configured client for that provider unless the request brings its own
// credentials in provider_options, in which case a client is built per request.
type Resolver struct {
	clients       map[types.Provider]*Client
	geminiFactory GeminiFactory
	openaiFactory OpenAIFactory
	clientOpts    []ClientOption
}

var _ interfaces.GeneratorResolver = &Resolver{}

type ResolverOption func(*Resolver)

// WithProviderClient registers the server configured client for provider
func WithProviderClient(provider types.Provider, client *Client) ResolverOption {
	return func(r *Resolver) {
		if client != nil {
			r.clients[provider] = client
		}
	}
}

func WithGeminiFactory(f GeminiFactory) ResolverOption {
	return func(r *Resolver) {
		r.geminiFactory = f
	}
}

func WithOpenAIFactory(f OpenAIFactory) ResolverOption {
	return func(r *Resolver) {
		r.openaiFactory = f
	}
}

// WithRequestClientOptions sets options applied to clients built per request
func WithRequestClientOptions(opts ...ClientOption) ResolverOption {
	return func(r *Resolver) {
		r.clientOpts = append(r.clientOpts, opts...)
	}
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		clients:       make(map[types.Provider]*Client),
		geminiFactory: NewGemini,
		openaiFactory: NewOpenAI,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the generator for provider. An unknown provider or a provider
// without backend returns an error wrapping model.ErrProviderUnavailable.
func (r *Resolver) Resolve(ctx context.Context, provider types.Provider, opts model.ProviderOptions) (interfaces.Generator, error) {
	provider = provider.Normalize()
	if !provider.IsValid() {
		return nil, goerr.Wrap(model.ErrProviderUnavailable, "unknown provider", goerr.V("provider", provider))
	}

	switch provider {
	case types.ProviderGemini:
		if project := opts.Get(OptionProject); project != "" {
			location := opts.Get(OptionLocation)
			if location == "" {
				location = "us-central1"
			}
			llmClient, err := r.geminiFactory(ctx, project, location, opts.Get(OptionModel))
			if err != nil {
				return nil, err
			}
			return NewClient(provider.String(), llmClient, r.clientOpts...), nil
		}

	case types.ProviderOpenAI:
		if apiKey := opts.Get(OptionAPIKey); apiKey != "" {
			llmClient, err := r.openaiFactory(ctx, apiKey, opts.Get(OptionModel))
			if err != nil {
				return nil, err
			}
			return NewClient(provider.String(), llmClient, r.clientOpts...), nil
		}
	}

	if client, ok := r.clients[provider]; ok {
		return client, nil
	}
	return nil, goerr.Wrap(model.ErrProviderUnavailable, "provider is not configured", goerr.V("provider", provider))
}

// Default returns the server's local client, or nil when none is configured
func (r *Resolver) Default() *Client {
	return r.clients[types.ProviderLocal]
}
