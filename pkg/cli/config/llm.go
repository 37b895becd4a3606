package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
	"github.com/secmon-lab/studypal/pkg/service/llm"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
	"github.com/urfave/cli/v3"
)

// LLM holds configuration for the generation and embedding providers
type LLM struct {
	geminiProject  string
	geminiLocation string
	geminiModel    string
	openaiAPIKey   string
	openaiModel    string
	localProvider  string
	timeout        time.Duration
	rateLimit      float64
	rateBurst      int
	dimension      int

	// replaced in tests
	geminiFactory llm.GeminiFactory
	openaiFactory llm.OpenAIFactory
}

// Flags returns CLI flags for LLM configuration
func (l *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Category:    "LLM",
			Sources:     cli.EnvVars("STUDYPAL_GEMINI_PROJECT"),
			Destination: &l.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Category:    "LLM",
			Sources:     cli.EnvVars("STUDYPAL_GEMINI_LOCATION"),
			Destination: &l.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name (provider default when empty)",
			Category:    "LLM",
			Sources:     cli.EnvVars("STUDYPAL_GEMINI_MODEL"),
			Destination: &l.geminiModel,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Category:    "LLM",
			Sources:     cli.EnvVars("STUDYPAL_OPENAI_API_KEY"),
			Destination: &l.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Usage:       "OpenAI model name (provider default when empty)",
			Category:    "LLM",
			Sources:     cli.EnvVars("STUDYPAL_OPENAI_MODEL"),
			Destination: &l.openaiModel,
		},
		&cli.StringFlag{
			Name:        "llm-local-provider",
			Usage:       "Provider serving the local model and embeddings (gemini or openai)",
			Value:       "gemini",
			Category:    "LLM",
			Sources:     cli.EnvVars("STUDYPAL_LLM_LOCAL_PROVIDER"),
			Destination: &l.localProvider,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Deadline of a single generation or embedding call",
			Value:       60 * time.Second,
			Category:    "LLM",
			Sources:     cli.EnvVars("STUDYPAL_LLM_TIMEOUT"),
			Destination: &l.timeout,
		},
		&cli.FloatFlag{
			Name:        "llm-rate-limit",
			Usage:       "Generation calls per second per provider (0 disables limiting)",
			Value:       2,
			Category:    "LLM",
			Sources:     cli.EnvVars("STUDYPAL_LLM_RATE_LIMIT"),
			Destination: &l.rateLimit,
		},
		&cli.IntFlag{
			Name:        "llm-rate-burst",
			Usage:       "Burst of generation calls allowed by the rate limiter",
			Value:       4,
			Category:    "LLM",
			Sources:     cli.EnvVars("STUDYPAL_LLM_RATE_BURST"),
			Destination: &l.rateBurst,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Dimension of embedding vectors",
			Value:       model.EmbeddingDimension,
			Category:    "LLM",
			Sources:     cli.EnvVars("STUDYPAL_EMBEDDING_DIMENSION"),
			Destination: &l.dimension,
		},
	}
}

func (l LLM) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("gemini_project", l.geminiProject),
		slog.String("gemini_location", l.geminiLocation),
		slog.String("gemini_model", l.geminiModel),
		slog.Bool("openai_configured", l.openaiAPIKey != ""),
		slog.String("openai_model", l.openaiModel),
		slog.String("local_provider", l.localProvider),
		slog.Duration("timeout", l.timeout),
		slog.Float64("rate_limit", l.rateLimit),
		slog.Int("embedding_dimension", l.dimension),
	)
}

// Dimension returns the configured embedding dimension
func (l *LLM) Dimension() int {
	return l.dimension
}

func (l *LLM) clientOptions(m *metrics.Collector) []llm.ClientOption {
	return []llm.ClientOption{
		llm.WithTimeout(l.timeout),
		llm.WithRateLimit(l.rateLimit, l.rateBurst),
		llm.WithEmbeddingDimension(l.dimension),
		llm.WithMetrics(m),
	}
}

// Configure builds the provider resolver. The returned client serves the
// local provider and embeddings.
func (l *LLM) Configure(ctx context.Context, m *metrics.Collector) (*llm.Resolver, *llm.Client, error) {
	geminiFactory := l.geminiFactory
	if geminiFactory == nil {
		geminiFactory = llm.NewGemini
	}
	openaiFactory := l.openaiFactory
	if openaiFactory == nil {
		openaiFactory = llm.NewOpenAI
	}

	if l.dimension <= 0 {
		return nil, nil, goerr.Wrap(ErrInvalidConfig, "embedding-dimension must be positive", goerr.V("value", l.dimension))
	}

	opts := l.clientOptions(m)
	clients := make(map[types.Provider]*llm.Client)

	if l.geminiProject != "" {
		c, err := geminiFactory(ctx, l.geminiProject, l.geminiLocation, l.geminiModel)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to configure gemini")
		}
		clients[types.ProviderGemini] = llm.NewClient(types.ProviderGemini.String(), c, opts...)
	}
	if l.openaiAPIKey != "" {
		c, err := openaiFactory(ctx, l.openaiAPIKey, l.openaiModel)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to configure openai")
		}
		clients[types.ProviderOpenAI] = llm.NewClient(types.ProviderOpenAI.String(), c, opts...)
	}

	local, err := types.ParseProvider(l.localProvider)
	if err != nil || local == types.ProviderLocal {
		return nil, nil, goerr.Wrap(ErrInvalidConfig, "llm-local-provider must be gemini or openai",
			goerr.V(FlagKey, "llm-local-provider"),
			goerr.V("value", l.localProvider))
	}

	localClient, ok := clients[local]
	if !ok {
		return nil, nil, goerr.Wrap(ErrMissingRequired, "local provider is not configured",
			goerr.V("provider", local))
	}

	resolverOpts := []llm.ResolverOption{
		llm.WithProviderClient(types.ProviderLocal, localClient),
		llm.WithGeminiFactory(geminiFactory),
		llm.WithOpenAIFactory(openaiFactory),
		llm.WithRequestClientOptions(opts...),
	}
	for provider, c := range clients {
		resolverOpts = append(resolverOpts, llm.WithProviderClient(provider, c))
	}

	logging.Default().Info("LLM providers configured",
		"local", local,
		"gemini", clients[types.ProviderGemini] != nil,
		"openai", clients[types.ProviderOpenAI] != nil,
	)

	return llm.NewResolver(resolverOpts...), localClient, nil
}
