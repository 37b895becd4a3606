package interfaces

import (
	"context"

	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
)

// Generator produces text for a prompt. maxTokens bounds the length of the output.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Embedder turns texts into embedding vectors, one per input
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// GeneratorResolver returns the generator backing a provider. Options come from
// the request and may carry credentials such as api_key.
type GeneratorResolver interface {
	Resolve(ctx context.Context, provider types.Provider, opts model.ProviderOptions) (Generator, error)
}
