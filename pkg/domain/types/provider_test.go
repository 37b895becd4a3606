package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/studypal/pkg/domain/types"
)

func TestProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider types.Provider
		want     bool
	}{
		{name: "local", provider: types.ProviderLocal, want: true},
		{name: "gemini", provider: types.ProviderGemini, want: true},
		{name: "openai", provider: types.ProviderOpenAI, want: true},
		{name: "unknown", provider: types.Provider("anthropic"), want: false},
		{name: "empty", provider: types.Provider(""), want: false},
		{name: "case sensitive", provider: types.Provider("Gemini"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.provider.IsValid()).Equal(tt.want)
		})
	}
}

func TestParseProvider(t *testing.T) {
	t.Run("empty defaults to local", func(t *testing.T) {
		p, err := types.ParseProvider("")
		gt.NoError(t, err).Required()
		gt.Value(t, p).Equal(types.ProviderLocal)
	})

	t.Run("known provider", func(t *testing.T) {
		p, err := types.ParseProvider("openai")
		gt.NoError(t, err).Required()
		gt.Value(t, p).Equal(types.ProviderOpenAI)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := types.ParseProvider("mystery")
		gt.Error(t, err)
	})

	t.Run("all providers are valid", func(t *testing.T) {
		for _, p := range types.AllProviders() {
			gt.B(t, p.IsValid()).True()
		}
	})
}
