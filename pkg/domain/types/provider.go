package types

import "fmt"

// Provider identifies the text generation backend selected by a request
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// AllProviders returns every provider accepted by the router
func AllProviders() []Provider {
	return []Provider{
		ProviderLocal,
		ProviderGemini,
		ProviderOpenAI,
	}
}

// IsValid checks if the provider is in the allow-list
func (p Provider) IsValid() bool {
	switch p {
	case ProviderLocal,
		ProviderGemini,
		ProviderOpenAI:
		return true
	default:
		return false
	}
}

// Normalize returns the provider, treating empty as ProviderLocal
func (p Provider) Normalize() Provider {
	if p == "" {
		return ProviderLocal
	}
	return p
}

func (p Provider) String() string {
	return string(p)
}

// ParseProvider parses a string into a Provider. Empty input means ProviderLocal.
func ParseProvider(s string) (Provider, error) {
	p := Provider(s).Normalize()
	if !p.IsValid() {
		return "", fmt.Errorf("invalid provider: %s", s)
	}
	return p, nil
}
