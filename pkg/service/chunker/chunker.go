package chunker

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// Splitter cuts documents into overlapping chunks on paragraph, line and word boundaries
type Splitter struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

type Option func(*Splitter)

func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		s.size = size
	}
}

func WithChunkOverlap(overlap int) Option {
	return func(s *Splitter) {
		s.overlap = overlap
	}
}

func New(opts ...Option) *Splitter {
	s := &Splitter{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.splitter = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.size),
		textsplitter.WithChunkOverlap(s.overlap),
	)
	return s
}

// Split returns the non-blank chunks of text in document order
func (s *Splitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	parts, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to split text", goerr.V("length", len(text)))
	}

	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, p)
	}
	return chunks, nil
}
