package llm

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
)

const defaultEncoding = "cl100k_base"

// Tokenizer truncates text to a token budget. It uses a BPE encoding when
// available and falls back to whitespace words otherwise.
type Tokenizer struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
}

// NewTokenizer creates a Tokenizer for the named tiktoken encoding. An empty
// encoding disables BPE and always counts whitespace words.
func NewTokenizer(encoding string) *Tokenizer {
	return &Tokenizer{encoding: encoding}
}

func (t *Tokenizer) init() {
	t.once.Do(func() {
		if t.encoding == "" {
			return
		}
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			logging.Default().Warn("tiktoken encoding unavailable, counting words instead",
				"encoding", t.encoding,
				"error", err.Error())
			return
		}
		t.enc = enc
	})
}

// Count returns the number of tokens in text
func (t *Tokenizer) Count(text string) int {
	t.init()
	if t.enc != nil {
		return len(t.enc.Encode(text, nil, nil))
	}
	return len(strings.Fields(text))
}

// Truncate returns text cut to at most maxTokens tokens. A non-positive
// maxTokens returns text unchanged.
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}

	t.init()
	if t.enc != nil {
		tokens := t.enc.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return strings.TrimSpace(t.enc.Decode(tokens[:maxTokens]))
	}

	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}
	return strings.Join(words[:maxTokens], " ")
}
