package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
)

//go:embed prompt/general.md
var generalPromptTmpl string

var generalPrompt = template.Must(template.New("general").Parse(generalPromptTmpl))

const (
	generalMaxTokens = 60
	fallbackGreeting = "Hey! How can I help you?"
	allBucketsLabel  = "all"
)

var roleMarkers = []string{"User:", "<|user|>", "Assistant:", "<|assistant|>"}

// metaReplyPrefixes are openings of replies that describe an answer instead of giving one
var metaReplyPrefixes = []string{
	"sure, here",
	"here is",
	"here's",
	"here are",
	"revised version",
	"chatbot script",
	"python script",
	"below is",
	"certainly",
}

// RAGChatResponse is the response of the notes-grounded chat pipeline
type RAGChatResponse struct {
	Content  string          `json:"content"`
	Sources  []string        `json:"sources"`
	Metadata RAGChatMetadata `json:"metadata"`
}

type RAGChatMetadata struct {
	Source      types.AnswerSource `json:"source"`
	BucketsUsed []string           `json:"buckets_used"`
	Confidence  types.Confidence   `json:"confidence"`
}

// GeneralChatResponse is the response of the general knowledge chat pipeline
type GeneralChatResponse struct {
	Content  string              `json:"content"`
	Metadata GeneralChatMetadata `json:"metadata"`
}

type GeneralChatMetadata struct {
	Source     types.AnswerSource `json:"source"`
	Provider   types.Provider     `json:"provider"`
	Confidence types.Confidence   `json:"confidence"`
}

// ChatUseCase runs the two mutually exclusive chat pipelines
type ChatUseCase struct {
	retriever *Retriever
	resolver  interfaces.GeneratorResolver
}

func NewChatUseCase(retriever *Retriever, resolver interfaces.GeneratorResolver) *ChatUseCase {
	return &ChatUseCase{
		retriever: retriever,
		resolver:  resolver,
	}
}

// AnswerFromNotes answers strictly from the notes of the requested bucket
func (uc *ChatUseCase) AnswerFromNotes(ctx context.Context, req model.ChatRAGRequest) (*RAGChatResponse, error) {
	logger := logging.From(ctx)
	logger.Info("Running notes chat", "bucket", req.Bucket, ProviderKey, req.Provider)

	gen, err := uc.resolver.Resolve(ctx, req.Provider, req.ProviderOptions)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve provider", goerr.V(ProviderKey, req.Provider))
	}

	retrieval, err := uc.retriever.Retrieve(ctx, req.Message, req.Bucket, 0)
	if err != nil {
		return nil, err
	}

	answer, err := SynthesizeAnswer(ctx, req.Message, retrieval, gen)
	if err != nil {
		return nil, err
	}

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	confidence := types.ConfidenceNone
	if answer.IsGrounded() && len(sources) > 0 {
		confidence = types.ConfidenceHigh
	}

	buckets := []string{allBucketsLabel}
	if !model.IsAllBuckets(req.Bucket) {
		buckets = []string{req.Bucket}
	}

	return &RAGChatResponse{
		Content: answer.Content(),
		Sources: sources,
		Metadata: RAGChatMetadata{
			Source:      types.AnswerSourceNotes,
			BucketsUsed: buckets,
			Confidence:  confidence,
		},
	}, nil
}

// AnswerGeneral replies from general model knowledge without touching the notes
func (uc *ChatUseCase) AnswerGeneral(ctx context.Context, req model.ChatGeneralRequest) (*GeneralChatResponse, error) {
	logging.From(ctx).Info("Running general chat", ProviderKey, req.Provider)

	gen, err := uc.resolver.Resolve(ctx, req.Provider, req.ProviderOptions)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve provider", goerr.V(ProviderKey, req.Provider))
	}

	var buf bytes.Buffer
	if err := generalPrompt.Execute(&buf, struct{ Message string }{req.Message}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute general prompt template")
	}

	reply, err := gen.Generate(ctx, buf.String(), generalMaxTokens)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate reply", goerr.V(ProviderKey, req.Provider))
	}

	return &GeneralChatResponse{
		Content: trimGeneralReply(reply),
		Metadata: GeneralChatMetadata{
			Source:     types.AnswerSourceAI,
			Provider:   req.Provider.Normalize(),
			Confidence: types.ConfidenceLow,
		},
	}, nil
}

// trimGeneralReply keeps the first paragraph, cuts at the first role marker and
// replaces replies that talk about an answer instead of giving one
func trimGeneralReply(reply string) string {
	reply = strings.TrimSpace(reply)
	reply, _, _ = strings.Cut(reply, "\n\n")
	for _, marker := range roleMarkers {
		if before, _, found := strings.Cut(reply, marker); found {
			reply = strings.TrimSpace(before)
		}
	}

	lower := strings.ToLower(reply)
	if reply == "" || strings.Contains(lower, "revised version") {
		return fallbackGreeting
	}
	for _, prefix := range metaReplyPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return fallbackGreeting
		}
	}
	return reply
}
