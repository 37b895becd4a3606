package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"slices"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
)

//go:embed prompt/answer.md
var answerPromptTmpl string

var answerPrompt = template.Must(template.New("answer").Parse(answerPromptTmpl))

const answerMaxTokens = 200

type answerPromptData struct {
	Marker  string
	Context string
	Query   string
}

func buildAnswerPrompt(query string, ctxText string) (string, error) {
	var buf bytes.Buffer
	if err := answerPrompt.Execute(&buf, answerPromptData{
		Marker:  model.NotInNotesMarker,
		Context: ctxText,
		Query:   query,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute answer prompt template")
	}
	return buf.String(), nil
}

// SynthesizeAnswer answers query strictly from the retrieved context. Without
// evidence it returns a not-in-notes answer and never calls gen. When the model
// reports the marker anywhere in its output, the answer is not-in-notes as well.
// Generator errors are returned as is.
func SynthesizeAnswer(ctx context.Context, query string, retrieval *model.Retrieval, gen interfaces.Generator) (*model.Answer, error) {
	if !retrieval.HasEvidence() {
		return model.NotInNotes(), nil
	}

	prompt, err := buildAnswerPrompt(query, retrieval.Context.Text)
	if err != nil {
		return nil, err
	}

	output, err := gen.Generate(ctx, prompt, answerMaxTokens)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate answer")
	}

	if strings.Contains(output, model.NotInNotesMarker) {
		logging.From(ctx).Info("Model reported the notes do not answer the question")
		return model.NotInNotes(), nil
	}

	text := strings.TrimSpace(output)
	if text == "" {
		logging.From(ctx).Warn("Model returned empty answer")
		return model.NotInNotes(), nil
	}

	return &model.Answer{
		Status:  model.AnswerGrounded,
		Text:    text,
		Sources: slices.Clone(retrieval.Context.UsedSources),
	}, nil
}
