package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
)

//go:embed prompt/summarize.md
var summarizePromptTmpl string

var summarizePrompt = template.Must(template.New("summarize").Parse(summarizePromptTmpl))

const (
	// MinSummarizeChars is the shortest input worth summarizing
	MinSummarizeChars = 300

	summarizeMaxInput  = 12000
	summarizeMaxTokens = 800
	documentBreak      = "\n\n--- DOCUMENT BREAK ---\n\n"
	noSummary          = "No summary provided."
)

var detailedSummaryPattern = regexp.MustCompile(`(?s)"detailed_summary"\s*:\s*"(.*?)"`)

// SummarizeRequest selects the text to summarize. Note text is appended after Text.
type SummarizeRequest struct {
	Text    string
	NoteIDs []model.NoteID
}

// Summary is the structured summary returned to clients
type Summary struct {
	Summary   string   `json:"summary"`
	KeyThemes []string `json:"key_themes"`
	Feedback  string   `json:"feedback"`
}

type summaryOutput struct {
	KeyThemes       []string `json:"key_themes"`
	DetailedSummary string   `json:"detailed_summary"`
	AIInsight       string   `json:"ai_insight"`
}

// SummarizeUseCase summarizes raw text or selected notes with the local generator
type SummarizeUseCase struct {
	loader   *noteLoader
	resolver interfaces.GeneratorResolver
}

func NewSummarizeUseCase(notes interfaces.NoteRepository, storage interfaces.FileStorage, resolver interfaces.GeneratorResolver) *SummarizeUseCase {
	return &SummarizeUseCase{
		loader:   &noteLoader{notes: notes, storage: storage},
		resolver: resolver,
	}
}

func (uc *SummarizeUseCase) Summarize(ctx context.Context, req SummarizeRequest) (*Summary, error) {
	text := strings.TrimSpace(req.Text)
	if len(req.NoteIDs) > 0 {
		notes := uc.loader.load(ctx, req.NoteIDs)
		if combined := joinNoteTexts(notes, documentBreak); combined != "" {
			if text != "" {
				text += documentBreak
			}
			text += combined
		}
	}

	if text == "" {
		if len(req.NoteIDs) > 0 {
			return nil, goerr.Wrap(ErrNotesUnreadable, "could not read content from selected notes")
		}
		return nil, goerr.Wrap(ErrInvalidRequest, "no text provided")
	}

	if n := utf8.RuneCountInString(text); n < MinSummarizeChars {
		return nil, goerr.Wrap(ErrInsufficientText, "document content too short to summarize",
			goerr.V("chars", n),
			goerr.V("minimum", MinSummarizeChars))
	}

	gen, err := uc.resolver.Resolve(ctx, types.ProviderLocal, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve summarizer provider")
	}

	var buf bytes.Buffer
	if err := summarizePrompt.Execute(&buf, struct{ Content string }{truncateRunes(text, summarizeMaxInput)}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute summarize prompt template")
	}

	raw, err := gen.Generate(ctx, buf.String(), summarizeMaxTokens)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate summary")
	}

	return parseSummary(ctx, raw), nil
}

// parseSummary reads the JSON object in raw, tolerating code fences and
// surrounding prose. Unparsable output is returned as the summary itself.
func parseSummary(ctx context.Context, raw string) *Summary {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
		var out summaryOutput
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &out); err == nil {
			summary := &Summary{
				Summary:   out.DetailedSummary,
				KeyThemes: out.KeyThemes,
				Feedback:  out.AIInsight,
			}
			if summary.Summary == "" {
				summary.Summary = noSummary
			}
			if summary.KeyThemes == nil {
				summary.KeyThemes = []string{}
			}
			return summary
		}
	}

	logging.From(ctx).Warn("Summary is not valid JSON", "raw", truncateRunes(cleaned, 100))
	summary := &Summary{
		Summary:   cleaned,
		KeyThemes: []string{"Error parsing JSON"},
		Feedback:  "Raw output returned.",
	}
	if m := detailedSummaryPattern.FindStringSubmatch(cleaned); m != nil {
		summary.Summary = m[1]
	}
	return summary
}
