package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"math/rand/v2"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/jdkato/prose/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
)

//go:embed prompt/question.md
var questionPromptTmpl string

var questionPrompt = template.Must(template.New("question").Parse(questionPromptTmpl))

const (
	questionMaxTokens = 150
	blankMarker       = "______"
	distractorCount   = 3
	mediumWordCount   = 10
)

var placeholderDistractors = []string{"Option A", "Option B", "Option C"}

// QuestionStrategy turns one fact into a quiz item. A strategy that cannot build
// an item for the fact returns false; that is not an error.
type QuestionStrategy interface {
	Name() string
	Generate(ctx context.Context, fact model.Fact, rawText string) (*model.QuizItem, bool)
}

// QuestionSynthesizer runs strategies in order over the same facts until the quota is met
type QuestionSynthesizer struct {
	strategies []QuestionStrategy
	metrics    *metrics.Collector
}

func NewQuestionSynthesizer(m *metrics.Collector, strategies ...QuestionStrategy) *QuestionSynthesizer {
	return &QuestionSynthesizer{
		strategies: strategies,
		metrics:    m,
	}
}

// Generate returns at most quota validated items. Each strategy revisits every
// fact; item IDs are their position in the result. Fewer items than quota is a
// valid outcome when the strategies run out of facts.
func (s *QuestionSynthesizer) Generate(ctx context.Context, facts []model.Fact, quota int, rawText string) []*model.QuizItem {
	logger := logging.From(ctx)
	items := make([]*model.QuizItem, 0, max(quota, 0))

	for _, strategy := range s.strategies {
		if len(items) >= quota {
			break
		}
		logger.Debug("Running question strategy",
			"strategy", strategy.Name(),
			"current", len(items),
			"quota", quota)

		for _, fact := range facts {
			if len(items) >= quota {
				break
			}

			item, ok := strategy.Generate(ctx, fact, rawText)
			if !ok || item == nil {
				continue
			}

			item.ID = len(items)
			if err := item.Validate(); err != nil {
				logger.Debug("Dropped invalid quiz item",
					"strategy", strategy.Name(),
					"error", err.Error())
				continue
			}

			items = append(items, item)
			s.metrics.RecordQuizItem(strategy.Name())
		}
	}

	return items
}

type questionPromptData struct {
	Fact      string
	Kind      string
	TrueFalse bool
}

// llmStrategy asks a generator for a single-fact question in a fixed text schema
type llmStrategy struct {
	gen  interfaces.Generator
	kind types.QuestionKind
}

// NewMultipleChoiceStrategy asks gen for a multiple choice question per fact
func NewMultipleChoiceStrategy(gen interfaces.Generator) QuestionStrategy {
	return &llmStrategy{gen: gen, kind: types.QuestionKindMultipleChoice}
}

// NewTrueFalseStrategy asks gen for a true/false question per fact
func NewTrueFalseStrategy(gen interfaces.Generator) QuestionStrategy {
	return &llmStrategy{gen: gen, kind: types.QuestionKindTrueFalse}
}

func (s *llmStrategy) Name() string {
	return string(s.kind)
}

func (s *llmStrategy) Generate(ctx context.Context, fact model.Fact, _ string) (*model.QuizItem, bool) {
	if s.gen == nil {
		return nil, false
	}
	logger := logging.From(ctx)

	prompt, err := buildQuestionPrompt(fact.Text, s.kind)
	if err != nil {
		logger.Warn("Failed to build question prompt", "error", err.Error())
		return nil, false
	}

	resp, err := s.gen.Generate(ctx, prompt, questionMaxTokens)
	if err != nil {
		logger.Warn("Question generation failed", "strategy", s.Name(), "error", err.Error())
		return nil, false
	}

	item, ok := parseQuestion(resp)
	if !ok {
		logger.Debug("Could not parse generated question", "strategy", s.Name(), "response", resp)
		return nil, false
	}
	item.Difficulty = types.DifficultyMedium
	item.Kind = s.kind
	return item, true
}

func buildQuestionPrompt(fact string, kind types.QuestionKind) (string, error) {
	data := questionPromptData{
		Fact: fact,
		Kind: "Multiple Choice Question (MCQ)",
	}
	if kind == types.QuestionKindTrueFalse {
		data.Kind = "True/False Question"
		data.TrueFalse = true
	}

	var buf bytes.Buffer
	if err := questionPrompt.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute question prompt template")
	}
	return buf.String(), nil
}

// parseQuestion reads the Question/Option/Correct line schema. It fails when
// any part is missing, fewer than two options were given, or the correct
// answer matches no option.
func parseQuestion(resp string) (*model.QuizItem, bool) {
	var (
		question string
		options  []string
		correct  string
	)

	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Question:"):
			question = strings.TrimSpace(strings.TrimPrefix(line, "Question:"))
		case strings.HasPrefix(line, "Correct:"):
			correct = strings.TrimSpace(strings.TrimPrefix(line, "Correct:"))
		case strings.HasPrefix(line, "Option"):
			if _, opt, ok := strings.Cut(line, ":"); ok {
				if opt = strings.TrimSpace(opt); opt != "" {
					options = append(options, opt)
				}
			}
		}
	}

	if question == "" || correct == "" || len(options) < 2 {
		return nil, false
	}

	lowerCorrect := strings.ToLower(correct)
	for i, opt := range options {
		lowerOpt := strings.ToLower(opt)
		if strings.Contains(lowerCorrect, lowerOpt) || strings.Contains(lowerOpt, lowerCorrect) {
			return &model.QuizItem{
				Question:     question,
				Options:      options,
				CorrectIndex: i,
			}, true
		}
	}
	return nil, false
}

// templateStrategy builds fill-in-the-blank questions locally without a generator
type templateStrategy struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	poolText string
	pool     []string
}

type TemplateOption func(*templateStrategy)

// WithRand sets the random source used to pick blanks, distractors and option order
func WithRand(rnd *rand.Rand) TemplateOption {
	return func(s *templateStrategy) {
		s.rnd = rnd
	}
}

func NewTemplateStrategy(opts ...TemplateOption) QuestionStrategy {
	seed := uint64(time.Now().UnixNano())
	s := &templateStrategy{
		rnd: rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *templateStrategy) Name() string {
	return string(types.QuestionKindFillBlank)
}

func (s *templateStrategy) Generate(ctx context.Context, fact model.Fact, rawText string) (*model.QuizItem, bool) {
	doc, err := prose.NewDocument(fact.Text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		logging.From(ctx).Warn("Failed to tag fact", "error", err.Error())
		return nil, false
	}

	var candidates []string
	for _, tok := range doc.Tokens() {
		if !strings.HasPrefix(tok.Tag, "NN") && !strings.HasPrefix(tok.Tag, "JJ") {
			continue
		}
		if isContentWord(tok.Text) {
			candidates = append(candidates, tok.Text)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := candidates[s.rnd.IntN(len(candidates))]
	idx := indexWord(fact.Text, target)
	if idx < 0 {
		return nil, false
	}
	question := fact.Text[:idx] + blankMarker + fact.Text[idx+len(target):]

	options := append([]string{target}, s.distractors(rawText, target)...)
	s.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	correct := -1
	for i, opt := range options {
		if opt == target {
			correct = i
			break
		}
	}

	difficulty := types.DifficultyEasy
	if len(strings.Fields(fact.Text)) > mediumWordCount {
		difficulty = types.DifficultyMedium
	}

	return &model.QuizItem{
		Question:     question,
		Options:      options,
		CorrectIndex: correct,
		Difficulty:   difficulty,
		Kind:         types.QuestionKindFillBlank,
	}, true
}

// distractors samples content words of rawText without replacement, skipping
// words that share a stem with target. Too small a pool yields placeholders.
// Caller holds s.mu.
func (s *templateStrategy) distractors(rawText, target string) []string {
	if s.pool == nil || s.poolText != rawText {
		s.poolText = rawText
		s.pool = contentWords(rawText)
	}

	eligible := make([]string, 0, len(s.pool))
	for _, w := range s.pool {
		if !sameStem(w, target) {
			eligible = append(eligible, w)
		}
	}
	if len(eligible) < distractorCount {
		return append([]string(nil), placeholderDistractors...)
	}

	picked := make([]string, 0, distractorCount)
	for _, i := range s.rnd.Perm(len(eligible))[:distractorCount] {
		picked = append(picked, eligible[i])
	}
	return picked
}

// contentWords returns distinct content words of text in first-seen order.
// Words differing only by case are kept once.
func contentWords(text string) []string {
	seen := make(map[string]struct{})
	words := make([]string, 0)
	for _, w := range splitWords(text) {
		if !isContentWord(w) {
			continue
		}
		key := strings.ToLower(w)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		words = append(words, w)
	}
	return words
}
