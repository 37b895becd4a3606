package usecase

import (
	"context"
	"math/rand/v2"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
	"github.com/secmon-lab/studypal/pkg/service/dataset"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
)

const (
	// factsPerQuestion bounds extracted facts to a multiple of the requested questions
	factsPerQuestion = 3
	noteSeparator    = "\n\n"
)

// QuizResponse is the response of both quiz pipelines
type QuizResponse struct {
	Questions []*model.QuizItem `json:"questions"`
	Metadata  QuizMetadata      `json:"metadata"`
}

type QuizMetadata struct {
	Source      types.AnswerSource `json:"source"`
	BucketsUsed []string           `json:"buckets_used,omitempty"`
	Topic       string             `json:"topic,omitempty"`
	Confidence  types.Confidence   `json:"confidence"`
}

// QuizUseCase builds quizzes from selected notes or from the topic dataset
type QuizUseCase struct {
	loader   *noteLoader
	resolver interfaces.GeneratorResolver
	dataset  *dataset.Dataset
	rnd      *rand.Rand
	metrics  *metrics.Collector
}

func NewQuizUseCase(notes interfaces.NoteRepository, storage interfaces.FileStorage, resolver interfaces.GeneratorResolver, ds *dataset.Dataset, rnd *rand.Rand, m *metrics.Collector) *QuizUseCase {
	return &QuizUseCase{
		loader:   &noteLoader{notes: notes, storage: storage},
		resolver: resolver,
		dataset:  ds,
		rnd:      rnd,
		metrics:  m,
	}
}

// generator returns the local generator, or nil when none is configured so
// that only generator-free strategies run
func (uc *QuizUseCase) generator(ctx context.Context) interfaces.Generator {
	if uc.resolver == nil {
		return nil
	}
	gen, err := uc.resolver.Resolve(ctx, types.ProviderLocal, nil)
	if err != nil {
		logging.From(ctx).Warn("No generator for quiz, using local templates only", "error", err.Error())
		return nil
	}
	return gen
}

func (uc *QuizUseCase) templateStrategy() QuestionStrategy {
	if uc.rnd != nil {
		return NewTemplateStrategy(WithRand(uc.rnd))
	}
	return NewTemplateStrategy()
}

// FromNotes builds a quiz grounded in the selected notes. It never falls back
// to the dataset: unreadable notes or notes without facts are client errors.
func (uc *QuizUseCase) FromNotes(ctx context.Context, req model.QuizNotesRequest) (*QuizResponse, error) {
	logger := logging.From(ctx)
	logger.Info("Running notes quiz", "notes", len(req.NoteIDs), "num_questions", req.NumQuestions)

	notes := uc.loader.load(ctx, req.NoteIDs)
	text := joinNoteTexts(notes, noteSeparator)
	if len(notes) == 0 {
		return nil, goerr.Wrap(ErrNotesUnreadable, "no readable note", goerr.V("note_ids", req.NoteIDs))
	}

	facts, err := ExtractFacts(text, req.NumQuestions*factsPerQuestion)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, goerr.Wrap(ErrNoFacts, "notes have no usable facts", goerr.V("chars", len(text)))
	}
	logger.Info("Extracted facts", "count", len(facts), "chars", len(text))

	gen := uc.generator(ctx)
	synth := NewQuestionSynthesizer(uc.metrics,
		NewMultipleChoiceStrategy(gen),
		NewTrueFalseStrategy(gen),
		uc.templateStrategy(),
	)

	return &QuizResponse{
		Questions: synth.Generate(ctx, facts, req.NumQuestions, text),
		Metadata: QuizMetadata{
			Source:      types.AnswerSourceNotes,
			BucketsUsed: noteBuckets(notes),
			Confidence:  types.ConfidenceHigh,
		},
	}, nil
}

// FromDataset builds a quiz from the dataset text of topic with generator strategies only
func (uc *QuizUseCase) FromDataset(ctx context.Context, req model.QuizDatasetRequest) (*QuizResponse, error) {
	logging.From(ctx).Info("Running dataset quiz", "topic", req.Topic, "num_questions", req.NumQuestions)

	text, ok := uc.dataset.TextFor(req.Topic)
	if !ok {
		return nil, goerr.Wrap(ErrTopicNotFound, "topic is not in the dataset", goerr.V("topic", req.Topic))
	}

	facts, err := ExtractFacts(text, req.NumQuestions*factsPerQuestion)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, goerr.Wrap(ErrNoFacts, "dataset text has no usable facts", goerr.V("topic", req.Topic))
	}

	gen := uc.generator(ctx)
	synth := NewQuestionSynthesizer(uc.metrics,
		NewMultipleChoiceStrategy(gen),
		NewTrueFalseStrategy(gen),
	)

	return &QuizResponse{
		Questions: synth.Generate(ctx, facts, req.NumQuestions, text),
		Metadata: QuizMetadata{
			Source:     types.AnswerSourceDataset,
			Topic:      req.Topic,
			Confidence: types.ConfidenceMedium,
		},
	}, nil
}
