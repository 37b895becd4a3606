package usecase_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
	"github.com/secmon-lab/studypal/pkg/usecase"
)

// stubStrategy records every fact it is asked about
type stubStrategy struct {
	name    string
	mu      *sync.Mutex
	log     *[]string
	produce func(fact model.Fact) (*model.QuizItem, bool)
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Generate(ctx context.Context, fact model.Fact, rawText string) (*model.QuizItem, bool) {
	s.mu.Lock()
	*s.log = append(*s.log, s.name+":"+fact.Text)
	s.mu.Unlock()
	return s.produce(fact)
}

func validItem(fact model.Fact) (*model.QuizItem, bool) {
	return &model.QuizItem{
		Question:     "Q about " + fact.Text,
		Options:      []string{"True", "False"},
		CorrectIndex: 0,
	}, true
}

func never(model.Fact) (*model.QuizItem, bool) { return nil, false }

func TestQuestionSynthesizer_Generate(t *testing.T) {
	ctx := context.Background()
	facts := []model.Fact{{Text: "f1"}, {Text: "f2"}}

	t.Run("scarce facts run true/false before the template fallback", func(t *testing.T) {
		var mu sync.Mutex
		var log []string
		synth := usecase.NewQuestionSynthesizer(nil,
			&stubStrategy{name: "mcq", mu: &mu, log: &log, produce: validItem},
			&stubStrategy{name: "tf", mu: &mu, log: &log, produce: validItem},
			&stubStrategy{name: "template", mu: &mu, log: &log, produce: validItem},
		)

		items := synth.Generate(ctx, facts, 4, "raw")
		gt.Array(t, items).Length(4).Required()
		gt.Value(t, log).Equal([]string{"mcq:f1", "mcq:f2", "tf:f1", "tf:f2"})
		for i, item := range items {
			gt.Value(t, item.ID).Equal(i)
			gt.NoError(t, item.Validate())
		}
	})

	t.Run("template runs only after both generator rounds fall short", func(t *testing.T) {
		var mu sync.Mutex
		var log []string
		synth := usecase.NewQuestionSynthesizer(nil,
			&stubStrategy{name: "mcq", mu: &mu, log: &log, produce: never},
			&stubStrategy{name: "tf", mu: &mu, log: &log, produce: func(f model.Fact) (*model.QuizItem, bool) {
				if f.Text == "f1" {
					return validItem(f)
				}
				return nil, false
			}},
			&stubStrategy{name: "template", mu: &mu, log: &log, produce: validItem},
		)

		items := synth.Generate(ctx, facts, 4, "raw")
		gt.Array(t, items).Length(3).Required()
		gt.Value(t, log).Equal([]string{"mcq:f1", "mcq:f2", "tf:f1", "tf:f2", "template:f1", "template:f2"})
		gt.Number(t, len(items)).LessOrEqual(4)
	})

	t.Run("stops as soon as the quota is met", func(t *testing.T) {
		var mu sync.Mutex
		var log []string
		synth := usecase.NewQuestionSynthesizer(nil,
			&stubStrategy{name: "mcq", mu: &mu, log: &log, produce: validItem},
			&stubStrategy{name: "tf", mu: &mu, log: &log, produce: validItem},
		)

		items := synth.Generate(ctx, facts, 1, "raw")
		gt.Array(t, items).Length(1)
		gt.Value(t, log).Equal([]string{"mcq:f1"})
	})

	t.Run("invalid items are dropped and ids stay sequential", func(t *testing.T) {
		var mu sync.Mutex
		var log []string
		synth := usecase.NewQuestionSynthesizer(nil,
			&stubStrategy{name: "bad", mu: &mu, log: &log, produce: func(f model.Fact) (*model.QuizItem, bool) {
				return &model.QuizItem{Question: "q", Options: []string{"a", "b"}, CorrectIndex: 5}, true
			}},
			&stubStrategy{name: "good", mu: &mu, log: &log, produce: validItem},
		)

		items := synth.Generate(ctx, facts, 5, "raw")
		gt.Array(t, items).Length(2).Required()
		gt.Value(t, items[0].ID).Equal(0)
		gt.Value(t, items[1].ID).Equal(1)
	})

	t.Run("under quota is a valid result", func(t *testing.T) {
		var mu sync.Mutex
		var log []string
		synth := usecase.NewQuestionSynthesizer(nil,
			&stubStrategy{name: "mcq", mu: &mu, log: &log, produce: never},
		)
		items := synth.Generate(ctx, facts, 3, "raw")
		gt.Array(t, items).Length(0)
	})
}

func TestParseQuestion(t *testing.T) {
	t.Run("parses the line schema", func(t *testing.T) {
		item, ok := usecase.ParseQuestion(mcqResponse("What is the powerhouse of the cell?", "Mitochondria", "Nucleus", "Ribosome"))
		gt.B(t, ok).True()
		gt.Value(t, item.Question).Equal("What is the powerhouse of the cell?")
		gt.Value(t, item.Options).Equal([]string{"Mitochondria", "Nucleus", "Ribosome"})
		gt.Value(t, item.CorrectIndex).Equal(0)
	})

	t.Run("correct answer matches by case-insensitive substring", func(t *testing.T) {
		resp := "Question: Is the cell the unit of life?\nOption A: True\nOption B: False\nCorrect: B) false"
		item, ok := usecase.ParseQuestion(resp)
		gt.B(t, ok).True()
		gt.Value(t, item.CorrectIndex).Equal(1)
	})

	t.Run("rejects fewer than two options", func(t *testing.T) {
		_, ok := usecase.ParseQuestion("Question: q\nOption A: only\nCorrect: only")
		gt.B(t, ok).False()
	})

	t.Run("rejects an answer that matches no option", func(t *testing.T) {
		_, ok := usecase.ParseQuestion("Question: q\nOption A: red\nOption B: blue\nCorrect: green")
		gt.B(t, ok).False()
	})

	t.Run("rejects missing question", func(t *testing.T) {
		_, ok := usecase.ParseQuestion("Option A: red\nOption B: blue\nCorrect: red")
		gt.B(t, ok).False()
	})

	t.Run("ignores empty options", func(t *testing.T) {
		_, ok := usecase.ParseQuestion("Question: q\nOption A:\nOption B: blue\nCorrect: blue")
		gt.B(t, ok).False()
	})
}

func TestLLMStrategies(t *testing.T) {
	ctx := context.Background()
	fact := model.Fact{Text: "Mitochondria is the powerhouse of the cell."}

	t.Run("multiple choice", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return mcqResponse("What is the powerhouse of the cell?", "Mitochondria", "Nucleus", "Golgi"), nil
		}}
		item, ok := usecase.NewMultipleChoiceStrategy(gen).Generate(ctx, fact, "")
		gt.B(t, ok).True()
		gt.Value(t, item.Kind).Equal(types.QuestionKindMultipleChoice)
		gt.Value(t, item.Difficulty).Equal(types.DifficultyMedium)
		gt.String(t, gen.prompt(0)).Contains(fact.Text)
		gt.String(t, gen.prompt(0)).Contains("Multiple Choice")
	})

	t.Run("true/false prompt asks for two options", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return "Question: Mitochondria is the powerhouse of the cell.\nOption A: True\nOption B: False\nCorrect: True", nil
		}}
		item, ok := usecase.NewTrueFalseStrategy(gen).Generate(ctx, fact, "")
		gt.B(t, ok).True()
		gt.Value(t, item.Kind).Equal(types.QuestionKindTrueFalse)
		gt.String(t, gen.prompt(0)).Contains("True/False")
	})

	t.Run("generator error skips the fact", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return "", errors.New("timeout")
		}}
		_, ok := usecase.NewMultipleChoiceStrategy(gen).Generate(ctx, fact, "")
		gt.B(t, ok).False()
	})

	t.Run("nil generator yields nothing", func(t *testing.T) {
		_, ok := usecase.NewTrueFalseStrategy(nil).Generate(ctx, fact, "")
		gt.B(t, ok).False()
	})
}

func TestTemplateStrategy(t *testing.T) {
	ctx := context.Background()
	fact := model.Fact{Text: "Mitochondria is the powerhouse of the cell."}
	raw := "Mitochondria is the powerhouse of the cell. Chloroplasts capture sunlight. " +
		"Ribosomes build proteins. The nucleus stores genetic material. Cells divide by mitosis."

	t.Run("blanks a content word and offers four options", func(t *testing.T) {
		s := usecase.NewTemplateStrategy(usecase.WithRand(rand.New(rand.NewPCG(1, 2))))
		for range 10 {
			item, ok := s.Generate(ctx, fact, raw)
			gt.B(t, ok).True()
			gt.NoError(t, item.Validate())
			gt.String(t, item.Question).Contains("______")
			gt.Array(t, item.Options).Length(4)
			gt.Value(t, item.Kind).Equal(types.QuestionKindFillBlank)
			gt.Value(t, item.Difficulty).Equal(types.DifficultyEasy)

			answer := item.CorrectAnswer()
			gt.String(t, fact.Text).Contains(answer)
			gt.Value(t, strings.Replace(fact.Text, answer, "______", 1)).Equal(item.Question)
			for i, opt := range item.Options {
				if i != item.CorrectIndex {
					gt.B(t, usecase.SameStem(opt, answer)).False()
				}
			}
		}
	})

	t.Run("falls back to placeholder distractors", func(t *testing.T) {
		s := usecase.NewTemplateStrategy(usecase.WithRand(rand.New(rand.NewPCG(3, 4))))
		item, ok := s.Generate(ctx, fact, "tiny text")
		gt.B(t, ok).True()
		gt.Array(t, item.Options).Length(4)
		var placeholders int
		for _, opt := range item.Options {
			if strings.HasPrefix(opt, "Option ") {
				placeholders++
			}
		}
		gt.Value(t, placeholders).Equal(3)
	})

	t.Run("long facts are medium difficulty", func(t *testing.T) {
		long := model.Fact{Text: "The mitochondria is the organelle that produces most of the chemical energy in the cell."}
		s := usecase.NewTemplateStrategy(usecase.WithRand(rand.New(rand.NewPCG(5, 6))))
		item, ok := s.Generate(ctx, long, raw)
		gt.B(t, ok).True()
		gt.Value(t, item.Difficulty).Equal(types.DifficultyMedium)
	})

	t.Run("fact without content words yields nothing", func(t *testing.T) {
		s := usecase.NewTemplateStrategy()
		_, ok := s.Generate(ctx, model.Fact{Text: "It is so."}, raw)
		gt.B(t, ok).False()
	})
}

func TestSameStem(t *testing.T) {
	gt.B(t, usecase.SameStem("cells", "cell")).True()
	gt.B(t, usecase.SameStem("Cell", "cell")).True()
	gt.B(t, usecase.SameStem("boxes", "box")).True()
	gt.B(t, usecase.SameStem("studies", "study")).True()
	gt.B(t, usecase.SameStem("classes", "class")).True()
	gt.B(t, usecase.SameStem("cell", "cello")).False()
	gt.B(t, usecase.SameStem("atom", "atoms")).True()
}

func TestContentWords(t *testing.T) {
	words := usecase.ContentWords("The Cell and the cell divide; cells are tiny. 1234 is a number.")
	gt.Value(t, words).Equal([]string{"Cell", "divide", "cells", "tiny", "1234", "number"})
}

func TestIndexWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		word string
		want int
	}{
		{"standalone", "The cell divides.", "cell", 4},
		{"skips longer word", "An excellent cell divides.", "cell", 13},
		{"only inside longer word", "An excellent result.", "cell", -1},
		{"at end before punctuation", "Energy comes from the cell.", "cell", 22},
		{"at start", "Cell walls are rigid.", "Cell", 0},
		{"empty word", "text", "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, usecase.IndexWord(tt.text, tt.word)).Equal(tt.want)
		})
	}
}
