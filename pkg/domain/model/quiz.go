package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/types"
)

var (
	ErrTooFewOptions     = goerr.New("quiz item requires at least two options")
	ErrCorrectOutOfRange = goerr.New("correct index is out of range")
	ErrDuplicateOption   = goerr.New("quiz item has duplicate options")
	ErrEmptyQuestionText = goerr.New("quiz item question is empty")
)

// QuizItem is a single quiz question
type QuizItem struct {
	ID           int                `json:"id"`
	Question     string             `json:"question"`
	Options      []string           `json:"options"`
	CorrectIndex int                `json:"correct_index"`
	Difficulty   types.Difficulty   `json:"difficulty"`
	Kind         types.QuestionKind `json:"kind"`
}

// Validate checks that the item is internally consistent
func (q *QuizItem) Validate() error {
	if q.Question == "" {
		return goerr.Wrap(ErrEmptyQuestionText, "invalid quiz item")
	}
	if len(q.Options) < 2 {
		return goerr.Wrap(ErrTooFewOptions, "invalid quiz item", goerr.V("options", len(q.Options)))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return goerr.Wrap(ErrCorrectOutOfRange, "invalid quiz item",
			goerr.V("correct_index", q.CorrectIndex),
			goerr.V("options", len(q.Options)))
	}

	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, ok := seen[opt]; ok {
			return goerr.Wrap(ErrDuplicateOption, "invalid quiz item", goerr.V("option", opt))
		}
		seen[opt] = struct{}{}
	}
	return nil
}

// CorrectAnswer returns the text of the correct option
func (q *QuizItem) CorrectAnswer() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectIndex]
}
