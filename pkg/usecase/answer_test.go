package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/usecase"
)

func foundRetrieval(text string, sources ...string) *model.Retrieval {
	return &model.Retrieval{
		Status: model.RetrievalFound,
		Context: &model.AssembledContext{
			Text:        text,
			UsedSources: sources,
		},
	}
}

func TestSynthesizeAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("no evidence short-circuits without calling the generator", func(t *testing.T) {
		gen := &mockGenerator{}
		answer, err := usecase.SynthesizeAnswer(ctx, "q", model.NoEvidence(), gen)
		gt.NoError(t, err).Required()
		gt.B(t, answer.IsGrounded()).False()
		gt.Value(t, gen.calls()).Equal(0)
	})

	t.Run("grounded answer carries trimmed text and sources", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return "  The powerhouse of the cell.  \n", nil
		}}
		answer, err := usecase.SynthesizeAnswer(ctx, "What is mitochondria?",
			foundRetrieval("Mitochondria is the powerhouse of the cell.", "cells.md"), gen)
		gt.NoError(t, err).Required()
		gt.B(t, answer.IsGrounded()).True()
		gt.Value(t, answer.Content()).Equal("The powerhouse of the cell.")
		gt.Value(t, answer.Sources).Equal([]string{"cells.md"})

		gt.Value(t, gen.calls()).Equal(1)
		gt.Value(t, gen.maxTokens[0]).Equal(200)
		prompt := gen.prompt(0)
		gt.String(t, prompt).Contains("Mitochondria is the powerhouse of the cell.")
		gt.String(t, prompt).Contains("What is mitochondria?")
		gt.String(t, prompt).Contains(model.NotInNotesMarker)
	})

	t.Run("marker anywhere in the output overrides the answer", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return "Partly answered, but NOT_IN_NOTES for the rest.", nil
		}}
		answer, err := usecase.SynthesizeAnswer(ctx, "q", foundRetrieval("ctx", "a.md"), gen)
		gt.NoError(t, err).Required()
		gt.Value(t, answer.Status).Equal(model.AnswerNotInNotes)
		gt.Array(t, answer.Sources).Length(0)
		gt.Value(t, answer.Content()).Equal(model.NotInNotesMarker)
	})

	t.Run("empty output is not in notes", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return "   ", nil
		}}
		answer, err := usecase.SynthesizeAnswer(ctx, "q", foundRetrieval("ctx", "a.md"), gen)
		gt.NoError(t, err).Required()
		gt.B(t, answer.IsGrounded()).False()
	})

	t.Run("generator error is returned", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return "", errors.New("model offline")
		}}
		_, err := usecase.SynthesizeAnswer(ctx, "q", foundRetrieval("ctx", "a.md"), gen)
		gt.Error(t, err)
	})
}
