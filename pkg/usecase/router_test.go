package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
	"github.com/secmon-lab/studypal/pkg/usecase"
)

func errorMessage(t *testing.T, res *usecase.RouteResult) string {
	t.Helper()
	body, ok := res.Body.(usecase.ErrorBody)
	gt.B(t, ok).True().Required()
	return body.Error
}

func TestRouter_Quiz(t *testing.T) {
	ctx := context.Background()

	t.Run("reserved topic is rejected without reaching the dataset", func(t *testing.T) {
		f := newFixture(t)
		for _, topic := range []string{"My Notes", "my notes", "user_notes"} {
			res := f.uc.Router.Route(ctx, "quiz", map[string]any{"topic": topic, "num_questions": 5})
			gt.Value(t, res.Status).Equal(http.StatusBadRequest)
			gt.String(t, errorMessage(t, res)).Contains("invalid request")
		}
		gt.Value(t, f.gen.calls()).Equal(0)
		gt.Array(t, f.resolver.providers).Length(0)
	})

	t.Run("unreadable notes are rejected even when a topic is present", func(t *testing.T) {
		f := newFixture(t)
		res := f.uc.Router.Route(ctx, "quiz", map[string]any{
			"note_ids":      []any{"x"},
			"topic":         "Biology",
			"num_questions": 5,
		})
		gt.Value(t, res.Status).Equal(http.StatusBadRequest)
		gt.String(t, errorMessage(t, res)).Contains("empty or unreadable")
		gt.Value(t, f.gen.calls()).Equal(0)
		gt.Array(t, f.resolver.providers).Length(0)
	})

	t.Run("no source is rejected", func(t *testing.T) {
		f := newFixture(t)
		res := f.uc.Router.Route(ctx, "quiz", map[string]any{"num_questions": 3})
		gt.Value(t, res.Status).Equal(http.StatusBadRequest)
	})

	t.Run("notes quiz from a readable note", func(t *testing.T) {
		f := newFixture(t)
		f.resolver.err = goerr.Wrap(model.ErrProviderUnavailable, "no local model")
		note := f.addNote(t, "cells", "Mitochondria is the powerhouse of the cell. "+
			"The nucleus is the control center of the cell. "+
			"Ribosomes are the sites of protein synthesis in the cell.", "Biology")

		res := f.uc.Router.Route(ctx, "quiz", map[string]any{
			"filenames":    []any{string(note.ID)},
			"numQuestions": 2,
		})
		gt.Value(t, res.Status).Equal(http.StatusOK)

		body, ok := res.Body.(*usecase.QuizResponse)
		gt.B(t, ok).True().Required()
		gt.Number(t, len(body.Questions)).LessOrEqual(2)
		gt.Number(t, len(body.Questions)).Greater(0)
		for i, q := range body.Questions {
			gt.Value(t, q.ID).Equal(i)
			gt.NoError(t, q.Validate())
		}
		gt.Value(t, body.Metadata.Source).Equal(types.AnswerSourceNotes)
		gt.Value(t, body.Metadata.Confidence).Equal(types.ConfidenceHigh)
		gt.Value(t, body.Metadata.BucketsUsed).Equal([]string{"Biology"})
	})

	t.Run("dataset quiz", func(t *testing.T) {
		f := newFixture(t)
		f.gen.generateFn = func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return mcqResponse("Which is true?", "Cells", "Rocks", "Clouds"), nil
		}

		res := f.uc.Router.Route(ctx, "quiz", map[string]any{"topic": "Biology", "num_questions": 2})
		gt.Value(t, res.Status).Equal(http.StatusOK)
		body, ok := res.Body.(*usecase.QuizResponse)
		gt.B(t, ok).True().Required()
		gt.Array(t, body.Questions).Length(2)
		gt.Value(t, body.Metadata.Source).Equal(types.AnswerSourceDataset)
		gt.Value(t, body.Metadata.Confidence).Equal(types.ConfidenceMedium)
		gt.Value(t, body.Metadata.Topic).Equal("Biology")
	})

	t.Run("unknown topic is rejected", func(t *testing.T) {
		f := newFixture(t)
		res := f.uc.Router.Route(ctx, "quiz", map[string]any{"topic": "Astrology"})
		gt.Value(t, res.Status).Equal(http.StatusBadRequest)
		gt.String(t, errorMessage(t, res)).Contains("no data found for topic")
	})
}

func TestRouter_Chat(t *testing.T) {
	ctx := context.Background()

	t.Run("notes chat answers from the selected bucket", func(t *testing.T) {
		f := newFixture(t)
		f.addNote(t, "cells", "Mitochondria is the powerhouse of the cell.", "Biology")
		f.gen.generateFn = func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return "It is the powerhouse of the cell.", nil
		}

		res := f.uc.Router.Route(ctx, "chat", map[string]any{
			"message":   "What does mitochondria do in the cell?",
			"use_notes": true,
			"bucket":    "Biology",
			"provider":  "local",
		})
		gt.Value(t, res.Status).Equal(http.StatusOK)
		body, ok := res.Body.(*usecase.RAGChatResponse)
		gt.B(t, ok).True().Required()
		gt.Value(t, body.Content).Equal("It is the powerhouse of the cell.")
		gt.Value(t, body.Sources).Equal([]string{"cells"})
		gt.Value(t, body.Metadata.Source).Equal(types.AnswerSourceNotes)
		gt.Value(t, body.Metadata.Confidence).Equal(types.ConfidenceHigh)
		gt.Value(t, body.Metadata.BucketsUsed).Equal([]string{"Biology"})
	})

	t.Run("notes chat on an empty bucket is not in notes", func(t *testing.T) {
		f := newFixture(t)
		f.addNote(t, "cells", "Mitochondria is the powerhouse of the cell.", "Biology")

		res := f.uc.Router.Route(ctx, "chat", map[string]any{
			"message":    "What does mitochondria do in the cell?",
			"useNotes":   true,
			"bucketName": "History",
		})
		gt.Value(t, res.Status).Equal(http.StatusOK)
		body, ok := res.Body.(*usecase.RAGChatResponse)
		gt.B(t, ok).True().Required()
		gt.Value(t, body.Content).Equal(model.NotInNotesMarker)
		gt.Array(t, body.Sources).Length(0)
		gt.Value(t, body.Metadata.Confidence).Equal(types.ConfidenceNone)
		gt.Value(t, f.gen.calls()).Equal(0)
	})

	t.Run("general chat never retrieves notes", func(t *testing.T) {
		f := newFixture(t)
		f.addNote(t, "cells", "Mitochondria is the powerhouse of the cell.", "Biology")
		f.gen.generateFn = func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return "Mitochondria makes energy.\n\nUser: more", nil
		}

		res := f.uc.Router.Route(ctx, "chat", map[string]any{
			"message":   "What does mitochondria do?",
			"use_notes": false,
			"provider":  "gemini",
		})
		gt.Value(t, res.Status).Equal(http.StatusOK)
		body, ok := res.Body.(*usecase.GeneralChatResponse)
		gt.B(t, ok).True().Required()
		gt.Value(t, body.Content).Equal("Mitochondria makes energy.")
		gt.Value(t, body.Metadata.Source).Equal(types.AnswerSourceAI)
		gt.Value(t, body.Metadata.Provider).Equal(types.ProviderGemini)
		gt.Value(t, body.Metadata.Confidence).Equal(types.ConfidenceLow)

		gt.Value(t, f.gen.calls()).Equal(1)
		gt.B(t, f.gen.maxTokens[0] == 60).True()
	})

	t.Run("invalid provider is rejected", func(t *testing.T) {
		f := newFixture(t)
		res := f.uc.Router.Route(ctx, "chat", map[string]any{
			"message":   "hi",
			"use_notes": true,
			"provider":  "claude",
		})
		gt.Value(t, res.Status).Equal(http.StatusBadRequest)
		gt.String(t, errorMessage(t, res)).Contains("invalid provider")
	})

	t.Run("unavailable provider is a client error", func(t *testing.T) {
		f := newFixture(t)
		f.resolver.err = goerr.Wrap(model.ErrProviderUnavailable, "not configured")
		res := f.uc.Router.Route(ctx, "chat", map[string]any{"message": "hi", "provider": "openai"})
		gt.Value(t, res.Status).Equal(http.StatusBadRequest)
	})

	t.Run("generator failure becomes 500", func(t *testing.T) {
		f := newFixture(t)
		f.gen.generateFn = func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			return "", errors.New("upstream exploded")
		}
		res := f.uc.Router.Route(ctx, "chat", map[string]any{"message": "hi"})
		gt.Value(t, res.Status).Equal(http.StatusInternalServerError)
		gt.String(t, errorMessage(t, res)).Contains("upstream exploded")
	})

	t.Run("panic inside a pipeline becomes 500", func(t *testing.T) {
		f := newFixture(t)
		f.gen.generateFn = func(ctx context.Context, prompt string, maxTokens int) (string, error) {
			panic("nil map write")
		}
		res := f.uc.Router.Route(ctx, "chat", map[string]any{"message": "hi"})
		gt.Value(t, res.Status).Equal(http.StatusInternalServerError)
		gt.String(t, errorMessage(t, res)).Contains("nil map write")
	})
}

func TestRouter_UnknownFeature(t *testing.T) {
	f := newFixture(t)
	res := f.uc.Router.Route(context.Background(), "tips", map[string]any{"message": "hi"})
	gt.Value(t, res.Status).Equal(http.StatusBadRequest)
	gt.String(t, errorMessage(t, res)).Contains("unknown feature")
}

func TestParseRequest(t *testing.T) {
	t.Run("chat with notes", func(t *testing.T) {
		req, err := usecase.ParseRequest("chat", map[string]any{
			"message":          " what is a cell ",
			"use_notes":        true,
			"bucket":           "All Notes",
			"provider":         "OpenAI",
			"provider_options": map[string]any{"api_key": "sk-test", "model": "gpt-4o-mini"},
		})
		gt.NoError(t, err).Required()
		rag, ok := req.(model.ChatRAGRequest)
		gt.B(t, ok).True().Required()
		gt.Value(t, rag.Message).Equal("what is a cell")
		gt.Value(t, rag.Bucket).Equal("")
		gt.Value(t, rag.Provider).Equal(types.ProviderOpenAI)
		gt.Value(t, rag.ProviderOptions.Get("api_key")).Equal("sk-test")
	})

	t.Run("chat defaults to general with local provider", func(t *testing.T) {
		req, err := usecase.ParseRequest("chat", map[string]any{"message": "hello"})
		gt.NoError(t, err).Required()
		general, ok := req.(model.ChatGeneralRequest)
		gt.B(t, ok).True().Required()
		gt.Value(t, general.Provider).Equal(types.ProviderLocal)
	})

	t.Run("chat requires a message", func(t *testing.T) {
		_, err := usecase.ParseRequest("chat", map[string]any{"use_notes": true})
		gt.Error(t, err).Is(usecase.ErrInvalidRequest)
	})

	t.Run("use_notes must be a boolean", func(t *testing.T) {
		_, err := usecase.ParseRequest("chat", map[string]any{"message": "hi", "use_notes": 3})
		gt.Error(t, err).Is(usecase.ErrInvalidRequest)
	})

	t.Run("note ids win over topic", func(t *testing.T) {
		req, err := usecase.ParseRequest("quiz", map[string]any{
			"note_ids": []any{"n1", "n2"},
			"topic":    "Biology",
		})
		gt.NoError(t, err).Required()
		notes, ok := req.(model.QuizNotesRequest)
		gt.B(t, ok).True().Required()
		gt.Value(t, notes.NoteIDs).Equal([]model.NoteID{"n1", "n2"})
		gt.Value(t, notes.NumQuestions).Equal(usecase.DefaultNumQuestions)
	})

	t.Run("empty note ids fall through to topic", func(t *testing.T) {
		req, err := usecase.ParseRequest("quiz", map[string]any{
			"note_ids":      []any{},
			"topic":         "Physics",
			"num_questions": float64(7),
		})
		gt.NoError(t, err).Required()
		ds, ok := req.(model.QuizDatasetRequest)
		gt.B(t, ok).True().Required()
		gt.Value(t, ds.Topic).Equal("Physics")
		gt.Value(t, ds.NumQuestions).Equal(7)
	})

	t.Run("num_questions out of range", func(t *testing.T) {
		for _, n := range []any{0, 21, float64(2.5), "many"} {
			_, err := usecase.ParseRequest("quiz", map[string]any{"topic": "Physics", "num_questions": n})
			gt.Error(t, err).Is(usecase.ErrInvalidRequest)
		}
	})

	t.Run("note ids must be strings", func(t *testing.T) {
		_, err := usecase.ParseRequest("quiz", map[string]any{"note_ids": []any{1, 2}})
		gt.Error(t, err).Is(usecase.ErrInvalidRequest)
	})
}
