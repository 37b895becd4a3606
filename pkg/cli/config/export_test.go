package config

import (
	"context"
	"time"

	"github.com/m-mizutani/gollem"
)

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{
		backend:   backend,
		projectID: projectID,
	}
}

func NewStorageForTest(backend, dir, gcsBucket string) *Storage {
	return &Storage{
		backend:   backend,
		dir:       dir,
		gcsBucket: gcsBucket,
	}
}

func NewRetrievalForTest(threshold float64, maxChunks, wordBudget, fetchK int) *Retrieval {
	return &Retrieval{
		threshold:     threshold,
		maxChunks:     maxChunks,
		wordBudget:    wordBudget,
		fetchK:        fetchK,
		chunkSize:     800,
		chunkOverlap:  100,
		taskRetention: time.Hour,
	}
}

func NewSentryForTest(dsn string) *Sentry {
	return &Sentry{dsn: dsn}
}

// NewLLMForTest creates an LLM config whose provider clients are built by
// stub factories that record the requested project or key
func NewLLMForTest(geminiProject, openaiKey, localProvider string, calls *[]string) *LLM {
	return &LLM{
		geminiProject:  geminiProject,
		geminiLocation: "us-central1",
		openaiAPIKey:   openaiKey,
		localProvider:  localProvider,
		timeout:        time.Second,
		dimension:      8,
		geminiFactory: func(_ context.Context, projectID, _, _ string) (gollem.LLMClient, error) {
			*calls = append(*calls, "gemini:"+projectID)
			return nil, nil
		},
		openaiFactory: func(_ context.Context, apiKey, _ string) (gollem.LLMClient, error) {
			*calls = append(*calls, "openai:"+apiKey)
			return nil, nil
		},
	}
}
