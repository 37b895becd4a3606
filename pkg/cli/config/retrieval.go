package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/service/chunker"
	"github.com/secmon-lab/studypal/pkg/service/dataset"
	"github.com/secmon-lab/studypal/pkg/service/task"
	"github.com/secmon-lab/studypal/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Retrieval holds CLI flags for retrieval tuning, the topic dataset and the
// background task pool
type Retrieval struct {
	threshold     float64
	maxChunks     int
	wordBudget    int
	fetchK        int
	datasetPath   string
	chunkSize     int
	chunkOverlap  int
	poolSize      int
	taskRetention time.Duration
}

func (r *Retrieval) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{
			Name:        "retrieval-threshold",
			Usage:       "Minimum relevance score of a retrieved chunk",
			Value:       usecase.DefaultScoreThreshold,
			Category:    "Retrieval",
			Sources:     cli.EnvVars("STUDYPAL_RETRIEVAL_THRESHOLD"),
			Destination: &r.threshold,
		},
		&cli.IntFlag{
			Name:        "retrieval-max-chunks",
			Usage:       "Maximum chunks used as answer context",
			Value:       usecase.DefaultMaxChunks,
			Category:    "Retrieval",
			Sources:     cli.EnvVars("STUDYPAL_RETRIEVAL_MAX_CHUNKS"),
			Destination: &r.maxChunks,
		},
		&cli.IntFlag{
			Name:        "retrieval-word-budget",
			Usage:       "Maximum words of answer context",
			Value:       usecase.DefaultWordBudget,
			Category:    "Retrieval",
			Sources:     cli.EnvVars("STUDYPAL_RETRIEVAL_WORD_BUDGET"),
			Destination: &r.wordBudget,
		},
		&cli.IntFlag{
			Name:        "retrieval-fetch-k",
			Usage:       "Number of nearest chunks fetched before filtering",
			Value:       usecase.DefaultFetchK,
			Category:    "Retrieval",
			Sources:     cli.EnvVars("STUDYPAL_RETRIEVAL_FETCH_K"),
			Destination: &r.fetchK,
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "Maximum characters of an indexed chunk",
			Value:       chunker.DefaultChunkSize,
			Category:    "Retrieval",
			Sources:     cli.EnvVars("STUDYPAL_CHUNK_SIZE"),
			Destination: &r.chunkSize,
		},
		&cli.IntFlag{
			Name:        "chunk-overlap",
			Usage:       "Characters shared by consecutive chunks",
			Value:       chunker.DefaultChunkOverlap,
			Category:    "Retrieval",
			Sources:     cli.EnvVars("STUDYPAL_CHUNK_OVERLAP"),
			Destination: &r.chunkOverlap,
		},
		&cli.StringFlag{
			Name:        "dataset",
			Usage:       "Topic dataset TOML file. The built-in dataset is used when empty",
			Category:    "Retrieval",
			Sources:     cli.EnvVars("STUDYPAL_DATASET"),
			Destination: &r.datasetPath,
		},
		&cli.IntFlag{
			Name:        "task-pool-size",
			Usage:       "Background task workers (0 means min(4, CPUs))",
			Category:    "Retrieval",
			Sources:     cli.EnvVars("STUDYPAL_TASK_POOL_SIZE"),
			Destination: &r.poolSize,
		},
		&cli.DurationFlag{
			Name:        "task-retention",
			Usage:       "How long finished tasks stay queryable",
			Value:       time.Hour,
			Category:    "Retrieval",
			Sources:     cli.EnvVars("STUDYPAL_TASK_RETENTION"),
			Destination: &r.taskRetention,
		},
	}
}

func (r Retrieval) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("threshold", r.threshold),
		slog.Int("max_chunks", r.maxChunks),
		slog.Int("word_budget", r.wordBudget),
		slog.Int("fetch_k", r.fetchK),
		slog.Int("chunk_size", r.chunkSize),
		slog.Int("chunk_overlap", r.chunkOverlap),
		slog.String("dataset", r.datasetPath),
		slog.Int("pool_size", r.poolSize),
		slog.Duration("task_retention", r.taskRetention),
	)
}

// RetrieverOptions validates the retrieval flags and converts them to options
func (r *Retrieval) RetrieverOptions() ([]usecase.RetrieverOption, error) {
	if r.maxChunks < 1 {
		return nil, goerr.Wrap(ErrInvalidConfig, "retrieval-max-chunks must be positive", goerr.V("value", r.maxChunks))
	}
	if r.wordBudget < 1 {
		return nil, goerr.Wrap(ErrInvalidConfig, "retrieval-word-budget must be positive", goerr.V("value", r.wordBudget))
	}
	if r.fetchK < r.maxChunks {
		return nil, goerr.Wrap(ErrInvalidConfig, "retrieval-fetch-k must not be less than retrieval-max-chunks",
			goerr.V("fetch_k", r.fetchK),
			goerr.V("max_chunks", r.maxChunks))
	}

	return []usecase.RetrieverOption{
		usecase.WithScoreThreshold(r.threshold),
		usecase.WithMaxChunks(r.maxChunks),
		usecase.WithWordBudget(r.wordBudget),
		usecase.WithFetchK(r.fetchK),
	}, nil
}

// Splitter returns the chunker used by the evidence store
func (r *Retrieval) Splitter() (*chunker.Splitter, error) {
	if r.chunkSize <= 0 || r.chunkOverlap < 0 || r.chunkOverlap >= r.chunkSize {
		return nil, goerr.Wrap(ErrInvalidConfig, "chunk-overlap must be smaller than a positive chunk-size",
			goerr.V("chunk_size", r.chunkSize),
			goerr.V("chunk_overlap", r.chunkOverlap))
	}
	return chunker.New(chunker.WithChunkSize(r.chunkSize), chunker.WithChunkOverlap(r.chunkOverlap)), nil
}

// Dataset loads the topic dataset
func (r *Retrieval) Dataset() (*dataset.Dataset, error) {
	return dataset.Load(r.datasetPath)
}

// TaskOptions returns the task registry options
func (r *Retrieval) TaskOptions() []task.Option {
	if r.poolSize > 0 {
		return []task.Option{task.WithPoolSize(r.poolSize)}
	}
	return nil
}

// TaskRetention returns how long finished tasks are kept
func (r *Retrieval) TaskRetention() time.Duration {
	return r.taskRetention
}
