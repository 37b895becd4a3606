package usecase

import (
	"math/rand/v2"

	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/service/dataset"
	"github.com/secmon-lab/studypal/pkg/service/task"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
)

// Evidence is the evidence store used for indexing and retrieval
type Evidence interface {
	EvidenceSearcher
	DocumentIndexer
}

type UseCases struct {
	repo          interfaces.Repository
	storage       interfaces.FileStorage
	tasks         *task.Registry
	dataset       *dataset.Dataset
	metrics       *metrics.Collector
	retrieverOpts []RetrieverOption
	rnd           *rand.Rand

	Retriever *Retriever
	Chat      *ChatUseCase
	Quiz      *QuizUseCase
	Note      *NoteUseCase
	Summarize *SummarizeUseCase
	Router    *Router
	Tasks     *task.Registry
}

type Option func(*UseCases)

// WithFileStorage sets the storage of uploaded files. Without it uploads are
// indexed but their originals are not kept.
func WithFileStorage(storage interfaces.FileStorage) Option {
	return func(uc *UseCases) {
		uc.storage = storage
	}
}

func WithTaskRegistry(tasks *task.Registry) Option {
	return func(uc *UseCases) {
		uc.tasks = tasks
	}
}

func WithDataset(ds *dataset.Dataset) Option {
	return func(uc *UseCases) {
		uc.dataset = ds
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(uc *UseCases) {
		uc.metrics = m
	}
}

func WithRetrieverOptions(opts ...RetrieverOption) Option {
	return func(uc *UseCases) {
		uc.retrieverOpts = append(uc.retrieverOpts, opts...)
	}
}

// WithQuizRand fixes the random source of template questions. The source is
// shared by every request, so it is meant for tests.
func WithQuizRand(rnd *rand.Rand) Option {
	return func(uc *UseCases) {
		uc.rnd = rnd
	}
}

func New(repo interfaces.Repository, evidence Evidence, resolver interfaces.GeneratorResolver, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.tasks == nil {
		uc.tasks = task.New(task.WithMetrics(uc.metrics))
	}
	if uc.dataset == nil {
		uc.dataset = dataset.Default()
	}

	retrieverOpts := append([]RetrieverOption{WithRetrieverMetrics(uc.metrics)}, uc.retrieverOpts...)
	uc.Retriever = NewRetriever(evidence, retrieverOpts...)
	uc.Chat = NewChatUseCase(uc.Retriever, resolver)
	uc.Quiz = NewQuizUseCase(repo.Note(), uc.storage, resolver, uc.dataset, uc.rnd, uc.metrics)
	uc.Note = NewNoteUseCase(repo.Note(), uc.storage, evidence, uc.tasks)
	uc.Summarize = NewSummarizeUseCase(repo.Note(), uc.storage, resolver)
	uc.Router = NewRouter(uc.Chat, uc.Quiz, uc.metrics)
	uc.Tasks = uc.tasks

	return uc
}
