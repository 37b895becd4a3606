package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/cli/config"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/service/evidence"
	"github.com/secmon-lab/studypal/pkg/service/task"
	"github.com/secmon-lab/studypal/pkg/usecase"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
	"github.com/urfave/cli/v3"
)

// appConfig is the flag set shared by every command that runs use cases
type appConfig struct {
	llm       config.LLM
	repo      config.Repository
	storage   config.Storage
	retrieval config.Retrieval
}

func (a *appConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, a.llm.Flags()...)
	flags = append(flags, a.repo.Flags()...)
	flags = append(flags, a.storage.Flags()...)
	flags = append(flags, a.retrieval.Flags()...)
	return flags
}

// app owns the resources built from appConfig
type app struct {
	uc      *usecase.UseCases
	tasks   *task.Registry
	repo    interfaces.Repository
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *appConfig) build(ctx context.Context, m *metrics.Collector) (*app, error) {
	logging.Default().Info("Application configuration",
		"llm", a.llm,
		"repository", a.repo,
		"storage", a.storage,
		"retrieval", a.retrieval,
	)

	retrieverOpts, err := a.retrieval.RetrieverOptions()
	if err != nil {
		return nil, err
	}
	splitter, err := a.retrieval.Splitter()
	if err != nil {
		return nil, err
	}
	ds, err := a.retrieval.Dataset()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load topic dataset")
	}

	resolver, local, err := a.llm.Configure(ctx, m)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure LLM")
	}

	out := &app{}

	repo, err := a.repo.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}
	out.repo = repo
	out.closers = append(out.closers, func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	})

	fs, closeStorage, err := a.storage.Configure(ctx)
	if err != nil {
		out.Close()
		return nil, goerr.Wrap(err, "failed to initialize file storage")
	}
	out.closers = append(out.closers, closeStorage)

	store := evidence.New(repo.Chunk(), local, evidence.WithSplitter(splitter))

	taskOpts := append([]task.Option{task.WithMetrics(m)}, a.retrieval.TaskOptions()...)
	out.tasks = task.New(taskOpts...)

	retrieverOpts = append(retrieverOpts, usecase.WithRetrieverMetrics(m))
	out.uc = usecase.New(repo, store, resolver,
		usecase.WithFileStorage(fs),
		usecase.WithTaskRegistry(out.tasks),
		usecase.WithDataset(ds),
		usecase.WithMetrics(m),
		usecase.WithRetrieverOptions(retrieverOpts...),
	)

	return out, nil
}
