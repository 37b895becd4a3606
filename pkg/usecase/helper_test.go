package usecase_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/repository/memory"
	"github.com/secmon-lab/studypal/pkg/service/evidence"
	"github.com/secmon-lab/studypal/pkg/service/storage"
	"github.com/secmon-lab/studypal/pkg/service/task"
	"github.com/secmon-lab/studypal/pkg/usecase"
)

type fixture struct {
	repo     *memory.Memory
	store    *evidence.Store
	storage  *storage.Local
	gen      *mockGenerator
	resolver *mockResolver
	tasks    *task.Registry
	uc       *usecase.UseCases
}

func newFixture(t *testing.T, opts ...usecase.Option) *fixture {
	t.Helper()

	fs, err := storage.NewLocal(t.TempDir())
	gt.NoError(t, err).Required()

	f := &fixture{
		repo:    memory.New(),
		storage: fs,
		gen:     &mockGenerator{},
		tasks:   task.New(task.WithPoolSize(2)),
	}
	f.store = evidence.New(f.repo.Chunk(), keywordEmbedder{})
	f.resolver = &mockResolver{gen: f.gen}

	opts = append([]usecase.Option{
		usecase.WithFileStorage(fs),
		usecase.WithTaskRegistry(f.tasks),
		usecase.WithQuizRand(rand.New(rand.NewPCG(7, 11))),
	}, opts...)
	f.uc = usecase.New(f.repo, f.store, f.resolver, opts...)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.tasks.Shutdown(ctx)
	})
	return f
}

func (f *fixture) addNote(t *testing.T, title, content, bucket string) *model.Note {
	t.Helper()
	res, err := f.uc.Note.CreateNote(context.Background(), title, content, bucket)
	gt.NoError(t, err).Required()
	return res.Note
}

func waitTask(t *testing.T, tasks *task.Registry, id model.TaskID) *model.Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := tasks.Status(id)
		if st.Status.IsFinished() {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s did not finish", id)
	return nil
}
