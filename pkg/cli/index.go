package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/domain/types"
	"github.com/secmon-lab/studypal/pkg/service/extract"
	"github.com/secmon-lab/studypal/pkg/usecase"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
	"github.com/secmon-lab/studypal/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// noteIndexer is the part of the note use case needed to index local files
type noteIndexer interface {
	Upload(ctx context.Context, filename, bucket string, r io.Reader) (*usecase.UploadResult, error)
	DeleteNote(ctx context.Context, id model.NoteID) error
}

// fileIndexer uploads local files as notes. A file indexed again replaces the
// note created for it earlier in the same run.
type fileIndexer struct {
	notes  noteIndexer
	bucket string

	mu    sync.Mutex
	known map[string]model.NoteID
}

func newFileIndexer(notes noteIndexer, bucket string) *fileIndexer {
	return &fileIndexer{
		notes:  notes,
		bucket: bucket,
		known:  make(map[string]model.NoteID),
	}
}

func (x *fileIndexer) indexFile(ctx context.Context, path string) (*usecase.UploadResult, error) {
	f, err := os.Open(path) // #nosec G304 paths come from the command line
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open file", goerr.V("path", path))
	}
	defer safe.Close(ctx, f)

	x.mu.Lock()
	defer x.mu.Unlock()

	if prev, ok := x.known[path]; ok {
		if err := x.notes.DeleteNote(ctx, prev); err != nil && !errors.Is(err, usecase.ErrNoteNotFound) {
			return nil, goerr.Wrap(err, "failed to replace note", goerr.V("path", path))
		}
		delete(x.known, path)
	}

	res, err := x.notes.Upload(ctx, filepath.Base(path), x.bucket, f)
	if err != nil {
		return nil, err
	}
	x.known[path] = res.Note.ID
	return res, nil
}

// collectFiles expands directories into the supported files below them
func collectFiles(paths []string) (files []string, dirs []string, err error) {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to stat path", goerr.V("path", p))
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				dirs = append(dirs, path)
				return nil
			}
			if extract.IsSupported(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to walk directory", goerr.V("path", p))
		}
	}
	return files, dirs, nil
}

func cmdIndex() *cli.Command {
	var bucket string
	var watch bool
	var debounce time.Duration
	var appCfg appConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Aliases:     []string{"b"},
			Usage:       "Bucket of the indexed notes",
			Value:       model.DefaultBucket,
			Destination: &bucket,
		},
		&cli.BoolFlag{
			Name:        "watch",
			Aliases:     []string{"w"},
			Usage:       "Keep running and re-index files when they change",
			Destination: &watch,
		},
		&cli.DurationFlag{
			Name:        "debounce",
			Usage:       "Quiet period before a changed file is re-indexed",
			Value:       500 * time.Millisecond,
			Destination: &debounce,
		},
	}
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:      "index",
		Aliases:   []string{"i"},
		Usage:     "Index local note files into a bucket",
		ArgsUsage: "PATH...",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				return goerr.New("at least one file or directory is required")
			}
			if appCfg.repo.Backend() != "firestore" {
				logging.Default().Warn("Indexed notes are kept only while this process runs with the memory backend")
			}

			files, dirs, err := collectFiles(paths)
			if err != nil {
				return err
			}

			a, err := appCfg.build(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			x := newFileIndexer(a.uc.Note, bucket)
			for _, path := range files {
				res, err := x.indexFile(ctx, path)
				if err != nil {
					color.Red("✗ %s: %s", path, err.Error())
					continue
				}
				color.Cyan("→ %s (note %s, task %s)", res.Filename, res.Note.ID, res.TaskID)
			}

			if !watch {
				if err := a.tasks.Shutdown(ctx); err != nil {
					return err
				}
				return reportTasks(a.uc)
			}

			return watchFiles(ctx, x, dirs, files, debounce)
		},
	}
}

func reportTasks(uc *usecase.UseCases) error {
	var failed int
	for id, t := range uc.Tasks.List() {
		switch t.Status {
		case types.TaskStatusDone:
			if r, ok := t.Result.(*usecase.IndexResult); ok {
				color.Green("✓ %s: %d chunks", t.Name, r.Chunks)
				continue
			}
			color.Green("✓ %s", t.Name)
		default:
			failed++
			color.Red("✗ %s (%s): %s %s", t.Name, id, t.Status, t.Error)
		}
	}
	if failed > 0 {
		return goerr.New("some files failed to index", goerr.V("failed", failed))
	}
	return nil
}

// watchFiles re-indexes watched files after they stay unchanged for debounce
func watchFiles(ctx context.Context, x *fileIndexer, dirs, files []string, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return goerr.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	targets := dirs
	if len(targets) == 0 {
		targets = files
	}
	for _, p := range targets {
		if err := watcher.Add(p); err != nil {
			return goerr.Wrap(err, "failed to watch path", goerr.V("path", p))
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Default().Info("Watching for changes", "paths", targets)

	pending := make(map[string]*time.Timer)
	fire := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !extract.IsSupported(ev.Name) {
				continue
			}
			if t, ok := pending[ev.Name]; ok {
				t.Reset(debounce)
				continue
			}
			name := ev.Name
			pending[name] = time.AfterFunc(debounce, func() {
				select {
				case fire <- name:
				case <-ctx.Done():
				}
			})

		case path := <-fire:
			delete(pending, path)
			res, err := x.indexFile(ctx, path)
			if err != nil {
				color.Red("✗ %s: %s", path, err.Error())
				continue
			}
			color.Cyan("↻ %s (note %s, task %s)", res.Filename, res.Note.ID, res.TaskID)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Default().Warn("file watcher error", "error", err.Error())
		}
	}
}
