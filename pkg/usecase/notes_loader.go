package usecase

import (
	"context"
	"path"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/interfaces"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"github.com/secmon-lab/studypal/pkg/service/extract"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
	"github.com/secmon-lab/studypal/pkg/utils/safe"
	"golang.org/x/sync/errgroup"
)

const noteLoadConcurrency = 4

// loadedNote is the readable text of one note
type loadedNote struct {
	note *model.Note
	text string
}

// noteLoader reads the text of notes, preferring the stored original file
type noteLoader struct {
	notes   interfaces.NoteRepository
	storage interfaces.FileStorage
}

// load reads notes in parallel and returns the readable ones in the order of ids.
// Missing or unreadable notes are logged and skipped.
func (l *noteLoader) load(ctx context.Context, ids []model.NoteID) []loadedNote {
	results := make([]loadedNote, len(ids))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(noteLoadConcurrency)
	for i, id := range ids {
		eg.Go(func() error {
			note, text := l.loadOne(ctx, id)
			results[i] = loadedNote{note: note, text: text}
			return nil
		})
	}
	_ = eg.Wait() // loadOne never fails

	loaded := make([]loadedNote, 0, len(results))
	for _, r := range results {
		if r.note != nil && strings.TrimSpace(r.text) != "" {
			loaded = append(loaded, r)
		}
	}
	return loaded
}

func (l *noteLoader) loadOne(ctx context.Context, id model.NoteID) (*model.Note, string) {
	logger := logging.From(ctx).With(NoteIDKey, id)

	note, err := l.notes.Get(ctx, id)
	if err != nil {
		logger.Warn("Failed to get note", "error", err.Error())
		return nil, ""
	}

	if note.FilePath != "" && l.storage != nil {
		text, err := l.readFile(ctx, note.FilePath)
		if err == nil && strings.TrimSpace(text) != "" {
			return note, text
		}
		if err != nil {
			logger.Warn("Failed to read note file, using stored content",
				"path", note.FilePath,
				"error", err.Error())
		}
	}

	return note, note.Content
}

func (l *noteLoader) readFile(ctx context.Context, p string) (string, error) {
	if l.storage == nil {
		return "", goerr.New("file storage is not configured")
	}

	r, err := l.storage.Get(ctx, p)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open note file", goerr.V("path", p))
	}
	defer safe.Close(ctx, r)

	text, err := extract.Text(ctx, path.Base(p), r)
	if err != nil {
		return "", err
	}
	return text, nil
}

func joinNoteTexts(notes []loadedNote, sep string) string {
	parts := make([]string, 0, len(notes))
	for _, n := range notes {
		parts = append(parts, n.text)
	}
	return strings.Join(parts, sep)
}

func noteBuckets(notes []loadedNote) []string {
	var buckets []string
	seen := make(map[string]struct{})
	for _, n := range notes {
		b := n.note.Bucket
		if b == "" {
			b = model.DefaultBucket
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		buckets = append(buckets, b)
	}
	return buckets
}
