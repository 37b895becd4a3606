package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NoteCollection is the collection name of note documents
const NoteCollection = "notes"

type noteDoc struct {
	ID        model.NoteID `firestore:"ID"`
	Title     string       `firestore:"Title"`
	Content   string       `firestore:"Content"`
	Bucket    string       `firestore:"Bucket"`
	FilePath  string       `firestore:"FilePath"`
	CreatedAt time.Time    `firestore:"CreatedAt"`
	UpdatedAt time.Time    `firestore:"UpdatedAt"`
}

func toNoteDoc(n *model.Note) *noteDoc {
	return &noteDoc{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Bucket:    n.Bucket,
		FilePath:  n.FilePath,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func fromNoteDoc(d *noteDoc) *model.Note {
	return &model.Note{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		Bucket:    d.Bucket,
		FilePath:  d.FilePath,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func docToNote(doc *firestore.DocumentSnapshot) (*model.Note, error) {
	var d noteDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	return fromNoteDoc(&d), nil
}

type noteRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newNoteRepository(client *firestore.Client) *noteRepository {
	return &noteRepository{client: client}
}

func (r *noteRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + NoteCollection)
}

func (r *noteRepository) Create(ctx context.Context, note *model.Note) (*model.Note, error) {
	now := time.Now().UTC()
	created := *note
	if created.ID == "" {
		created.ID = model.NewNoteID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.collection().Doc(string(created.ID)).Set(ctx, toNoteDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create note", goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *noteRepository) Get(ctx context.Context, id model.NoteID) (*model.Note, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get note", goerr.V("id", id))
	}

	n, err := docToNote(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal note", goerr.V("id", id))
	}
	return n, nil
}

func (r *noteRepository) List(ctx context.Context, bucket string) ([]*model.Note, error) {
	q := r.collection().Query
	if bucket != "" {
		q = q.Where("Bucket", "==", bucket)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	notes := make([]*model.Note, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate notes", goerr.V("bucket", bucket))
		}

		n, err := docToNote(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal note", goerr.V("docID", doc.Ref.ID))
		}
		notes = append(notes, n)
	}

	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.Before(notes[j].CreatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
	return notes, nil
}

func (r *noteRepository) UpdateContent(ctx context.Context, id model.NoteID, content string) (*model.Note, error) {
	docRef := r.collection().Doc(string(id))
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "Content", Value: content},
		{Path: "UpdatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to update note", goerr.V("id", id))
	}
	return r.Get(ctx, id)
}

func (r *noteRepository) Delete(ctx context.Context, id model.NoteID) error {
	docRef := r.collection().Doc(string(id))
	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "note not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get note", goerr.V("id", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete note", goerr.V("id", id))
	}
	return nil
}
