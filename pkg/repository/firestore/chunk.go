package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/domain/model"
	"google.golang.org/api/iterator"
)

// ChunkCollection is the collection name of chunk documents
const ChunkCollection = "chunks"

// distanceField receives the cosine distance computed by FindNearest
const distanceField = "vector_distance"

// chunkDoc is the Firestore document representation of model.Chunk.
// Embedding is stored as firestore.Vector32 so that FindNearest vector search works.
type chunkDoc struct {
	ID          model.ChunkID      `firestore:"ID"`
	Text        string             `firestore:"Text"`
	Tag         string             `firestore:"Tag"`
	SourceID    string             `firestore:"SourceID"`
	SourceLabel string             `firestore:"SourceLabel"`
	Index       int                `firestore:"Index"`
	Embedding   firestore.Vector32 `firestore:"Embedding,omitempty"`
	CreatedAt   time.Time          `firestore:"CreatedAt"`
}

func toChunkDoc(c *model.Chunk) *chunkDoc {
	doc := &chunkDoc{
		ID:          c.ID,
		Text:        c.Text,
		Tag:         c.Tag,
		SourceID:    c.SourceID,
		SourceLabel: c.SourceLabel,
		Index:       c.Index,
		CreatedAt:   c.CreatedAt,
	}
	if len(c.Embedding) > 0 {
		doc.Embedding = firestore.Vector32(c.Embedding)
	}
	return doc
}

func fromChunkDoc(d *chunkDoc) *model.Chunk {
	c := &model.Chunk{
		ID:          d.ID,
		Text:        d.Text,
		Tag:         d.Tag,
		SourceID:    d.SourceID,
		SourceLabel: d.SourceLabel,
		Index:       d.Index,
		CreatedAt:   d.CreatedAt,
	}
	if len(d.Embedding) > 0 {
		c.Embedding = []float32(d.Embedding)
	}
	return c
}

type chunkRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newChunkRepository(client *firestore.Client) *chunkRepository {
	return &chunkRepository{client: client}
}

func (r *chunkRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + ChunkCollection)
}

func (r *chunkRepository) PutBatch(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	now := time.Now().UTC()
	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(chunks))
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = model.NewChunkID()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}

		job, err := bw.Set(r.collection().Doc(string(c.ID)), toChunkDoc(c))
		if err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to enqueue chunk write", goerr.V("id", c.ID))
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return goerr.Wrap(err, "failed to write chunk")
		}
	}
	return nil
}

func (r *chunkRepository) DeleteBySource(ctx context.Context, sourceID string) (int, error) {
	iter := r.collection().Where("SourceID", "==", sourceID).Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return 0, goerr.Wrap(err, "failed to iterate chunks", goerr.V("sourceID", sourceID))
		}

		job, err := bw.Delete(doc.Ref)
		if err != nil {
			bw.End()
			return 0, goerr.Wrap(err, "failed to enqueue chunk delete", goerr.V("sourceID", sourceID))
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return 0, goerr.Wrap(err, "failed to delete chunk", goerr.V("sourceID", sourceID))
		}
	}
	return len(jobs), nil
}

func (r *chunkRepository) ListBySource(ctx context.Context, sourceID string) ([]*model.Chunk, error) {
	iter := r.collection().Where("SourceID", "==", sourceID).Documents(ctx)
	defer iter.Stop()

	chunks := make([]*model.Chunk, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate chunks", goerr.V("sourceID", sourceID))
		}

		var d chunkDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal chunk", goerr.V("docID", doc.Ref.ID))
		}
		chunks = append(chunks, fromChunkDoc(&d))
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})
	return chunks, nil
}

func (r *chunkRepository) FindNearest(ctx context.Context, embedding []float32, tag string, limit int) ([]*model.Candidate, error) {
	if limit <= 0 {
		return []*model.Candidate{}, nil
	}

	q := r.collection().Query
	if tag != "" {
		q = q.Where("Tag", "==", tag)
	}

	vq := q.FindNearest("Embedding", firestore.Vector32(embedding), limit, firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	candidates := make([]*model.Candidate, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results", goerr.V("tag", tag))
		}

		var d chunkDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal chunk from vector search")
		}

		// Cosine distance is 1 - cosine similarity
		distance, _ := doc.Data()[distanceField].(float64)
		candidates = append(candidates, &model.Candidate{
			Chunk: fromChunkDoc(&d),
			Score: 1 - distance,
		})
	}

	return candidates, nil
}
