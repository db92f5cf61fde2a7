package index

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/philippgille/chromem-go"
)

const chromemCompress = false

// Chromem is the embedded vector index backend. It persists under a
// single directory and needs no external service, which makes it the
// fallback when Postgres is absent from the environment.
type Chromem struct {
	path       string
	collection string

	db  *chromem.DB
	col *chromem.Collection
}

func NewChromem(path, collection string) *Chromem {
	return &Chromem{path: path, collection: collection}
}

func (c *Chromem) Name() string { return "chromem" }

// Load opens an existing persisted index. A missing directory or
// collection is ErrNotFound, not a failure.
func (c *Chromem) Load(ctx context.Context) error {
	if _, err := os.Stat(c.path); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, c.path)
	}
	db, err := chromem.NewPersistentDB(c.path, chromemCompress)
	if err != nil {
		return fmt.Errorf("opening chromem db: %w", err)
	}
	col := db.GetCollection(c.collection, nil)
	if col == nil || col.Count() == 0 {
		return fmt.Errorf("%w: collection %q", ErrNotFound, c.collection)
	}
	c.db = db
	c.col = col
	return nil
}

// Rebuild writes the new index into a temporary directory and swaps it
// into place, so a crash mid-build leaves the previous index readable.
func (c *Chromem) Rebuild(ctx context.Context, records []Record) error {
	tmp := c.path + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clearing temp index dir: %w", err)
	}

	db, err := chromem.NewPersistentDB(tmp, chromemCompress)
	if err != nil {
		return fmt.Errorf("creating chromem db: %w", err)
	}
	col, err := db.CreateCollection(c.collection, nil, nil)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Text,
			Metadata:  r.Meta,
			Embedding: r.Embedding,
		}
	}
	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			os.RemoveAll(tmp)
			return fmt.Errorf("adding documents: %w", err)
		}
	}

	if err := os.RemoveAll(c.path); err != nil {
		return fmt.Errorf("removing previous index: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("swapping index into place: %w", err)
	}

	// Reopen from the final location so the backend is usable right away.
	db, err = chromem.NewPersistentDB(c.path, chromemCompress)
	if err != nil {
		return fmt.Errorf("reopening chromem db: %w", err)
	}
	c.db = db
	c.col = db.GetCollection(c.collection, nil)
	return nil
}

func (c *Chromem) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if c.col == nil {
		return nil, fmt.Errorf("%w: chromem index not loaded", ErrUnavailable)
	}
	count := c.col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	found, err := c.col.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	results := make([]Result, len(found))
	for i, f := range found {
		results[i] = Result{
			Record: Record{
				ID:        f.ID,
				Text:      f.Content,
				Meta:      f.Metadata,
				Embedding: f.Embedding,
			},
			Similarity: f.Similarity,
		}
	}
	return results, nil
}
