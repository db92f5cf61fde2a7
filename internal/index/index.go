package index

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFound means a backend has no persisted index to load.
	ErrNotFound = errors.New("no persisted index found")
	// ErrUnavailable means no backend could serve the index. Query
	// serving must refuse rather than answer from an empty index.
	ErrUnavailable = errors.New("no vector index backend available")
)

// Record is one persisted index entry: chunk text, its embedding and
// source metadata. Duplicate text across records is allowed; only IDs
// are unique.
type Record struct {
	ID        string
	Text      string
	Meta      map[string]string
	Embedding []float32
}

// Result is a retrieved Record with its cosine similarity to the query.
type Result struct {
	Record
	Similarity float32
}

// Backend is one interchangeable vector index implementation.
//
// Rebuild replaces the whole persisted index; it must never leave a
// readable-but-incomplete index behind. Backends do not lock against
// concurrent rebuilds; callers serialize ingestion externally and do not
// rebuild while queries are in flight.
type Backend interface {
	Name() string
	Load(ctx context.Context) error
	Rebuild(ctx context.Context, records []Record) error
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
}

// Open tries each backend in order and returns the first whose persisted
// index loads. Failures are logged and skipped; if every backend fails
// the caller gets ErrUnavailable.
func Open(ctx context.Context, backends ...Backend) (Backend, error) {
	for _, b := range backends {
		if b == nil {
			continue
		}
		if err := b.Load(ctx); err != nil {
			log.Warn().Err(err).Str("backend", b.Name()).Msg("index backend not loadable, trying next")
			continue
		}
		log.Debug().Str("backend", b.Name()).Msg("vector index loaded")
		return b, nil
	}
	return nil, ErrUnavailable
}
