package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"notes-rag/internal/index"
	"notes-rag/internal/loader"
	"notes-rag/internal/models"
	"notes-rag/internal/splitter"
)

// ErrNoDocuments means nothing in the source directory could be loaded.
// The pipeline performs no index write in that case, so a previously
// built index survives untouched.
var ErrNoDocuments = errors.New("no documents ingested")

const embedBatchSize = 32

// PassageEmbedder is the indexing-mode slice of the embedding provider.
type PassageEmbedder interface {
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
}

// Report summarizes one ingestion run.
type Report struct {
	Documents int
	Chunks    int
	Skipped   int
}

// Pipeline turns a directory of documents into a freshly built vector
// index: load, chunk, embed, rebuild. The result is always a full
// replacement of the previous index, never a merge.
//
// The pipeline does not lock the index; callers must not run two
// ingestions, or an ingestion and queries against the same index, at the
// same time.
type Pipeline struct {
	splitter splitter.Splitter
	embedder PassageEmbedder
	backend  index.Backend
	progress func(done, total int)
}

func New(sp splitter.Splitter, embedder PassageEmbedder, backend index.Backend) *Pipeline {
	return &Pipeline{splitter: sp, embedder: embedder, backend: backend}
}

// OnProgress registers a callback invoked after each embedded batch.
func (p *Pipeline) OnProgress(fn func(done, total int)) {
	p.progress = fn
}

// Run ingests every supported file directly under dir. Files that cannot
// be loaded are logged and skipped and never abort the run; an embedding
// failure aborts the whole run before anything is written.
func (p *Pipeline) Run(ctx context.Context, dir string) (Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Report{}, fmt.Errorf("reading source directory: %w", err)
	}

	var report Report
	var docs []models.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		loaded, err := loader.Load(path)
		if err != nil {
			report.Skipped++
			if errors.Is(err, loader.ErrUnsupported) {
				log.Warn().Str("file", entry.Name()).Msg("skipping file with unsupported extension")
			} else {
				log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable file")
			}
			continue
		}
		docs = append(docs, loaded...)
	}
	if len(docs) == 0 {
		return report, fmt.Errorf("%w: %s", ErrNoDocuments, dir)
	}
	report.Documents = len(docs)

	chunks := p.splitter.Split(docs)
	if len(chunks) == 0 {
		return report, fmt.Errorf("%w: %s", ErrNoDocuments, dir)
	}
	log.Debug().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("split documents")

	records, err := p.embed(ctx, chunks)
	if err != nil {
		return report, err
	}

	if err := p.backend.Rebuild(ctx, records); err != nil {
		return report, fmt.Errorf("rebuilding index: %w", err)
	}
	report.Chunks = len(records)
	log.Info().Int("chunks", report.Chunks).Int("skipped", report.Skipped).
		Str("backend", p.backend.Name()).Msg("index rebuilt")
	return report, nil
}

func (p *Pipeline) embed(ctx context.Context, chunks []models.Chunk) ([]index.Record, error) {
	records := make([]index.Record, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := p.embedder.EmbedPassages(ctx, texts)
		if err != nil {
			return nil, err
		}
		for i, c := range batch {
			records = append(records, index.Record{
				ID:   fmt.Sprintf("%s:%d:%d", c.Source, c.Page, c.Ordinal),
				Text: c.Text,
				Meta: map[string]string{
					"source":  c.Source,
					"page":    strconv.Itoa(c.Page),
					"ordinal": strconv.Itoa(c.Ordinal),
				},
				Embedding: vectors[i],
			})
		}
		if p.progress != nil {
			p.progress(end, len(chunks))
		}
	}
	return records, nil
}
