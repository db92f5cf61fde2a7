package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notes-rag/internal/index"
	"notes-rag/internal/splitter"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedPassages(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// snapshotDir reads every file under dir so tests can assert the index
// was left byte-for-byte untouched.
func snapshotDir(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	snap := make(map[string][]byte)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		snap[path] = data
		return nil
	})
	require.NoError(t, err)
	return snap
}

func TestRunIndexesValidAndSkipsUnsupported(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	writeFile(t, srcDir, "notes.txt", "Taiwan's capital is Taipei.")
	writeFile(t, srcDir, "junk.bin", "\x00\x01\x02")

	backend := index.NewChromem(filepath.Join(t.TempDir(), "idx"), "notes")
	p := New(splitter.New(500, 100), &fakeEmbedder{}, backend)

	report, err := p.Run(ctx, srcDir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 1, report.Chunks)
	assert.Equal(t, 1, report.Skipped)

	results, err := backend.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Taiwan's capital is Taipei.", results[0].Text)
	assert.Equal(t, "notes.txt", results[0].Meta["source"])
}

func TestRunNoDocumentsLeavesIndexUntouched(t *testing.T) {
	ctx := context.Background()
	idxPath := filepath.Join(t.TempDir(), "idx")

	// Pre-existing index that must survive the failed run.
	existing := index.NewChromem(idxPath, "notes")
	require.NoError(t, existing.Rebuild(ctx, []index.Record{
		{ID: "keep", Text: "Keep me.", Embedding: []float32{1, 0}},
	}))
	before := snapshotDir(t, idxPath)

	srcDir := t.TempDir()
	writeFile(t, srcDir, "junk.bin", "\x00")

	emb := &fakeEmbedder{}
	p := New(splitter.New(500, 100), emb, index.NewChromem(idxPath, "notes"))

	report, err := p.Run(ctx, srcDir)
	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, emb.calls, "nothing should be embedded")

	assert.Equal(t, before, snapshotDir(t, idxPath))
}

func TestRunEmptyDirectory(t *testing.T) {
	p := New(splitter.New(500, 100), &fakeEmbedder{}, index.NewChromem(filepath.Join(t.TempDir(), "idx"), "notes"))
	_, err := p.Run(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestRunEmbeddingFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	writeFile(t, srcDir, "notes.txt", "Some perfectly loadable text.")

	idxPath := filepath.Join(t.TempDir(), "idx")
	p := New(splitter.New(500, 100), &fakeEmbedder{err: errors.New("model offline")}, index.NewChromem(idxPath, "notes"))

	_, err := p.Run(ctx, srcDir)
	require.Error(t, err)

	_, statErr := os.Stat(idxPath)
	assert.True(t, os.IsNotExist(statErr), "no index directory may be created on embedding failure")
}

func TestRunReportsProgress(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	writeFile(t, srcDir, "notes.txt", "Short note.")

	p := New(splitter.New(500, 100), &fakeEmbedder{}, index.NewChromem(filepath.Join(t.TempDir(), "idx"), "notes"))
	var done, total int
	p.OnProgress(func(d, tot int) { done, total = d, tot })

	_, err := p.Run(ctx, srcDir)
	require.NoError(t, err)
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, total)
}
