package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords() []Record {
	return []Record{
		{ID: "a", Text: "Taiwan's capital is Taipei.", Meta: map[string]string{"source": "asia.txt"}, Embedding: []float32{1, 0}},
		{ID: "b", Text: "Tokyo is Japan's capital.", Meta: map[string]string{"source": "asia.txt"}, Embedding: []float32{0, 1}},
		{ID: "c", Text: "Taipei 101 is a landmark.", Meta: map[string]string{"source": "asia.txt"}, Embedding: []float32{0.6, 0.8}},
	}
}

func TestChromemLoadNotFound(t *testing.T) {
	c := NewChromem(filepath.Join(t.TempDir(), "missing"), "notes")
	err := c.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChromemSearchOrdering(t *testing.T) {
	ctx := context.Background()
	c := NewChromem(filepath.Join(t.TempDir(), "idx"), "notes")
	require.NoError(t, c.Rebuild(ctx, testRecords()))

	results, err := c.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.InDelta(t, 1.0, float64(results[0].Similarity), 1e-4)
	assert.InDelta(t, 0.6, float64(results[1].Similarity), 1e-4)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
	assert.Equal(t, "Taiwan's capital is Taipei.", results[0].Text)
	assert.Equal(t, "asia.txt", results[0].Meta["source"])
}

func TestChromemSearchKLargerThanIndex(t *testing.T) {
	ctx := context.Background()
	c := NewChromem(filepath.Join(t.TempDir(), "idx"), "notes")
	require.NoError(t, c.Rebuild(ctx, testRecords()))

	results, err := c.Search(ctx, []float32{1, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestChromemSearchEmptyIndex(t *testing.T) {
	ctx := context.Background()
	c := NewChromem(filepath.Join(t.TempDir(), "idx"), "notes")
	require.NoError(t, c.Rebuild(ctx, nil))

	results, err := c.Search(ctx, []float32{1, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemSearchBeforeLoad(t *testing.T) {
	c := NewChromem(filepath.Join(t.TempDir(), "idx"), "notes")
	_, err := c.Search(context.Background(), []float32{1, 0}, 4)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChromemRebuildReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx")

	c := NewChromem(path, "notes")
	require.NoError(t, c.Rebuild(ctx, testRecords()))
	require.NoError(t, c.Rebuild(ctx, []Record{
		{ID: "only", Text: "Replacement entry.", Embedding: []float32{1, 0}},
	}))

	// A fresh backend must see only the replacement index.
	reopened := NewChromem(path, "notes")
	require.NoError(t, reopened.Load(ctx))
	results, err := reopened.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "only", results[0].ID)
}

func TestChromemLoadAfterRebuild(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx")

	builder := NewChromem(path, "notes")
	require.NoError(t, builder.Rebuild(ctx, testRecords()))

	reader := NewChromem(path, "notes")
	require.NoError(t, reader.Load(ctx))
	results, err := reader.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestOpenFallsThroughToLoadable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx")

	builder := NewChromem(path, "notes")
	require.NoError(t, builder.Rebuild(ctx, testRecords()))

	missing := NewChromem(filepath.Join(t.TempDir(), "nowhere"), "notes")
	good := NewChromem(path, "notes")

	backend, err := Open(ctx, missing, good)
	require.NoError(t, err)
	assert.Equal(t, good, backend)
}

func TestOpenAllBackendsFail(t *testing.T) {
	ctx := context.Background()
	a := NewChromem(filepath.Join(t.TempDir(), "a"), "notes")
	b := NewChromem(filepath.Join(t.TempDir(), "b"), "notes")

	_, err := Open(ctx, a, b)
	assert.ErrorIs(t, err, ErrUnavailable)
}
