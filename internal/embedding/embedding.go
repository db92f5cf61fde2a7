package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"notes-rag/internal/config"
)

// ErrUnavailable means the underlying embedding model could not be
// reached. There is no fallback model: vectors from a different model
// would be incompatible with whatever is already in the index, so callers
// must abort the operation in progress.
var ErrUnavailable = errors.New("embedding model unavailable")

// E5-family models are trained with role prefixes; indexing and querying
// must use different ones or retrieval quality degrades.
const (
	passagePrefix = "passage: "
	queryPrefix   = "query: "
)

// Embedder decorates a generic embedding client with the passage/query
// prefix convention and L2 normalization. Normalized vectors make cosine
// similarity a plain dot product in the index.
type Embedder struct {
	inner embeddings.Embedder
}

func New(inner embeddings.Embedder) *Embedder {
	return &Embedder{inner: inner}
}

// FromConfig builds the configured embedding client and wraps it.
func FromConfig(cfg *config.EmbeddingConfig) (*Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAI(cfg)
	default:
		return newOllama(cfg)
	}
}

func newOllama(cfg *config.EmbeddingConfig) (*Embedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	inner, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return New(inner), nil
}

func newOpenAI(cfg *config.EmbeddingConfig) (*Embedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	inner, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return New(inner), nil
}

// EmbedPassages embeds chunk texts for indexing, in one batch.
func (e *Embedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = passagePrefix + t
	}
	vectors, err := e.inner.EmbedDocuments(ctx, prefixed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	for _, v := range vectors {
		normalize(v)
	}
	return vectors, nil
}

// EmbedQuery embeds a search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.inner.EmbedQuery(ctx, queryPrefix+text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	normalize(vector)
	return vector, nil
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
