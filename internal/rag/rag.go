package rag

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"notes-rag/internal/index"
	"notes-rag/internal/models"
)

// QueryEmbedder is the query-mode slice of the embedding provider.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces the final answer text; it absorbs backend failures
// internally and always returns something presentable.
type Generator interface {
	Generate(ctx context.Context, system, user string, temperature float64) string
}

// Answer carries the generated text together with the retrieved entries,
// so the UI can show where the answer came from.
type Answer struct {
	Text    string
	Results []index.Result
}

// Pipeline is the query-time path: embed the question, retrieve context,
// assemble the prompt, generate. It only ever reads the index and holds
// no per-call state, so concurrent queries from different sessions are
// safe.
type Pipeline struct {
	embedder    QueryEmbedder
	idx         index.Backend
	gen         Generator
	temperature float64
}

func New(embedder QueryEmbedder, idx index.Backend, gen Generator, temperature float64) *Pipeline {
	return &Pipeline{embedder: embedder, idx: idx, gen: gen, temperature: temperature}
}

// Run answers one question. An embedding failure is fatal for the turn
// and short-circuits before retrieval; zero retrieved entries is a valid
// outcome and the turn proceeds with empty context.
func (p *Pipeline) Run(ctx context.Context, query string, k int, systemPrompt, template string) (Answer, error) {
	vector, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return Answer{}, err
	}

	results, err := p.idx.Search(ctx, vector, k)
	if err != nil {
		return Answer{}, err
	}
	if len(results) == 0 {
		log.Debug().Str("query", query).Msg("retrieval returned no entries")
	}

	chunks := make([]string, len(results))
	for i, r := range results {
		chunks[i] = r.Text
	}
	prompt := BuildPrompt(template, chunks, query)

	text := p.gen.Generate(ctx, systemPrompt, prompt, p.temperature)
	return Answer{Text: text, Results: results}, nil
}

// BuildPrompt substitutes the retrieved chunks (separated by blank lines)
// and the question into the template. A template missing either
// placeholder is malformed; instead of failing the turn, the parts are
// concatenated in a fixed order.
func BuildPrompt(template string, chunks []string, question string) string {
	retrieved := strings.Join(chunks, "\n\n")
	if !strings.Contains(template, models.PlaceholderChunks) ||
		!strings.Contains(template, models.PlaceholderQuestion) {
		return template + "\n\n" + retrieved + "\n\nQuestion: " + question
	}
	out := strings.ReplaceAll(template, models.PlaceholderChunks, retrieved)
	return strings.ReplaceAll(out, models.PlaceholderQuestion, question)
}
