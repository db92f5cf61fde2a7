package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"notes-rag/internal/config"
)

// ErrNotConfigured means the backend's credential is absent from the
// environment. The chain treats it like any other backend failure.
var ErrNotConfigured = errors.New("generation backend not configured")

// Backend is one hosted chat-completion service. Implementations do not
// retry; transient failure handling is the chain's job, which is simply
// to move on to the next backend.
type Backend interface {
	Name() string
	Generate(ctx context.Context, system, user string, temperature float64) (string, error)
}

// openAICompatible talks to any OpenAI-style chat completion API (Groq,
// OpenAI, OpenRouter) through the langchaingo client. A construction
// failure is carried and surfaced on Generate so the chain can skip past
// it uniformly.
type openAICompatible struct {
	name string
	llm  *openai.LLM
	err  error
}

// NewOpenAICompatible builds a backend from config. The credential comes
// from the environment variable the config names; a missing credential
// produces a backend that fails immediately with ErrNotConfigured.
func NewOpenAICompatible(cfg config.LLMBackend) Backend {
	key := os.Getenv(cfg.KeyEnv)
	if key == "" {
		return &openAICompatible{
			name: cfg.Name,
			err:  fmt.Errorf("%w: %s is not set", ErrNotConfigured, cfg.KeyEnv),
		}
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return &openAICompatible{name: cfg.Name, err: err}
	}
	return &openAICompatible{name: cfg.Name, llm: client}
}

func (b *openAICompatible) Name() string { return b.name }

func (b *openAICompatible) Generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}
	resp, err := b.llm.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("backend %s returned no choices", b.name)
	}
	return resp.Choices[0].Content, nil
}

// ollamaBackend serves generations from a local Ollama server; useful as
// a last resort that needs no credential.
type ollamaBackend struct {
	name string
	llm  *ollama.LLM
	err  error
}

func NewOllama(name, baseURL, model string) Backend {
	client, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return &ollamaBackend{name: name, err: err}
	}
	return &ollamaBackend{name: name, llm: client}
}

func (b *ollamaBackend) Name() string { return b.name }

func (b *ollamaBackend) Generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}
	resp, err := b.llm.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("backend %s returned no choices", b.name)
	}
	return resp.Choices[0].Content, nil
}
