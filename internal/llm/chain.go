package llm

import (
	"context"

	"github.com/rs/zerolog/log"

	"notes-rag/internal/config"
	"notes-rag/internal/models"
)

// Chain tries an ordered list of generation backends; the first answer
// wins. Backend failures of any kind (missing credential, network, auth,
// malformed response) are absorbed, logged and fallen through.
type Chain struct {
	backends []Backend
}

func NewChain(backends ...Backend) *Chain {
	return &Chain{backends: backends}
}

// FromConfig builds the fallback chain in config order.
func FromConfig(cfgs []config.LLMBackend) *Chain {
	backends := make([]Backend, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.Name == "ollama" {
			backends = append(backends, NewOllama(cfg.Name, cfg.BaseURL, cfg.Model))
			continue
		}
		backends = append(backends, NewOpenAICompatible(cfg))
	}
	return &Chain{backends: backends}
}

// Generate never fails: when every backend errors it returns the fixed
// sentinel answer so the chat session can carry on.
func (c *Chain) Generate(ctx context.Context, system, user string, temperature float64) string {
	for _, b := range c.backends {
		answer, err := b.Generate(ctx, system, user, temperature)
		if err != nil {
			log.Warn().Err(err).Str("backend", b.Name()).Msg("generation backend failed, trying next")
			continue
		}
		log.Debug().Str("backend", b.Name()).Msg("generation succeeded")
		return answer
	}
	log.Warn().Msg("all generation backends failed")
	return models.SentinelAnswer
}
