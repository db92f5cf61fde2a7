package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"notes-rag/internal/config"
	"notes-rag/internal/embedding"
	"notes-rag/internal/index"
	"notes-rag/internal/ingest"
	"notes-rag/internal/llm"
	"notes-rag/internal/rag"
	"notes-rag/internal/splitter"
	"notes-rag/internal/tui"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	// .env is optional; real deployments set the variables directly.
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	ingestDir := flag.String("ingest", "", "Directory of documents to (re)index")
	query := flag.String("query", "", "One-shot question; without it the chat UI starts")
	topK := flag.Int("k", 0, "Number of chunks to retrieve per question (1-10)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if *topK >= 1 && *topK <= 10 {
		cfg.RAG.TopK = *topK
	}

	ctx := context.Background()

	switch {
	case *ingestDir != "":
		runIngest(ctx, cfg, *ingestDir)
	case *query != "":
		runQuery(ctx, cfg, *query)
	default:
		runChat(ctx, cfg)
	}
}

// indexBackends returns the fallback order: Postgres first when it is
// configured, the embedded store always last.
func indexBackends(cfg *config.Config) []index.Backend {
	var backends []index.Backend
	if cfg.Index.PostgresDSN != "" {
		backends = append(backends, index.NewPostgres(cfg.Index.PostgresDSN, cfg.Index.Debug))
	}
	backends = append(backends, index.NewChromem(cfg.Index.ChromemPath, cfg.Index.Collection))
	return backends
}

func runIngest(ctx context.Context, cfg *config.Config, dir string) {
	embedder, err := embedding.FromConfig(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	// Ingestion writes to the first configured backend; queries fall
	// back across all of them.
	backend := indexBackends(cfg)[0]
	pipeline := ingest.New(splitter.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap), embedder, backend)

	var bar *progressbar.ProgressBar
	pipeline.OnProgress(func(done, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total), "embedding chunks")
		}
		_ = bar.Set(done)
	})

	report, err := pipeline.Run(ctx, dir)
	if err != nil {
		if errors.Is(err, ingest.ErrNoDocuments) {
			log.Fatal().Str("dir", dir).Msg("No ingestable documents found; existing index left untouched")
		}
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	color.Green("Indexed %d chunks from %d documents into %s (%d files skipped)",
		report.Chunks, report.Documents, backend.Name(), report.Skipped)
}

func newQueryPipeline(ctx context.Context, cfg *config.Config) *rag.Pipeline {
	embedder, err := embedding.FromConfig(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	backend, err := index.Open(ctx, indexBackends(cfg)...)
	if err != nil {
		log.Fatal().Err(err).Msg("No vector index available; run with -ingest first")
	}

	chain := llm.FromConfig(cfg.LLM)
	return rag.New(embedder, backend, chain, cfg.RAG.Temperature)
}

func runQuery(ctx context.Context, cfg *config.Config, query string) {
	pipeline := newQueryPipeline(ctx, cfg)

	answer, err := pipeline.Run(ctx, query, cfg.RAG.TopK, cfg.RAG.SystemPrompt, cfg.RAG.PromptTemplate)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering query")
	}

	color.Cyan("Q: %s\n", query)
	for i, r := range answer.Results {
		color.Yellow("[%d] %s (p.%s, similarity %.3f)", i+1, r.Meta["source"], r.Meta["page"], r.Similarity)
	}
	fmt.Println()
	fmt.Println(answer.Text)
}

func runChat(ctx context.Context, cfg *config.Config) {
	pipeline := newQueryPipeline(ctx, cfg)

	model := tui.New(pipeline, tui.Options{
		TopK:           cfg.RAG.TopK,
		SystemPrompt:   cfg.RAG.SystemPrompt,
		PromptTemplate: cfg.RAG.PromptTemplate,
		RevealChars:    cfg.Chat.RevealChars,
		RevealPace:     time.Duration(cfg.Chat.RevealPaceMs) * time.Millisecond,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal().Err(err).Msg("Error running chat UI")
	}
}
