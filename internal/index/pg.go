package index

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// noteChunk is the persisted row shape for the Postgres backend. The
// vector dimension is fixed by the embedding model; changing models
// requires a full re-index anyway.
type noteChunk struct {
	bun.BaseModel `bun:"table:note_chunks,alias:nc"`

	ID        string    `bun:"id,pk"`
	Text      string    `bun:"chunk_text,notnull"`
	Source    string    `bun:"source"`
	Page      int       `bun:"page"`
	Ordinal   int       `bun:"ordinal"`
	Embedding []float32 `bun:"embedding,notnull,type:vector(1024)"`

	Similarity float32 `bun:"similarity,scanonly"`
}

// Postgres is the primary vector index backend, a pgvector table managed
// through bun. It is preferred when DATABASE_URL points at a reachable
// server; otherwise loading falls through to the embedded backend.
type Postgres struct {
	db *bun.DB
}

func NewPostgres(dsn string, debug bool) *Postgres {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Postgres{db: db}
}

func (p *Postgres) Name() string { return "postgres" }

// Load verifies the server is reachable and the table holds data. A
// connection failure is an environment problem and lets the caller fall
// back; an empty or missing table is ErrNotFound.
func (p *Postgres) Load(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres unreachable: %w", err)
	}
	count, err := p.db.NewSelect().Model((*noteChunk)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("%w: note_chunks table not readable", ErrNotFound)
	}
	if count == 0 {
		return fmt.Errorf("%w: note_chunks table is empty", ErrNotFound)
	}
	return nil
}

// Rebuild drops and recreates the table inside one transaction, so
// readers never observe a half-written index.
func (p *Postgres) Rebuild(ctx context.Context, records []Record) error {
	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
			return fmt.Errorf("enabling pgvector: %w", err)
		}
		if _, err := tx.NewDropTable().Model((*noteChunk)(nil)).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("dropping note_chunks: %w", err)
		}
		if _, err := tx.NewCreateTable().Model((*noteChunk)(nil)).Exec(ctx); err != nil {
			return fmt.Errorf("creating note_chunks: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		rows := make([]noteChunk, len(records))
		for i, r := range records {
			rows[i] = noteChunk{
				ID:        r.ID,
				Text:      r.Text,
				Source:    r.Meta["source"],
				Page:      atoi(r.Meta["page"]),
				Ordinal:   atoi(r.Meta["ordinal"]),
				Embedding: r.Embedding,
			}
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("inserting note_chunks: %w", err)
		}
		return nil
	})
}

func (p *Postgres) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}
	lit := vectorLiteral(query)
	var rows []noteChunk
	err := p.db.NewSelect().
		Model(&rows).
		ColumnExpr("nc.*").
		ColumnExpr("1 - (embedding <=> ?::vector) AS similarity", lit).
		OrderExpr("embedding <=> ?::vector", lit).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres search: %w", err)
	}

	results := make([]Result, len(rows))
	for i, row := range rows {
		results[i] = Result{
			Record: Record{
				ID:   row.ID,
				Text: row.Text,
				Meta: map[string]string{
					"source":  row.Source,
					"page":    strconv.Itoa(row.Page),
					"ordinal": strconv.Itoa(row.Ordinal),
				},
				Embedding: row.Embedding,
			},
			Similarity: row.Similarity,
		}
	}
	return results, nil
}

func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
