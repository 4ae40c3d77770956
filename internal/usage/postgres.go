package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

// migrationLockID guards the ledger migration across replicas.
const migrationLockID = 734019221

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresLedger appends one row per usage event to embed_usage.
type PostgresLedger struct {
	db   execer
	conn *sql.DB
}

// NewPostgres opens the database and migrates the ledger table.
func NewPostgres(ctx context.Context, dsn string) (*PostgresLedger, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	l := &PostgresLedger{db: db, conn: db}
	if err := l.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *PostgresLedger) migrate(ctx context.Context) error {
	// Advisory locks are session scoped: lock, DDL and unlock share one connection.
	conn, err := l.conn.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to reserve migration connection: %w", err)
	}
	defer conn.Close()

	var acquired bool
	err = conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, migrationLockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		// another replica is migrating
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS embed_usage (
			id UUID PRIMARY KEY,
			model TEXT NOT NULL,
			input_type TEXT,
			inputs INT NOT NULL,
			item_tokens INT[] NOT NULL,
			total_tokens INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS embed_usage_model_created_idx ON embed_usage (model, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate embed_usage: %w", err)
		}
	}
	return nil
}

const insertUsage = `INSERT INTO embed_usage (id, model, input_type, inputs, item_tokens, total_tokens, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`

func (l *PostgresLedger) Record(ctx context.Context, ev Event) error {
	tokens := make([]int64, len(ev.ItemTokens))
	for i, n := range ev.ItemTokens {
		tokens[i] = int64(n)
	}
	_, err := l.db.ExecContext(ctx, insertUsage,
		ev.ID, ev.Model, ev.InputType, ev.Inputs, pq.Array(tokens), ev.TotalTokens, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}

// Close closes the underlying pool.
func (l *PostgresLedger) Close() error {
	if l.conn == nil {
		return nil
	}
	return l.conn.Close()
}
