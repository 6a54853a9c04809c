package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const documentsTable = "partsquote_documents"

// PostgresStore keeps the record as one JSONB row.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	docID  string
}

// NewPostgresStore connects with the "host", "port", "database", "username",
// "password", "sslmode", "connect_timeout" and "statement_timeout" keys of
// config and creates the documents table when missing.
func NewPostgresStore(ctx context.Context, config map[string]string, logger *zap.Logger) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(buildConnectionString(config))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	docID := config["document_id"]
	if docID == "" {
		docID = DocumentID
	}

	s := &PostgresStore{pool: pool, logger: logger, docID: docID}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + documentsTable + ` (
			id         TEXT PRIMARY KEY,
			body       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*Record, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM `+documentsTable+` WHERE id = $1`, s.docID,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", s.docID, err)
	}
	return DecodeRecord(body)
}

func (s *PostgresStore) Save(ctx context.Context, r *Record) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	query := `
		INSERT INTO ` + documentsTable + ` (id, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.pool.Exec(ctx, query, s.docID, body); err != nil {
		return fmt.Errorf("failed to save document %s: %w", s.docID, err)
	}

	s.logger.Debug("Document saved", zap.String("id", s.docID), zap.Int("bytes", len(body)))
	return nil
}

func buildConnectionString(config map[string]string) string {
	host := config["host"]
	port := config["port"]
	database := config["database"]
	username := config["username"]
	password := config["password"]
	sslmode := config["sslmode"]
	if sslmode == "" {
		sslmode = "prefer"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		username, password, host, port, database, sslmode)

	if connectTimeout := config["connect_timeout"]; connectTimeout != "" {
		if duration, err := time.ParseDuration(connectTimeout); err == nil {
			dsn += fmt.Sprintf("&connect_timeout=%d", int(duration.Seconds()))
		}
	}

	// PostgreSQL reads a bare statement_timeout as milliseconds.
	if statementTimeout := config["statement_timeout"]; statementTimeout != "" {
		if duration, err := time.ParseDuration(statementTimeout); err == nil {
			dsn += fmt.Sprintf("&statement_timeout=%d", duration.Milliseconds())
		}
	}

	return dsn
}
