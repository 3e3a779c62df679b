// Package store persists search sessions and their article records in
// Postgres. Sessions are creation-only: nothing here expires them, cleanup
// is an operator concern (ON DELETE CASCADE removes a session's articles).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/spectrumnews/spectrum/models"
)

// ErrNotFound reports an absent session or article. It is deliberately
// distinct from connectivity errors so handlers can answer 404 instead of
// 500: "search first" is a client mistake, a dead database is not.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	DB *sql.DB
}

// NewWithDSN opens a Postgres connection pool and verifies connectivity.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// CreateSession inserts a fresh session and returns its id.
func (s *Store) CreateSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO sessions (session_id) VALUES ($1)`, id)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// SessionExists reports whether the session id is known.
func (s *Store) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM sessions WHERE session_id = $1`, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return true, nil
}

// UpsertArticles stores the batch in one transaction. Each (session, url)
// pair is overwritten if present, inserted otherwise; repeating a search
// never duplicates rows.
func (s *Store) UpsertArticles(ctx context.Context, sessionID string, articles []models.ArticleRecord) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO articles (session_id, url, data)
VALUES ($1, $2, $3)
ON CONFLICT (session_id, url) DO UPDATE SET data = EXCLUDED.data`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, article := range articles {
		data, err := json.Marshal(article)
		if err != nil {
			return fmt.Errorf("marshal article %s: %w", article.URL, err)
		}
		if _, err := stmt.ExecContext(ctx, sessionID, article.URL, data); err != nil {
			return fmt.Errorf("upsert article %s: %w", article.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// GetArticle loads one record by (session, url). Returns ErrNotFound when
// the pair is unknown.
func (s *Store) GetArticle(ctx context.Context, sessionID, url string) (models.ArticleRecord, error) {
	var data []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT data FROM articles WHERE session_id = $1 AND url = $2`,
		sessionID, url).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ArticleRecord{}, ErrNotFound
	}
	if err != nil {
		return models.ArticleRecord{}, fmt.Errorf("get article: %w", err)
	}

	var record models.ArticleRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return models.ArticleRecord{}, fmt.Errorf("decode article %s: %w", url, err)
	}
	return record, nil
}
