package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/spectrumnews/spectrum/internal/server"
	"github.com/spectrumnews/spectrum/internal/store"
	"github.com/spectrumnews/spectrum/models"
)

// TestStoreRoundTrip runs the session/article contract against a real
// Postgres. Skipped in -short mode.
func TestStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "spectrum",
			"POSTGRES_PASSWORD": "spectrum",
			"POSTGRES_DB":       "spectrum",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(time.Minute),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://spectrum:spectrum@%s:%s/spectrum?sslmode=disable", host, port.Port())
	if err := server.Migrate("file://../../migrations", dsn, "up", 0); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("NewWithDSN: %v", err)
	}
	defer st.DB.Close()

	sessionID, err := st.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	ok, err := st.SessionExists(ctx, sessionID)
	if err != nil || !ok {
		t.Fatalf("SessionExists: ok=%v err=%v", ok, err)
	}

	first := models.ArticleRecord{Source: "CNN", Title: "v1", URL: "https://cnn.com/a", Contents: "one", Bias: models.BiasLeft}
	second := first
	second.Title = "v2"
	second.Contents = "two"

	if err := st.UpsertArticles(ctx, sessionID, []models.ArticleRecord{first}); err != nil {
		t.Fatalf("UpsertArticles: %v", err)
	}
	if err := st.UpsertArticles(ctx, sessionID, []models.ArticleRecord{second}); err != nil {
		t.Fatalf("UpsertArticles (overwrite): %v", err)
	}

	record, err := st.GetArticle(ctx, sessionID, first.URL)
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if record.Title != "v2" || record.Contents != "two" {
		t.Fatalf("expected last write to win, got %+v", record)
	}

	var count int
	if err := st.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE session_id = $1 AND url = $2`,
		sessionID, first.URL).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row after repeated upsert, got %d", count)
	}

	if _, err := st.GetArticle(ctx, sessionID, "https://cnn.com/missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
