package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Benaah/amaniquery-sub002/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *DocumentRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive for the test
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db.Exec("PRAGMA foreign_keys=ON")
	require.NoError(t, db.AutoMigrate(&domain.Document{}, &domain.AnalysisResult{}))

	return NewDocumentRepository(db)
}

func testDocument(id, url, content string) *domain.Document {
	return &domain.Document{
		ID:                id,
		URL:               url,
		RawContent:        content,
		NormalizedContent: content,
		SourceDomain:      "news.example.com",
		CreatedAt:         time.Now(),
	}
}

func TestUpsertDocumentKeyedByURL(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := testDocument("doc-a", "https://news.example.com/1", "first version")
	require.NoError(t, repo.UpsertDocument(ctx, first))

	// Re-ingestion of the same URL with a different candidate ID updates in
	// place; the stored row keeps its original ID
	second := testDocument("doc-b", "https://news.example.com/1", "second version")
	require.NoError(t, repo.UpsertDocument(ctx, second))

	count, err := repo.CountDocuments(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	stored, err := repo.GetByURL(ctx, "https://news.example.com/1")
	require.NoError(t, err)
	require.Equal(t, "doc-a", stored.ID)
	require.Equal(t, "second version", stored.RawContent)
}

func TestUpsertAnalysisResultOverwrites(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	doc := testDocument("doc-a", "https://news.example.com/1", "body")
	require.NoError(t, repo.UpsertDocument(ctx, doc))

	require.NoError(t, repo.UpsertAnalysisResult(ctx, &domain.AnalysisResult{
		DocumentID:      "doc-a",
		AgentID:         "sentiment",
		ResultJSON:      domain.JSONMap{"sentiment": "negative"},
		ModelVersion:    "model-v1",
		ExecutionTimeMs: 120,
	}))

	require.NoError(t, repo.UpsertAnalysisResult(ctx, &domain.AnalysisResult{
		DocumentID:      "doc-a",
		AgentID:         "sentiment",
		ResultJSON:      domain.JSONMap{"sentiment": "positive"},
		ModelVersion:    "model-v2",
		ExecutionTimeMs: 80,
	}))

	results, err := repo.ListAnalysisResults(ctx, "doc-a")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "positive", results[0].ResultJSON["sentiment"])
	require.Equal(t, "model-v2", results[0].ModelVersion)
}

func TestListAnalysisResultsSortedByAgent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	doc := testDocument("doc-a", "https://news.example.com/1", "body")
	require.NoError(t, repo.UpsertDocument(ctx, doc))

	for _, agentID := range []string{"topic", "entities", "sentiment"} {
		require.NoError(t, repo.UpsertAnalysisResult(ctx, &domain.AnalysisResult{
			DocumentID: "doc-a",
			AgentID:    agentID,
			ResultJSON: domain.JSONMap{"ok": true},
		}))
	}

	results, err := repo.ListAnalysisResults(ctx, "doc-a")
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "entities", results[0].AgentID)
	require.Equal(t, "sentiment", results[1].AgentID)
	require.Equal(t, "topic", results[2].AgentID)
}

func TestCountAnalysisResultsByAgent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for i, url := range []string{"https://a.example.com/1", "https://a.example.com/2"} {
		doc := testDocument(string(rune('a'+i)), url, "body")
		require.NoError(t, repo.UpsertDocument(ctx, doc))
		require.NoError(t, repo.UpsertAnalysisResult(ctx, &domain.AnalysisResult{
			DocumentID: doc.ID,
			AgentID:    "sentiment",
			ResultJSON: domain.JSONMap{"ok": true},
		}))
	}

	count, err := repo.CountAnalysisResults(ctx, "sentiment")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	count, err = repo.CountAnalysisResults(ctx, "topic")
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}

func TestPing(t *testing.T) {
	repo := setupTestDB(t)
	require.NoError(t, repo.Ping(context.Background()))
}
