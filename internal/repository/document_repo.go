package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Benaah/amaniquery-sub002/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRepository handles document and analysis-result persistence.
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// UpsertDocument creates or updates a document keyed by URL.
// Re-ingestion of the same URL updates content in place; the original
// id and created_at are preserved.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - doc: document record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *DocumentRepository) UpsertDocument(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"raw_content", "normalized_content", "source_domain", "published_at",
		}),
	}).Create(doc).Error
}

// GetByURL retrieves a document by its URL (the natural key).
func (r *DocumentRepository) GetByURL(ctx context.Context, url string) (*domain.Document, error) {
	var doc domain.Document
	if err := r.db.WithContext(ctx).First(&doc, "url = ?", url).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetByID retrieves a document by its ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpsertAnalysisResult creates or updates an analysis result keyed by
// (document_id, agent_id). Re-processing overwrites the previous row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - res: analysis result to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *DocumentRepository) UpsertAnalysisResult(ctx context.Context, res *domain.AnalysisResult) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}, {Name: "agent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"result_json", "model_version", "execution_time_ms", "created_at",
		}),
	}).Create(res).Error
}

// ListAnalysisResults retrieves all analysis results for a document.
func (r *DocumentRepository) ListAnalysisResults(ctx context.Context, documentID string) ([]domain.AnalysisResult, error) {
	var results []domain.AnalysisResult
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("agent_id").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to list analysis results: %w", err)
	}
	return results, nil
}

// CountDocuments counts all persisted documents.
func (r *DocumentRepository) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Document{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountAnalysisResults counts results grouped by agent.
func (r *DocumentRepository) CountAnalysisResults(ctx context.Context, agentID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.AnalysisResult{}).
		Where("agent_id = ?", agentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ping verifies the database connection is alive.
func (r *DocumentRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
