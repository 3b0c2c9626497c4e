package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dhelbig/korrespondenz/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// DB exposes the underlying handle so collaborators (the number allocator)
// can run on the same transaction.
func (r *DocumentRepository) DB() *gorm.DB {
	return r.db
}

// Transaction runs fn with a repository bound to one store transaction.
// Number allocation and the document insert go through it together, so a
// failure anywhere rolls back both.
func (r *DocumentRepository) Transaction(ctx context.Context, fn func(tx *DocumentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DocumentRepository{db: tx})
	})
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *DocumentRepository) Get(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, docType, status string, offset, limit int) ([]model.Document, error) {
	query := r.db.WithContext(ctx).Model(&model.Document{})
	if docType != "" {
		query = query.Where("doc_type = ?", docType)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var docs []model.Document
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ListForPeriod returns all documents whose document date falls into
// [from, to), ordered by number, for the register export.
func (r *DocumentRepository) ListForPeriod(ctx context.Context, from, to time.Time) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where("doc_date >= ? AND doc_date < ?", from, to).
		Order("doc_number ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Document{}, id).Error
}

// SetArchived transitions a document to archived and records the archive
// task reference in one statement.
func (r *DocumentRepository) SetArchived(ctx context.Context, id uint, taskID string) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE documents
		SET status = ?, archive_task_id = ?, updated_at = ?
		WHERE id = ?
	`, model.DocStatusArchived, taskID, time.Now(), id).Error
}
