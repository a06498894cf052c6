// Package archive indexes resolved sessions and moves them out of the hot store once their
// retention window has passed.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ignite-service/internal/model"
	appErr "ignite-service/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettlementCompleted marks a record whose payouts were applied.
const SettlementCompleted = "completed"

type Index struct {
	db *gorm.DB
}

func NewIndex(db *gorm.DB) *Index {
	return &Index{db: db}
}

// RecordResolution upserts the index row for a resolved session.
func (i *Index) RecordResolution(ctx context.Context, record model.SessionRecord) error {
	return i.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"settlement",
				"winner_id",
				"pool",
				"distribution_rule",
				"result_json",
				"resolved_at",
				"updated_at",
			}),
		}).
		Create(&record).Error
}

func (i *Index) Get(ctx context.Context, id string) (*model.SessionRecord, error) {
	var record model.SessionRecord
	if err := i.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session record %s", appErr.ErrNotFound, id)
		}
		return nil, err
	}
	return &record, nil
}

type ListResult struct {
	Items []model.SessionRecord `json:"items"`
	Total int64                 `json:"total"`
}

func (i *Index) List(ctx context.Context, page, size int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	var total int64
	if err := i.db.WithContext(ctx).
		Model(&model.SessionRecord{}).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var items []model.SessionRecord
	if total > 0 {
		if err := i.db.WithContext(ctx).
			Model(&model.SessionRecord{}).
			Order("resolved_at DESC").
			Limit(size).
			Offset((page - 1) * size).
			Find(&items).Error; err != nil {
			return nil, err
		}
	}
	return &ListResult{Items: items, Total: total}, nil
}

// Due returns unarchived, settled records resolved at or before cutoff, oldest first.
// Sessions still awaiting settlement stay in the store regardless of age.
func (i *Index) Due(ctx context.Context, cutoff time.Time, limit int) ([]model.SessionRecord, error) {
	var records []model.SessionRecord
	err := i.db.WithContext(ctx).
		Where("archived_at IS NULL AND resolved_at IS NOT NULL AND resolved_at <= ?", cutoff).
		Where("settlement = ?", SettlementCompleted).
		Order("resolved_at ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (i *Index) MarkArchived(ctx context.Context, id, key string, at time.Time) error {
	return i.db.WithContext(ctx).
		Model(&model.SessionRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"archived_at": at,
			"archive_key": key,
			"updated_at":  at,
		}).Error
}
