package ledger

import (
	"context"
	"encoding/json"

	"ignite-service/internal/model"
	"ignite-service/pkg/money"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Entry struct {
	AccountID    string
	Type         string
	Delta        money.Amount
	BalanceAfter money.Amount
	SessionID    string
	Note         string
	Requested    money.Amount
}

// Journal keeps an append-only trail of balance mutations.
type Journal interface {
	Append(ctx context.Context, entry Entry) error
}

type NopJournal struct{}

func (NopJournal) Append(context.Context, Entry) error { return nil }

type DBJournal struct {
	db *gorm.DB
}

func NewDBJournal(db *gorm.DB) *DBJournal {
	return &DBJournal{db: db}
}

func (j *DBJournal) Append(ctx context.Context, entry Entry) error {
	meta, err := json.Marshal(map[string]any{
		"requested": entry.Requested,
		"note":      entry.Note,
	})
	if err != nil {
		return err
	}
	row := model.LedgerEntry{
		AccountID:    entry.AccountID,
		Type:         entry.Type,
		Delta:        int64(entry.Delta),
		BalanceAfter: int64(entry.BalanceAfter),
		MetaJSON:     datatypes.JSON(meta),
	}
	if entry.SessionID != "" {
		sessionID := entry.SessionID
		row.SessionID = &sessionID
	}
	return j.db.WithContext(ctx).Create(&row).Error
}

type HistoryResult struct {
	Items []model.LedgerEntry `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Size  int                 `json:"size"`
}

// History pages through an account's journal, newest first.
func (j *DBJournal) History(ctx context.Context, accountID string, page, size int) (*HistoryResult, error) {
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
	if err := j.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("account_id = ?", accountID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var items []model.LedgerEntry
	if total > 0 {
		if err := j.db.WithContext(ctx).
			Where("account_id = ?", accountID).
			Order("id DESC").
			Limit(size).
			Offset((page - 1) * size).
			Find(&items).Error; err != nil {
			return nil, err
		}
	}
	return &HistoryResult{Items: items, Total: total, Page: page, Size: size}, nil
}
