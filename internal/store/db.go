package store

import (
	"context"
	"errors"
	"time"

	"ignite-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore keeps documents in the kv_entries table. Expired rows are invisible to
// reads and replaced by conditional creates; PurgeExpired removes them for good.
type DBStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db, now: time.Now}
}

func (s *DBStore) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if s.expired(entry) {
		return nil, ErrNotFound
	}
	return entry.Value, nil
}

func (s *DBStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := s.newEntry(key, value, ttl)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kv_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&entry).Error
}

func (s *DBStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	existing, err := s.load(ctx, key)
	switch {
	case err == nil && s.expired(existing):
		if err := s.db.WithContext(ctx).
			Where("kv_key = ? AND value = ?", key, existing.Value).
			Delete(&model.KVEntry{}).Error; err != nil {
			return false, err
		}
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrNotFound):
		return false, err
	}

	entry := s.newEntry(key, value, ttl)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *DBStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).
		Where("kv_key = ?", key).
		Delete(&model.KVEntry{}).Error
}

// PurgeExpired deletes every expired row and returns how many were removed.
func (s *DBStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&model.KVEntry{})
	return res.RowsAffected, res.Error
}

func (s *DBStore) load(ctx context.Context, key string) (*model.KVEntry, error) {
	var entry model.KVEntry
	err := s.db.WithContext(ctx).Where("kv_key = ?", key).Limit(1).Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.Key == "" {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (s *DBStore) expired(entry *model.KVEntry) bool {
	return entry.ExpiresAt != nil && !entry.ExpiresAt.After(s.now())
}

func (s *DBStore) newEntry(key string, value []byte, ttl time.Duration) model.KVEntry {
	now := s.now()
	entry := model.KVEntry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		entry.ExpiresAt = &expiresAt
	}
	return entry
}
