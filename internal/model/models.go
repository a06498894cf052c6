package model

import (
	"time"

	"gorm.io/datatypes"
)

// Key/value documents when store.driver is "db".

type KVEntry struct {
	Key       string `gorm:"column:kv_key;primaryKey;size:191"`
	Value     []byte
	ExpiresAt *time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// Ledger journal

type LedgerEntry struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	AccountID    string `gorm:"size:64;index;not null"`
	Type         string `gorm:"size:32;not null"` // debit/credit/withdraw/payout
	Delta        int64
	BalanceAfter int64
	SessionID    *string `gorm:"size:64;index"`
	MetaJSON     datatypes.JSON
	CreatedAt    time.Time
}

// Resolved session index used for retention and archival.

type SessionRecord struct {
	ID               string  `gorm:"primaryKey;size:64"`
	DocumentKey      string  `gorm:"size:191;not null"`
	Status           string  `gorm:"size:16;not null"`
	Settlement       string  `gorm:"size:16"`
	WinnerID         *string `gorm:"size:64"`
	Pool             int64
	DistributionRule string `gorm:"size:64"`
	ResultJSON       datatypes.JSON
	ResolvedAt       *time.Time `gorm:"index"`
	ArchivedAt       *time.Time `gorm:"index"`
	ArchiveKey       string     `gorm:"size:255"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// External balances mirrored from the custody service.

type WalletMirror struct {
	Ref                string `gorm:"primaryKey;size:128"`
	Balance            int64  `gorm:"not null"`
	Chain              string `gorm:"size:64"`
	Token              string `gorm:"size:64"`
	LastBalanceCheckAt time.Time
	UpdatedAt          time.Time
}

// Operators

type Operator struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null;size:64"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	Status       string `gorm:"default:active;not null"` // active/disabled
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// All lists every model for migration.
func All() []interface{} {
	return []interface{}{
		&KVEntry{},
		&LedgerEntry{},
		&SessionRecord{},
		&WalletMirror{},
		&Operator{},
	}
}
