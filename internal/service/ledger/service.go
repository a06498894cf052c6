package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ignite-service/internal/metrics"
	"ignite-service/internal/service/balance"
	"ignite-service/internal/service/lock"
	"ignite-service/internal/store"
	appErr "ignite-service/pkg/errors"
	"ignite-service/pkg/logger"
	"ignite-service/pkg/money"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TypeDebit    = "debit"
	TypeCredit   = "credit"
	TypeWithdraw = "withdraw"
	TypePayout   = "payout"
	TypeDeposit  = "deposit"
)

type Account struct {
	ID              string       `json:"id"`
	InternalBalance money.Amount `json:"internalBalance"`
	ExternalRef     string       `json:"externalRef,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

type Funds struct {
	AccountID string       `json:"accountId"`
	Internal  money.Amount `json:"internalBalance"`
	External  money.Amount `json:"externalBalance"`
	Available money.Amount `json:"available"`
}

// Memo annotates a mutation in the journal. Type defaults to the operation name.
type Memo struct {
	Type      string
	SessionID string
	Note      string
}

type Movement struct {
	AccountID    string       `json:"accountId"`
	Type         string       `json:"type"`
	Requested    money.Amount `json:"requested"`
	Applied      money.Amount `json:"applied"`
	BalanceAfter money.Amount `json:"balanceAfter"`
}

type Service struct {
	store   store.Store
	balance balance.Provider
	locker  *lock.Locker
	journal Journal
	now     func() time.Time
}

func NewService(s store.Store, provider balance.Provider, locker *lock.Locker, journal Journal) *Service {
	if provider == nil {
		provider = balance.None{}
	}
	if journal == nil {
		journal = NopJournal{}
	}
	return &Service{store: s, balance: provider, locker: locker, journal: journal, now: time.Now}
}

func accountKey(id string) string {
	return "account:" + id
}

// CreateAccount stores a fresh account with a zero internal balance. An empty id gets a generated one.
func (s *Service) CreateAccount(ctx context.Context, id, externalRef string) (*Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()
	account := &Account{
		ID:          id,
		ExternalRef: strings.TrimSpace(externalRef),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := store.SetNXJSON(ctx, s.store, accountKey(id), account, 0)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, appErr.ErrAccountExists
	}
	logger.Log.Info("account created", zap.String("accountID", id))
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, id string) (*Account, error) {
	var account Account
	if err := store.GetJSON(ctx, s.store, accountKey(id), &account); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %s", appErr.ErrNotFound, id)
		}
		return nil, err
	}
	return &account, nil
}

// Funds returns the internal balance plus the externally sourced balance.
func (s *Service) Funds(ctx context.Context, id string) (*Funds, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	external, err := s.balance.LookupExternalBalance(ctx, account.ExternalRef)
	if err != nil {
		return nil, fmt.Errorf("lookup external balance: %w", err)
	}
	available, err := money.Add(account.InternalBalance, external)
	if err != nil {
		available = money.Max
	}
	return &Funds{
		AccountID: id,
		Internal:  account.InternalBalance,
		External:  external,
		Available: available,
	}, nil
}

// Debit reduces the internal balance by min(amount, balance). The rest is left to the external source.
func (s *Service) Debit(ctx context.Context, id string, amount money.Amount, memo Memo) (*Movement, error) {
	if amount < 0 {
		return nil, appErr.ErrInvalidAmount
	}
	return s.mutate(ctx, id, TypeDebit, amount, memo, func(acc *Account) (money.Amount, error) {
		applied := money.Min(amount, acc.InternalBalance)
		acc.InternalBalance -= applied
		return -applied, nil
	})
}

func (s *Service) Credit(ctx context.Context, id string, amount money.Amount, memo Memo) (*Movement, error) {
	if amount < 0 {
		return nil, appErr.ErrInvalidAmount
	}
	return s.mutate(ctx, id, TypeCredit, amount, memo, func(acc *Account) (money.Amount, error) {
		balance, err := money.Add(acc.InternalBalance, amount)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", appErr.ErrInvalidAmount, err)
		}
		acc.InternalBalance = balance
		return amount, nil
	})
}

// Withdraw removes amount, or the whole internal balance when amount is nil.
func (s *Service) Withdraw(ctx context.Context, id string, amount *money.Amount, memo Memo) (*Movement, error) {
	if amount != nil && *amount <= 0 {
		return nil, appErr.ErrInvalidAmount
	}
	var requested money.Amount
	if amount != nil {
		requested = *amount
	}
	return s.mutate(ctx, id, TypeWithdraw, requested, memo, func(acc *Account) (money.Amount, error) {
		take := acc.InternalBalance
		if amount != nil {
			take = *amount
		}
		if take <= 0 {
			return 0, appErr.ErrInvalidAmount
		}
		if take > acc.InternalBalance {
			return 0, appErr.ErrInsufficientBalance
		}
		acc.InternalBalance -= take
		return -take, nil
	})
}

// Apply routes a signed delta to Credit or Debit.
func (s *Service) Apply(ctx context.Context, id string, delta money.Amount, memo Memo) (*Movement, error) {
	if delta < 0 {
		return s.Debit(ctx, id, -delta, memo)
	}
	return s.Credit(ctx, id, delta, memo)
}

func (s *Service) mutate(
	ctx context.Context,
	id, op string,
	requested money.Amount,
	memo Memo,
	apply func(acc *Account) (money.Amount, error),
) (*Movement, error) {
	var movement *Movement
	err := s.locker.WithLock(ctx, accountKey(id), func(ctx context.Context) error {
		account, err := s.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		delta, err := apply(account)
		if err != nil {
			return err
		}
		account.UpdatedAt = s.now()
		if err := store.SetJSON(ctx, s.store, accountKey(id), account, 0); err != nil {
			return err
		}
		applied := delta
		if applied < 0 {
			applied = -applied
		}
		entryType := op
		if memo.Type != "" {
			entryType = memo.Type
		}
		movement = &Movement{
			AccountID:    id,
			Type:         entryType,
			Requested:    requested,
			Applied:      applied,
			BalanceAfter: account.InternalBalance,
		}
		s.record(ctx, movement, delta, memo)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *Service) record(ctx context.Context, m *Movement, delta money.Amount, memo Memo) {
	metrics.LedgerMovements.WithLabelValues(m.Type).Inc()
	metrics.LedgerVolume.WithLabelValues(m.Type).Add(float64(m.Applied))

	if err := s.journal.Append(ctx, Entry{
		AccountID:    m.AccountID,
		Type:         m.Type,
		Delta:        delta,
		BalanceAfter: m.BalanceAfter,
		SessionID:    memo.SessionID,
		Note:         memo.Note,
		Requested:    m.Requested,
	}); err != nil {
		logger.Log.Warn("ledger journal append failed",
			zap.String("accountID", m.AccountID),
			zap.String("type", m.Type),
			zap.Int64("delta", int64(delta)),
			zap.Error(err))
	}
}
