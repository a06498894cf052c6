package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"ignite-service/internal/model"
	"ignite-service/internal/service/balance/mocks"
	"ignite-service/internal/service/ledger"
	"ignite-service/internal/service/lock"
	"ignite-service/internal/store"
	appErr "ignite-service/pkg/errors"
	"ignite-service/pkg/money"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/mock/gomock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	store    store.Store
	provider *mocks.MockProvider
	svc      *ledger.Service
	journal  *ledger.DBJournal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := store.NewRedisStore(rdb)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.LedgerEntry{}); err != nil {
		t.Fatalf("failed to migrate ledger entries: %v", err)
	}

	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	journal := ledger.NewDBJournal(db)
	locker := lock.NewLocker(s, time.Second, time.Second)

	return &fixture{
		db:       db,
		store:    s,
		provider: provider,
		svc:      ledger.NewService(s, provider, locker, journal),
		journal:  journal,
	}
}

func (f *fixture) seed(t *testing.T, id string, bal money.Amount) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.CreateAccount(ctx, id, "wallet-"+id); err != nil {
		t.Fatalf("create account failed: %v", err)
	}
	if bal > 0 {
		if _, err := f.svc.Credit(ctx, id, bal, ledger.Memo{Type: ledger.TypeDeposit}); err != nil {
			t.Fatalf("seed credit failed: %v", err)
		}
	}
}

func TestCreateAccountConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.svc.CreateAccount(ctx, "p1", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if account.InternalBalance != 0 {
		t.Fatalf("new accounts start empty, got %s", account.InternalBalance)
	}
	if _, err := f.svc.CreateAccount(ctx, "p1", ""); !errors.Is(err, appErr.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	generated, err := f.svc.CreateAccount(ctx, "", "")
	if err != nil || generated.ID == "" {
		t.Fatalf("expected generated id, got %+v err=%v", generated, err)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.GetAccount(context.Background(), "ghost"); !errors.Is(err, appErr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFundsIncludesExternal(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", 25)

	f.provider.EXPECT().
		LookupExternalBalance(gomock.Any(), "wallet-p1").
		Return(money.Amount(40), nil)

	funds, err := f.svc.Funds(context.Background(), "p1")
	if err != nil {
		t.Fatalf("funds failed: %v", err)
	}
	if funds.Internal != 25 || funds.External != 40 || funds.Available != 65 {
		t.Fatalf("unexpected funds: %+v", funds)
	}
}

func TestDebitFloorsAtZero(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", 30)

	m, err := f.svc.Debit(context.Background(), "p1", 50, ledger.Memo{SessionID: "s1"})
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if m.Applied != 30 || m.BalanceAfter != 0 {
		t.Fatalf("expected 0.30 applied and empty balance, got %+v", m)
	}
}

func TestCreditRejectsNegative(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", 0)
	if _, err := f.svc.Credit(context.Background(), "p1", -1, ledger.Memo{}); !errors.Is(err, appErr.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreditRejectsOverflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "p1", money.Max-5)

	if _, err := f.svc.Credit(ctx, "p1", 10, ledger.Memo{}); !errors.Is(err, appErr.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount on overflow, got %v", err)
	}
	acc, err := f.svc.GetAccount(ctx, "p1")
	if err != nil || acc.InternalBalance != money.Max-5 {
		t.Fatalf("overflowing credit must not change the balance, got %+v err=%v", acc, err)
	}
	if _, err := f.svc.Credit(ctx, "p1", 5, ledger.Memo{}); err != nil {
		t.Fatalf("credit up to the maximum should succeed: %v", err)
	}
}

func TestFundsSaturates(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", money.Max)
	f.provider.EXPECT().
		LookupExternalBalance(gomock.Any(), "wallet-p1").
		Return(money.Amount(1), nil)

	funds, err := f.svc.Funds(context.Background(), "p1")
	if err != nil {
		t.Fatalf("funds failed: %v", err)
	}
	if funds.Available != money.Max {
		t.Fatalf("expected available to saturate at the maximum, got %d", funds.Available)
	}
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "p1", 100)

	zero := money.Amount(0)
	if _, err := f.svc.Withdraw(ctx, "p1", &zero, ledger.Memo{}); !errors.Is(err, appErr.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	tooMuch := money.Amount(101)
	if _, err := f.svc.Withdraw(ctx, "p1", &tooMuch, ledger.Memo{}); !errors.Is(err, appErr.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	part := money.Amount(40)
	m, err := f.svc.Withdraw(ctx, "p1", &part, ledger.Memo{})
	if err != nil || m.BalanceAfter != 60 {
		t.Fatalf("partial withdraw: %+v err=%v", m, err)
	}
	m, err = f.svc.Withdraw(ctx, "p1", nil, ledger.Memo{})
	if err != nil || m.Applied != 60 || m.BalanceAfter != 0 {
		t.Fatalf("full withdraw: %+v err=%v", m, err)
	}
	if _, err := f.svc.Withdraw(ctx, "p1", nil, ledger.Memo{}); !errors.Is(err, appErr.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount on empty balance, got %v", err)
	}
}

func TestBalanceNeverNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "p1", 500)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		amount := money.Amount(rng.Intn(300))
		switch rng.Intn(3) {
		case 0:
			_, _ = f.svc.Debit(ctx, "p1", amount, ledger.Memo{})
		case 1:
			_, _ = f.svc.Withdraw(ctx, "p1", &amount, ledger.Memo{})
		default:
			_, _ = f.svc.Credit(ctx, "p1", amount/2, ledger.Memo{})
		}
		account, err := f.svc.GetAccount(ctx, "p1")
		if err != nil {
			t.Fatalf("get account failed: %v", err)
		}
		if account.InternalBalance < 0 {
			t.Fatalf("balance went negative after step %d: %s", i, account.InternalBalance)
		}
	}
}

func TestJournalRecordsMovements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "p1", 100)

	if _, err := f.svc.Apply(ctx, "p1", -30, ledger.Memo{Type: ledger.TypePayout, SessionID: "s1"}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	history, err := f.journal.History(ctx, "p1", 1, 10)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if history.Total != 2 {
		t.Fatalf("expected 2 journal rows, got %d", history.Total)
	}
	latest := history.Items[0]
	if latest.Type != ledger.TypePayout || latest.Delta != -30 || latest.BalanceAfter != 70 {
		t.Fatalf("unexpected latest entry: %+v", latest)
	}
	if latest.SessionID == nil || *latest.SessionID != "s1" {
		t.Fatalf("expected session id on entry, got %v", latest.SessionID)
	}
}
