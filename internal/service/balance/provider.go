// Package balance looks up externally sourced balances owned by the custody service.
package balance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ignite-service/internal/config"
	"ignite-service/internal/model"
	"ignite-service/pkg/money"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks ignite-service/internal/service/balance Provider

// Provider returns the external balance behind an account's external reference.
// An empty ref has a zero balance.
type Provider interface {
	LookupExternalBalance(ctx context.Context, ref string) (money.Amount, error)
}

// New picks the provider configured by external.mode.
func New(cfg config.ExternalConfig, db *gorm.DB) (Provider, error) {
	switch cfg.Mode {
	case "", "none":
		return None{}, nil
	case "mirror":
		return NewMirrorProvider(db), nil
	case "http":
		return NewHTTPProvider(cfg.BaseURL, cfg.ServiceToken, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown external balance mode %q", cfg.Mode)
	}
}

type None struct{}

func (None) LookupExternalBalance(context.Context, string) (money.Amount, error) {
	return 0, nil
}

// HTTPProvider asks the custody service for a live balance.
type HTTPProvider struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewHTTPProvider(baseURL, token string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) LookupExternalBalance(ctx context.Context, ref string) (money.Amount, error) {
	if ref == "" {
		return 0, nil
	}

	endpoint := fmt.Sprintf("%s/api/v1/balances/%s", p.BaseURL, url.PathEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", p.Token)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call custody service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("custody service returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Balance json.RawMessage `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode custody response: %w", err)
	}
	amount, err := money.ParseJSON(payload.Balance)
	if err != nil {
		return 0, fmt.Errorf("custody balance for %s: %w", ref, err)
	}
	return amount, nil
}

// MirrorProvider reads balances from the wallet_mirrors table kept in sync by the custody feed.
type MirrorProvider struct {
	db *gorm.DB
}

func NewMirrorProvider(db *gorm.DB) *MirrorProvider {
	return &MirrorProvider{db: db}
}

func (p *MirrorProvider) LookupExternalBalance(ctx context.Context, ref string) (money.Amount, error) {
	if ref == "" {
		return 0, nil
	}
	var wallet model.WalletMirror
	if err := p.db.WithContext(ctx).Where("ref = ?", ref).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return money.Amount(wallet.Balance), nil
}

// Upsert records the latest known balance for ref.
func (p *MirrorProvider) Upsert(ctx context.Context, wallet model.WalletMirror) error {
	if wallet.LastBalanceCheckAt.IsZero() {
		wallet.LastBalanceCheckAt = time.Now()
	}
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ref"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "chain", "token", "last_balance_check_at", "updated_at"}),
		}).
		Create(&wallet).Error
}
