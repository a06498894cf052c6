package operator

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"ignite-service/internal/config"
	"ignite-service/internal/model"
	pkgAuth "ignite-service/pkg/auth"
	appErr "ignite-service/pkg/errors"
	"ignite-service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

type Service struct {
	db *gorm.DB
}

type LoginResult struct {
	Token    string       `json:"token"`
	ExpireAt time.Time    `json:"expireAt"`
	Operator OperatorInfo `json:"operator"`
}

type OperatorInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, appErr.ErrInvalidOperatorPassword
	}

	var op model.Operator
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&op).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrOperatorNotFound
		}
		return nil, err
	}
	if !strings.EqualFold(op.Status, StatusActive) {
		return nil, appErr.ErrOperatorDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return nil, appErr.ErrInvalidOperatorPassword
	}

	token, expireAt, err := pkgAuth.GenerateOperatorToken(strconv.FormatInt(op.ID, 10))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).
		Model(&op).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"updated_at":    now,
		}).Error; err != nil {
		return nil, err
	}
	op.LastLoginAt = &now

	logger.Log.Info("operator logged in", zap.String("username", op.Username))
	return &LoginResult{
		Token:    token,
		ExpireAt: expireAt,
		Operator: sanitize(op),
	}, nil
}

// Create adds an active operator with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, username, password, displayName string) (*OperatorInfo, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, appErr.ErrInvalidRequest
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = username
	}
	op := model.Operator{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Status:       StatusActive,
	}
	if err := s.db.WithContext(ctx).Create(&op).Error; err != nil {
		return nil, err
	}
	info := sanitize(op)
	return &info, nil
}

func (s *Service) EnsureDefaultOperator(ctx context.Context) error {
	cfg := config.GlobalConfig.Operator
	if cfg.DefaultUsername == "" || cfg.DefaultPassword == "" {
		logger.Log.Warn("default operator credentials not configured; skipping bootstrap")
		return nil
	}

	var exists int64
	if err := s.db.WithContext(ctx).
		Model(&model.Operator{}).
		Where("username = ?", cfg.DefaultUsername).
		Count(&exists).Error; err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}

	if _, err := s.Create(ctx, cfg.DefaultUsername, cfg.DefaultPassword, cfg.DefaultUsername); err != nil {
		return err
	}
	logger.Log.Info("default operator account created",
		zap.String("username", cfg.DefaultUsername))
	return nil
}

func sanitize(op model.Operator) OperatorInfo {
	return OperatorInfo{
		ID:          op.ID,
		Username:    op.Username,
		DisplayName: op.DisplayName,
		Status:      op.Status,
		LastLoginAt: op.LastLoginAt,
		CreatedAt:   op.CreatedAt,
	}
}
