package operator_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"ignite-service/internal/config"
	"ignite-service/internal/model"
	operatorsvc "ignite-service/internal/service/operator"
	pkgAuth "ignite-service/pkg/auth"
	appErr "ignite-service/pkg/errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, *operatorsvc.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.Operator{}); err != nil {
		t.Fatalf("failed to migrate operator model: %v", err)
	}

	config.GlobalConfig = &config.Config{
		JWT: config.JWTConfig{
			Secret: "test-secret",
			Expire: 1,
		},
		Operator: config.OperatorConfig{
			DefaultUsername: "bootstrap",
			DefaultPassword: "Bootstrap@123",
		},
	}

	return db, operatorsvc.NewService(db)
}

func createOperator(t *testing.T, db *gorm.DB, username, password, status string) *model.Operator {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	op := &model.Operator{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  "Tester",
		Status:       status,
	}
	if err := db.Create(op).Error; err != nil {
		t.Fatalf("failed to insert operator: %v", err)
	}
	return op
}

func TestLoginSuccess(t *testing.T) {
	db, svc := newTestService(t)
	record := createOperator(t, db, "root", "Secret@123", "active")

	resp, err := svc.Login(context.Background(), "root", "Secret@123")
	if err != nil {
		t.Fatalf("expected login to succeed, got error: %v", err)
	}
	claims, err := pkgAuth.ParseOperatorToken(resp.Token)
	if err != nil {
		t.Fatalf("expected operator token, got error: %v", err)
	}
	if claims.SubjectID != fmt.Sprint(record.ID) {
		t.Fatalf("expected subject %d, got %s", record.ID, claims.SubjectID)
	}

	var stored model.Operator
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("failed to reload operator: %v", err)
	}
	if stored.LastLoginAt == nil || stored.LastLoginAt.Before(time.Now().Add(-5*time.Minute)) {
		t.Fatalf("expected last_login_at to be updated, got %v", stored.LastLoginAt)
	}
}

func TestLoginFailures(t *testing.T) {
	db, svc := newTestService(t)
	createOperator(t, db, "root", "Secret@123", "active")
	createOperator(t, db, "gone", "Secret@123", "disabled")

	cases := []struct {
		user, pass string
		want       error
	}{
		{"root", "wrong-password", appErr.ErrInvalidOperatorPassword},
		{"gone", "Secret@123", appErr.ErrOperatorDisabled},
		{"ghost", "whatever", appErr.ErrOperatorNotFound},
		{"", "", appErr.ErrInvalidOperatorPassword},
	}
	for _, tc := range cases {
		if _, err := svc.Login(context.Background(), tc.user, tc.pass); !errors.Is(err, tc.want) {
			t.Fatalf("login %q: expected %v, got %v", tc.user, tc.want, err)
		}
	}
}

func TestEnsureDefaultOperator(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.EnsureDefaultOperator(ctx); err != nil {
			t.Fatalf("bootstrap %d failed: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&model.Operator{}).
		Where("username = ?", config.GlobalConfig.Operator.DefaultUsername).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count operators: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected idempotent bootstrap, got %d operators", count)
	}

	if _, err := svc.Login(ctx, "bootstrap", "Bootstrap@123"); err != nil {
		t.Fatalf("expected bootstrap operator to log in, got %v", err)
	}
}
