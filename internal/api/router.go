package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ignite-service/internal/middleware"
	"ignite-service/internal/service"
	appErr "ignite-service/pkg/errors"
	"ignite-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})
	if services.Config.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/accounts", handler.CreateAccount)
		v1.GET("/sessions/:id", handler.GetSession)

		player := v1.Group("/")
		player.Use(middleware.PlayerAuthRequired())
		{
			player.GET("/accounts/:id", handler.GetAccount)
			player.GET("/accounts/:id/ledger", handler.AccountLedger)
			player.POST("/accounts/:id/withdraw", handler.Withdraw)

			player.POST("/sessions", handler.CreateSession)
			player.POST("/sessions/:id/join", handler.JoinSession)
			player.POST("/sessions/:id/start", handler.StartSession)
			player.POST("/sessions/:id/move", handler.MoveInSession)
		}
	}

	adminGroup := r.Group("/admin")
	{
		adminGroup.POST("/auth/login", handler.OperatorLogin)

		protected := adminGroup.Group("/")
		protected.Use(middleware.OperatorAuthRequired())
		{
			protected.GET("/sessions", handler.AdminListSessions)
			protected.POST("/sessions/:id/join", handler.AdminJoinSession)
			protected.POST("/sessions/:id/resolve", handler.ResolveSession)
			protected.POST("/sessions/:id/collapse", handler.CollapseTiles)
			protected.POST("/accounts/:id/credit", handler.AdminCredit)
			protected.POST("/archive/sweep", handler.AdminArchiveSweep)
		}
	}

	webhooks := r.Group("/webhooks")
	webhooks.Use(middleware.ServiceTokenRequired(services.Config.Webhook.ServiceToken))
	{
		webhooks.POST("/payments", handler.PaymentWebhook)
	}
}

// dedupe runs op under the idempotency guard and writes the (possibly replayed) payload with status.
func (h *Handler) dedupe(c *gin.Context, status int, bodyKey string, op func(ctx context.Context) (any, error)) {
	payload, err := h.services.Guard.Execute(c.Request.Context(), callerScopedKey(c, dedupeKey(c, bodyKey)), op)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, status, payload)
}

func dedupeKey(c *gin.Context, bodyKey string) string {
	if key := strings.TrimSpace(c.GetHeader(IdempotencyHeader)); key != "" {
		return key
	}
	return strings.TrimSpace(bodyKey)
}

// callerScopedKey prefixes key with the authenticated subject so one caller
// can never replay another caller's result.
func callerScopedKey(c *gin.Context, key string) string {
	if key == "" {
		return ""
	}
	if id := c.GetString(middleware.ContextOperatorIDKey); id != "" {
		return "operator:" + id + ":" + key
	}
	if id := c.GetString(middleware.ContextAccountIDKey); id != "" {
		return "player:" + id + ":" + key
	}
	return key
}

// bindJSON binds an optional body; an empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, fmt.Errorf("%w: %v", appErr.ErrInvalidRequest, err))
		return false
	}
	return true
}

func requireActingAs(c *gin.Context, accountID string) bool {
	if middleware.ActingAs(c, accountID) {
		return true
	}
	response.Error(c, appErr.ErrForbidden)
	return false
}

func parsePositiveIntQuery(c *gin.Context, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", appErr.ErrInvalidRequest, key)
	}
	return parsed, nil
}

func isPresent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}
