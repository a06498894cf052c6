package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"ignite-service/internal/config"
	pkgAuth "ignite-service/pkg/auth"
	appErr "ignite-service/pkg/errors"
	"ignite-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextAccountIDKey  = "accountID"
	ContextOperatorIDKey = "operatorID"

	ServiceTokenHeader = "X-Service-Token"
)

func skipAuth() bool {
	return config.GlobalConfig != nil && config.GlobalConfig.Features.SkipAuth
}

func PlayerAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipAuth() {
			c.Next()
			return
		}
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, errors.Join(appErr.ErrUnauthorized, err))
			return
		}

		claims, err := pkgAuth.ParsePlayerToken(token)
		if err != nil {
			response.Error(c, appErr.ErrUnauthorized)
			return
		}

		c.Set(ContextAccountIDKey, claims.SubjectID)
		c.Next()
	}
}

func OperatorAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipAuth() {
			c.Next()
			return
		}
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, errors.Join(appErr.ErrUnauthorized, err))
			return
		}

		claims, err := pkgAuth.ParseOperatorToken(token)
		if err != nil {
			response.Error(c, appErr.ErrUnauthorized)
			return
		}

		c.Set(ContextOperatorIDKey, claims.SubjectID)
		c.Next()
	}
}

// ServiceTokenRequired guards machine-to-machine callbacks with a shared token.
func ServiceTokenRequired(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipAuth() {
			c.Next()
			return
		}
		got := c.GetHeader(ServiceTokenHeader)
		if expected == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			response.Error(c, appErr.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// ActingAs reports whether the authenticated player may act for accountID.
func ActingAs(c *gin.Context, accountID string) bool {
	if skipAuth() {
		return true
	}
	return c.GetString(ContextAccountIDKey) == accountID
}

func extractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
