package auth

import (
	"errors"
	"time"

	"ignite-service/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongScope   = errors.New("token scope not allowed")
)

const (
	ScopePlayer   = "player"
	ScopeOperator = "operator"
)

type Claims struct {
	SubjectID string `json:"subjectId"`
	Scope     string `json:"scope"`
	jwt.RegisteredClaims
}

func GeneratePlayerToken(accountID string) (string, time.Time, error) {
	return generateToken(accountID, ScopePlayer)
}

func GenerateOperatorToken(operatorID string) (string, time.Time, error) {
	return generateToken(operatorID, ScopeOperator)
}

func generateToken(subjectID, scope string) (string, time.Time, error) {
	duration := time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour
	now := time.Now()
	expireAt := now.Add(duration)
	claims := Claims{
		SubjectID: subjectID,
		Scope:     scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expireAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   scope,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.GlobalConfig.JWT.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expireAt, nil
}

func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.GlobalConfig.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func ParsePlayerToken(tokenString string) (*Claims, error) {
	return parseScoped(tokenString, ScopePlayer)
}

func ParseOperatorToken(tokenString string) (*Claims, error) {
	return parseScoped(tokenString, ScopeOperator)
}

func parseScoped(tokenString, scope string) (*Claims, error) {
	claims, err := ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Scope != scope {
		return nil, ErrWrongScope
	}
	return claims, nil
}
