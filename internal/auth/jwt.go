// Package auth проверяет bearer-токены. Выпуск токенов выполняет другой сервис.
package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

var (
	// ErrTokenMissing - заголовок Authorization пуст или не Bearer.
	ErrTokenMissing = errors.New("bearer token is missing")
	// ErrTokenInvalid - подпись, срок действия или claims не прошли проверку.
	ErrTokenInvalid = errors.New("bearer token is invalid")
	// ErrSecretRequired - секрет подписи не задан.
	ErrSecretRequired = errors.New("jwt secret is required")
)

// Claims - полезная нагрузка токена.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier проверяет токены, подписанные HS256.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier создаёт Verifier с общим секретом.
func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretRequired
	}
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}, nil
}

// Verify разбирает токен и возвращает вызывающего.
func (v *Verifier) Verify(token string) (domain.Caller, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Caller{}, errors.Join(ErrTokenInvalid, err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.UserID) == "" {
		return domain.Caller{}, ErrTokenInvalid
	}

	role := claims.Role
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}
	return domain.Caller{UserID: domain.CanonicalUserID(claims.UserID), Role: role}, nil
}

// BearerToken извлекает токен из значения заголовка Authorization.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrTokenMissing
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}
