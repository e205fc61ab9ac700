// Package auth guards the mutating API routes. There is a single operator
// identity: the admin token from the config file, stored only as a bcrypt
// hash. A successful login exchanges the token for a short-lived JWT.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrNoTokenConfigured = errors.New("no admin token configured")
)

const sessionTTL = 24 * time.Hour

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	secretKey      []byte
	adminTokenHash string
}

func NewService(secretKey, adminTokenHash string) *Service {
	return &Service{
		secretKey:      []byte(secretKey),
		adminTokenHash: adminTokenHash,
	}
}

// HashToken produces the bcrypt hash stored in the config file. Costs
// outside bcrypt's range fall back to the default.
func HashToken(token string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAdminToken checks a presented token against the configured hash.
// A deployment without a hash has no admin identity and every login fails.
func (s *Service) VerifyAdminToken(token string) error {
	if strings.TrimSpace(s.adminTokenHash) == "" {
		return ErrNoTokenConfigured
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminTokenHash), []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// GenerateSession issues a signed session JWT for the admin role.
func (s *Service) GenerateSession() (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "tracker",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateSession parses and verifies a session JWT.
func (s *Service) ValidateSession(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
