// Package auth guards the admin API. The admin token from the environment is
// exchanged at login for a signed short-lived session token; the plaintext
// token is only kept as a bcrypt hash after startup.
package auth

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"geo-redirector/internal/common/errors"
)

// Auth issues and validates admin session tokens.
type Auth struct {
	tokenHash  []byte
	secret     []byte
	sessionTTL time.Duration
}

// New creates an Auth from the admin token and session settings. An empty
// sessionSecret gets a random per-process secret, which invalidates sessions
// on restart.
func New(adminToken, sessionSecret string, sessionTTL time.Duration) (*Auth, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin token: %w", err)
	}

	secret := []byte(sessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
	}

	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	return &Auth{
		tokenHash:  hash,
		secret:     secret,
		sessionTTL: sessionTTL,
	}, nil
}

// Login checks the presented admin token and returns a signed session token.
func (a *Auth) Login(token string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(a.tokenHash, []byte(token)); err != nil {
		return "", errors.AuthError("invalid admin token")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "admin",
		"iat": now.Unix(),
		"exp": now.Add(a.sessionTTL).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// ValidateSession checks a session token's signature and expiry.
func (a *Auth) ValidateSession(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return errors.AuthError("invalid or expired session")
	}
	return nil
}

// RequireAuth rejects requests without a valid Bearer session token.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if err := a.ValidateSession(token); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
