package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuth guards privileged endpoints with a server-held shared
// secret. The secret may be supplied in plaintext (compared in
// constant time over digests, so neither content nor length leaks) or
// as a bcrypt hash. It can also mint short-lived bearer tokens so the
// secret itself travels once per login, not on every call.
type AdminAuth struct {
	token     string
	tokenHash []byte
	jwtSecret []byte
	tokenTTL  time.Duration
}

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func NewAdminAuth(token, tokenHash, jwtSecret string) *AdminAuth {
	return &AdminAuth{
		token:     token,
		tokenHash: []byte(tokenHash),
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  12 * time.Hour,
	}
}

// VerifySecret reports whether candidate matches the admin secret.
func (a *AdminAuth) VerifySecret(candidate string) bool {
	if candidate == "" {
		return false
	}
	if len(a.tokenHash) > 0 {
		return bcrypt.CompareHashAndPassword(a.tokenHash, []byte(candidate)) == nil
	}
	if a.token == "" {
		return false
	}
	want := sha256.Sum256([]byte(a.token))
	got := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}

// SignToken issues a bearer token for a caller that already presented
// the shared secret.
func (a *AdminAuth) SignToken() (string, time.Duration, error) {
	if len(a.jwtSecret) == 0 {
		return "", 0, errors.New("admin token signing not configured")
	}
	now := time.Now()
	claims := adminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
	if err != nil {
		return "", 0, err
	}
	return tok, a.tokenTTL, nil
}

func (a *AdminAuth) verifyBearer(r *http.Request) bool {
	if len(a.jwtSecret) == 0 {
		return false
	}
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	t, err := jwt.ParseWithClaims(raw, &adminClaims{}, func(*jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return false
	}
	c, ok := t.Claims.(*adminClaims)
	return ok && c.Role == "admin"
}

// Require rejects the request unless it carries the shared secret in
// X-Admin-Token or a valid admin bearer token.
func (a *AdminAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.VerifySecret(r.Header.Get("X-Admin-Token")) || a.verifyBearer(r) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	})
}
