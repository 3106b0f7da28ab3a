package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrTokenSession = errors.New("token does not belong to this session")
)

// DefaultTokenTTL bounds how long a session token stays valid
const DefaultTokenTTL = 24 * time.Hour

// TokenIssuer signs and verifies HS256 tokens that bind a caller to one
// session. The subject claim carries the session ID.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. A non-positive ttl uses DefaultTokenTTL.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for sessionID
func (t *TokenIssuer) Issue(sessionID string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, expiry and that the token was issued for sessionID
func (t *TokenIssuer) Verify(tokenStr, sessionID string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return err
	}
	if !strings.EqualFold(claims.Subject, sessionID) {
		return ErrTokenSession
	}
	return nil
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrMissingToken
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// requireSessionToken rejects requests whose bearer token was not issued for
// the {id} route variable. It is a no-op without an issuer.
func (s *Server) requireSessionToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.tokens == nil {
			next(w, r)
			return
		}
		token, err := bearerToken(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err := s.tokens.Verify(token, mux.Vars(r)["id"]); err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token: "+err.Error())
			return
		}
		next(w, r)
	}
}
