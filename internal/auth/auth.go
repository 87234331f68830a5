// Package auth issues and verifies the HS256 tokens guarding the HTTP
// surface. Access tokens are short-lived; refresh tokens mint new pairs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voxloop/vox/internal/httputil"
)

const issuer = "vox"

// ErrInvalidToken is returned for tokens that fail parsing, signature
// verification, or claim checks.
var ErrInvalidToken = errors.New("invalid token")

type contextKey string

// ClientIDKey is the context key carrying the authenticated client id.
const ClientIDKey contextKey = "clientId"

// TokenPair is what the token endpoint returns.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Authenticator signs and verifies service tokens.
type Authenticator struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// New builds an Authenticator. Zero TTLs get sensible defaults.
func New(secret string, accessTTL, refreshTTL time.Duration) *Authenticator {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Authenticator{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair mints an access/refresh token pair for clientID.
func (a *Authenticator) IssuePair(clientID string) (*TokenPair, error) {
	access, err := a.sign(clientID, "access", a.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := a.sign(clientID, "refresh", a.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(a.accessTTL.Seconds()),
	}, nil
}

// Refresh validates a refresh token and mints a fresh pair.
func (a *Authenticator) Refresh(refreshToken string) (*TokenPair, error) {
	clientID, err := a.verify(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}
	return a.IssuePair(clientID)
}

// VerifyAccess validates an access token and returns the client id.
func (a *Authenticator) VerifyAccess(token string) (string, error) {
	return a.verify(token, "access")
}

func (a *Authenticator) sign(clientID, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": clientID,
		"iss": issuer,
		"use": use,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *Authenticator) verify(tokenString, wantUse string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); iss != issuer {
		return "", ErrInvalidToken
	}
	if use, _ := claims["use"].(string); use != wantUse {
		return "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// Middleware returns a chi middleware that requires a valid bearer access
// token and puts the client id on the request context.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.Unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				httputil.Unauthorized(w, "invalid authorization header format")
				return
			}

			clientID, err := a.VerifyAccess(parts[1])
			if err != nil {
				httputil.Unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientID extracts the authenticated client id from a request context.
func ClientID(ctx context.Context) string {
	if id, ok := ctx.Value(ClientIDKey).(string); ok {
		return id
	}
	return ""
}
