package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/callwave/callwave/internal/validate"
	"github.com/callwave/callwave/pkg/client"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Claims identifies the user and which half of the pair a token is.
type Claims struct {
	UserID string `json:"userId"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func (t *tokenIssuer) issue(userID, kind string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// pair issues an access and a refresh token. expires_in is left out so
// clients read the expiry from the token itself.
func (t *tokenIssuer) pair(userID string) (client.TokenResponse, error) {
	access, err := t.issue(userID, kindAccess, t.accessTTL)
	if err != nil {
		return client.TokenResponse{}, err
	}
	refresh, err := t.issue(userID, kindRefresh, t.refreshTTL)
	if err != nil {
		return client.TokenResponse{}, err
	}
	return client.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (t *tokenIssuer) parse(raw, kind string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, errors.New("wrong token kind")
	}
	return claims, nil
}

type ctxKey string

const userIDKey ctxKey = "user_id"

func userID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// requireAuth rejects requests without a valid access token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing access token")
			return
		}
		claims, err := s.tokens.parse(raw, kindAccess)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired access token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req client.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidation(w, err)
		return
	}
	acct, ok := s.store.accountByEmail(strings.ToLower(req.Email))
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	resp, err := s.tokens.pair(acct.user.ID)
	if err != nil {
		s.log.Error("issue tokens", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	u := acct.user
	resp.User = &u
	s.log.Info("login", zap.String("user_id", u.ID))
	writeJSON(w, http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidation(w, err)
		return
	}
	claims, err := s.tokens.parse(req.RefreshToken, kindRefresh)
	if err != nil || s.store.isRevoked(req.RefreshToken) {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	// Rotate: the old refresh token cannot be used twice.
	s.store.revoke(req.RefreshToken)
	resp, err := s.tokens.pair(claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	s.log.Debug("refresh", zap.String("user_id", claims.UserID))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken != "" {
		s.store.revoke(req.RefreshToken)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.store.userByID(userID(r.Context()))
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
