package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/callwave/callwave/pkg/domain"
)

// TokenResponse is returned by the login and refresh endpoints.
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresIn    int          `json:"expires_in,omitempty"` // seconds
	User         *domain.User `json:"user,omitempty"`
}

// tokens converts the response into a stored pair, resolving the expiry.
func (r TokenResponse) tokens(now time.Time, ttl time.Duration) domain.Tokens {
	return domain.Tokens{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiryFor(r, now, ttl),
	}
}

// expiryFor prefers the server's expires_in, then the token's own exp claim,
// then the configured ttl. Login and refresh resolve expiry the same way.
func expiryFor(r TokenResponse, now time.Time, ttl time.Duration) time.Time {
	if r.ExpiresIn > 0 {
		return now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	if exp, ok := jwtExpiry(r.AccessToken); ok {
		return exp
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// jwtExpiry reads the exp claim without verifying the signature. The server
// checks signatures; the client only needs to know when to refresh.
func jwtExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// refresh exchanges the refresh token for a new pair. Concurrent callers share
// one exchange. A caller whose stale token has already been replaced gets the
// new token without another exchange.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	ctx = context.WithoutCancel(ctx)
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		cur, err := c.store.Tokens(ctx)
		if err != nil {
			return nil, fmt.Errorf("read tokens: %w", err)
		}
		if !cur.Empty() && cur.AccessToken != stale && !cur.Expired(c.now(), c.leeway) {
			return cur.AccessToken, nil
		}
		if cur.RefreshToken == "" {
			return nil, c.expire(ctx, fmt.Errorf("no refresh token"))
		}

		var resp TokenResponse
		err = c.anonymous(ctx, http.MethodPost, "/api/auth/refresh",
			map[string]string{"refresh_token": cur.RefreshToken}, &resp)
		if err == nil && resp.AccessToken == "" {
			err = fmt.Errorf("empty access token")
		}
		if err != nil {
			return nil, c.expire(ctx, err)
		}

		next := resp.tokens(c.now(), c.tokenTTL)
		if next.RefreshToken == "" {
			next.RefreshToken = cur.RefreshToken
		}
		if err := c.store.SaveTokens(ctx, next); err != nil {
			return nil, fmt.Errorf("save tokens: %w", err)
		}
		c.log.Debug("access token refreshed", zap.Time("expires_at", next.ExpiresAt))
		return next.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// expire clears the session, fires the expiry hook and returns an error
// matching ErrSessionExpired.
func (c *Client) expire(ctx context.Context, cause error) error {
	c.log.Info("session expired", zap.Error(cause))
	if err := c.store.Clear(ctx); err != nil {
		c.log.Warn("clear session", zap.Error(err))
	}
	c.mu.Lock()
	fn := c.onExpired
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}
