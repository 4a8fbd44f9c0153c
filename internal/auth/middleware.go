package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieName is the session cookie set on every page response.
const CookieName = "idcard_session"

const contextKey = "session_id"

// SessionConfig controls cookie signing and lifetime.
type SessionConfig struct {
	SigningKey string
	Issuer     string
	TTL        time.Duration
	Secure     bool
	Log        *zap.Logger
	Now        func() time.Time
}

// Session resolves the caller's session id from the signed cookie, minting a
// new session when the cookie is missing, expired or forged. The cookie is
// re-issued once less than half of its lifetime remains.
func Session(cfg SessionConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return func(c *gin.Context) {
		now := cfg.Now()
		var sessionID string
		refresh := true
		if raw, err := c.Cookie(CookieName); err == nil && raw != "" {
			claims, err := Parse(raw, cfg.SigningKey, cfg.Issuer)
			if err != nil {
				cfg.Log.Debug("session cookie rejected", zap.Error(err))
			} else {
				sessionID = claims.SessionID
				refresh = claims.ExpiresAt == nil || claims.ExpiresAt.Time.Sub(now) < cfg.TTL/2
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		if refresh {
			token, _, err := Issue(sessionID, cfg.Issuer, cfg.SigningKey, cfg.TTL, now)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session issue failed"})
				return
			}
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     CookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(contextKey, sessionID)
		c.Next()
	}
}

// SessionID returns the id resolved by Session, or "" outside of it.
func SessionID(c *gin.Context) string {
	return c.GetString(contextKey)
}
