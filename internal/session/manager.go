package session

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opentribe/membership/internal/config"
)

const DefaultCookieName = "_sid"

// Manager manages the opaque session id cookie.
type Manager struct {
	cookieName string
	secure     bool
	maxAge     int
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     cfg.AuthCookieSecure,
		maxAge:     int(cfg.SessionTTL.Seconds()),
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// SessionID returns the session id from the request cookie, minting and
// setting a fresh one when absent.
func (m *Manager) SessionID(c *gin.Context) string {
	sid, err := c.Cookie(m.cookieName)
	if err == nil && strings.TrimSpace(sid) != "" {
		return sid
	}

	sid = uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, sid, m.maxAge, "/", "", m.secure, true)
	return sid
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}
