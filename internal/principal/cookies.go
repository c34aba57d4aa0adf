package principal

import (
	"net/http"
	"time"
)

// NewCookie builds a session cookie. Cross-site flags are gated on
// production: local dev runs over plain HTTP where Secure cookies are
// dropped by the browser.
func NewCookie(name, value string, ttl time.Duration, production bool) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if production {
		ck.SameSite = http.SameSiteNoneMode
		ck.Secure = true
	}
	return ck
}

func ExpiredCookie(name string, production bool) *http.Cookie {
	ck := NewCookie(name, "", 0, production)
	ck.Expires = time.Now().Add(-time.Hour)
	ck.MaxAge = -1
	return ck
}
