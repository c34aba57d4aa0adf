package principal

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avadoshop/backend/internal/logging"
	"github.com/avadoshop/backend/internal/models"
)

// Middleware resolves the request principal leniently: a missing,
// expired or tampered token degrades to guest resolution instead of
// failing the request. Cart and browse flows never hard-fail on a stale
// token. A fresh guest id is minted (and set as a cookie) when the
// request carries neither identity.
func (r *Resolver) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ck, err := c.Cookie(TokenCookie); err == nil && ck.Value != "" {
				if id, _, verr := r.verify(ck.Value); verr == nil {
					var user models.User
					if dberr := r.DB.First(&user, id).Error; dberr == nil {
						c.Set(ContextKey, Principal{UserID: user.ID, Role: user.Role})
						return next(c)
					}
				} else {
					l := logging.FromContext(c.Request().Context())
					l.Debug("token_fallback_to_guest", "error", verr)
				}
			}

			sessionID := ""
			if ck, err := c.Cookie(GuestCookie); err == nil {
				sessionID = ck.Value
			}
			if sessionID == "" {
				sessionID = NewGuestID()
				c.SetCookie(NewCookie(GuestCookie, sessionID, GuestTTL, r.Production))
			}

			c.Set(ContextKey, Principal{SessionID: sessionID})
			return next(c)
		}
	}
}

// RequireAdmin guards privileged operations. The token must verify, its
// subject must still exist, and the stored role must be admin; any
// failure rejects the request.
func (r *Resolver) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := r.Authenticate(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			if user.Role != "admin" {
				return echo.NewHTTPError(http.StatusForbidden, "admins only")
			}

			c.Set(ContextKey, Principal{UserID: user.ID, Role: user.Role})
			return next(c)
		}
	}
}
