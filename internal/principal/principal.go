// Package principal resolves "who is shopping" for every request: a
// registered user carried by the signed token cookie, or an anonymous
// guest identified by a random session cookie. Cart and order rows are
// partitioned by the resulting owner key.
package principal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/avadoshop/backend/internal/models"
)

const (
	TokenCookie = "token"
	GuestCookie = "guest_session"

	// ContextKey is where the resolve middleware stores the Principal.
	ContextKey = "principal"

	LoginTTL = 7 * 24 * time.Hour
	GuestTTL = 30 * 24 * time.Hour
)

// Principal is the resolved identity a request acts as. Exactly one of
// UserID / SessionID is set.
type Principal struct {
	UserID    uint
	Role      string
	SessionID string
}

func (p Principal) IsUser() bool { return p.UserID != 0 }

// OwnerKey is the cart/order partition key for this principal.
func (p Principal) OwnerKey() string {
	if p.IsUser() {
		return UserOwnerKey(p.UserID)
	}
	return GuestOwnerKey(p.SessionID)
}

func UserOwnerKey(userID uint) string    { return fmt.Sprintf("user:%d", userID) }
func GuestOwnerKey(sessionID string) string { return "guest:" + sessionID }

func FromContext(c echo.Context) Principal {
	if v := c.Get(ContextKey); v != nil {
		if p, ok := v.(Principal); ok {
			return p
		}
	}
	return Principal{}
}

type Resolver struct {
	DB         *gorm.DB
	Secret     []byte
	Production bool
}

// Issue signs a time-bounded token binding the user id and role.
func (r *Resolver) Issue(userID uint, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(r.Secret)
}

func (r *Resolver) verify(raw string) (uint, string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.Secret, nil
	})
	if err != nil {
		return 0, "", err
	}
	if !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errors.New("invalid token claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", errors.New("invalid subject claim")
	}
	role, _ := claims["role"].(string)

	return uint(sub), role, nil
}

// Authenticate verifies the token cookie and loads its subject. Unlike
// the resolve middleware this is strict: any failure is an auth error.
func (r *Resolver) Authenticate(c echo.Context) (models.User, error) {
	ck, err := c.Cookie(TokenCookie)
	if err != nil || ck.Value == "" {
		return models.User{}, errors.New("missing auth cookie")
	}

	id, _, err := r.verify(ck.Value)
	if err != nil {
		return models.User{}, fmt.Errorf("invalid token: %w", err)
	}

	var user models.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return models.User{}, errors.New("user not found")
	}
	return user, nil
}

// NewGuestID mints an opaque guest session id with 128 bits of entropy.
func NewGuestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return "guest_" + hex.EncodeToString(buf)
}
