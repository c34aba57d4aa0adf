package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/avadoshop/backend/internal/hash"
	"github.com/avadoshop/backend/internal/logging"
	"github.com/avadoshop/backend/internal/models"
	"github.com/avadoshop/backend/internal/mykafka"
	"github.com/avadoshop/backend/internal/principal"
)

type AuthHandler struct {
	DB       *gorm.DB
	Resolver *principal.Resolver
	Producer *mykafka.Producer
}

type userSummary struct {
	ID    uint    `json:"id"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

func summarize(u models.User) userSummary {
	return userSummary{ID: u.ID, Email: u.Email, Phone: u.Phone}
}

func (h *AuthHandler) Signup(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_signup")

	var req struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Phone    *string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email & password required")
	}

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("signup_failed", "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("signup_failed", "reason", "hash_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	user := models.User{
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := h.DB.Create(&user).Error; err != nil {
		l.Error("signup_failed", "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	h.publish(c, map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "Signup successful", "user": summarize(user)})
}

// Login accepts either the email or the phone number as the login input.
func (h *AuthHandler) Login(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_login")

	var req struct {
		LoginInput string `json:"login_input"`
		Password   string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.LoginInput == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "input & password required")
	}

	var user models.User
	if err := h.DB.Where("email = ? OR phone = ?", req.LoginInput, req.LoginInput).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "user not found")
		}
		l.Error("login_failed", "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid password")
	}

	token, err := h.Resolver.Issue(user.ID, user.Role, principal.LoginTTL)
	if err != nil {
		l.Error("login_failed", "reason", "token_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	c.SetCookie(principal.NewCookie(principal.TokenCookie, token, principal.LoginTTL, h.Resolver.Production))

	h.publish(c, map[string]any{
		"type":    "user_logged_in",
		"user_id": user.ID,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "Login successful", "user": summarize(user)})
}

func (h *AuthHandler) CurrentUser(c echo.Context) error {
	user, err := h.Resolver.Authenticate(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": summarize(user)})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(principal.ExpiredCookie(principal.TokenCookie, h.Resolver.Production))
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// accountUpdate enumerates which fields the caller supplied; the update
// is a parameterized Updates map, never a spliced query.
type accountUpdate struct {
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

func (h *AuthHandler) UpdateAccount(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_account")

	user, err := h.Resolver.Authenticate(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req accountUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	updates := map[string]interface{}{}
	if req.Email != nil && *req.Email != "" {
		updates["email"] = *req.Email
	}
	if req.Phone != nil && *req.Phone != "" {
		updates["phone"] = *req.Phone
	}
	if req.Password != nil && *req.Password != "" {
		pwHash, err := hash.HashPassword(*req.Password)
		if err != nil {
			l.Error("account_update_failed", "reason", "hash_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "server error")
		}
		updates["password_hash"] = pwHash
	}
	if len(updates) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		l.Error("account_update_failed", "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Account updated", "user": summarize(user)})
}

func (h *AuthHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(event["user_id"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
