// Package checkout converts a cart into a durable, priced order as a
// single atomic transaction: identity settlement, auto-login, price
// normalization, order persistence and cart purge commit together or
// not at all.
package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/avadoshop/backend/internal/handlers/cart"
	"github.com/avadoshop/backend/internal/hash"
	"github.com/avadoshop/backend/internal/logging"
	"github.com/avadoshop/backend/internal/models"
	"github.com/avadoshop/backend/internal/mykafka"
	"github.com/avadoshop/backend/internal/principal"
)

const txTimeout = 5 * time.Second

type CheckoutHandler struct {
	DB       *gorm.DB
	Resolver *principal.Resolver
	Producer *mykafka.Producer
}

type Item struct {
	ProductID       uint     `json:"product_id"`
	Name            string   `json:"name"`
	Quantity        uint     `json:"quantity"`
	Price           float64  `json:"price"`
	DiscountPercent *float64 `json:"discount_percent,omitempty"`
}

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (cu Customer) empty() bool {
	return cu == Customer{}
}

type request struct {
	Items         []Item   `json:"items"`
	Total         float64  `json:"total"`
	Customer      Customer `json:"customer"`
	PaymentMethod string   `json:"payment_method"`
}

func (h *CheckoutHandler) Checkout(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "checkout")

	var req request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if len(req.Items) == 0 || req.Total <= 0 || req.Customer.empty() {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "Cash on Delivery"
	}

	owner := principal.FromContext(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), txTimeout)
	defer cancel()

	var (
		order       models.Order
		issuedToken string
	)

	txErr := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID := owner.UserID

		// Identity settlement: a guest checking out with a phone
		// number is promoted to a durable account, reusing an
		// existing user with that phone when there is one.
		if userID == 0 && req.Customer.Phone != "" {
			user, err := findOrCreateUserByPhone(tx, req.Customer.Phone)
			if err != nil {
				return err
			}
			userID = user.ID

			token, err := h.Resolver.Issue(user.ID, user.Role, principal.LoginTTL)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			issuedToken = token
		}

		items, err := normalizeItems(req.Items)
		if err != nil {
			return err
		}
		customer, err := json.Marshal(req.Customer)
		if err != nil {
			return fmt.Errorf("marshal customer: %w", err)
		}

		order = models.Order{
			Items:         items,
			Total:         req.Total,
			Customer:      customer,
			PaymentMethod: req.PaymentMethod,
			Status:        "pending",
			OrderDate:     time.Now(),
		}
		if userID != 0 {
			order.UserID = &userID
		}
		if owner.SessionID != "" {
			sessionID := owner.SessionID
			order.SessionID = &sessionID
		}
		if order.UserID == nil && order.SessionID == nil {
			return errors.New("no order owner")
		}

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if err := cart.Purge(tx, userID, owner.SessionID); err != nil {
			return fmt.Errorf("purge cart: %w", err)
		}
		return nil
	})
	if txErr != nil {
		l.Error("checkout_failed", "owner", owner.OwnerKey(), "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "checkout failed")
	}

	// The guest becomes a logged-in user only once the order committed.
	if issuedToken != "" {
		c.SetCookie(principal.NewCookie(principal.TokenCookie, issuedToken, principal.LoginTTL, h.Resolver.Production))
	}

	h.publish(c, map[string]any{
		"type":     "order_created",
		"order_id": order.ID,
		"owner":    owner.OwnerKey(),
		"total":    order.Total,
	})
	l.Info("order_created", "order_id", order.ID, "owner", owner.OwnerKey())

	return c.JSON(http.StatusOK, echo.Map{"success": true, "order": order})
}

// findOrCreateUserByPhone backs frictionless guest checkout: the only
// path that creates an account without an explicit signup. The
// placeholder password is random; such accounts set a real one through
// account recovery.
func findOrCreateUserByPhone(tx *gorm.DB, phone string) (models.User, error) {
	var user models.User
	err := tx.Where("phone = ?", phone).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, fmt.Errorf("find user by phone: %w", err)
	}

	pwHash, err := hash.HashPassword(randomCredential())
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user = models.User{
		Email:        phone + "@auto.avado.com",
		Phone:        &phone,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := tx.Create(&user).Error; err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func randomCredential() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(buf)
}

// normalizeItems recomputes each unit price with its discount applied.
// The result is the persisted snapshot, decoupled from later catalog
// price edits.
func normalizeItems(items []Item) (json.RawMessage, error) {
	fixed := make([]Item, len(items))
	for i, it := range items {
		if it.DiscountPercent != nil {
			it.Price = it.Price - it.Price*(*it.DiscountPercent)/100
		}
		fixed[i] = it
	}

	data, err := json.Marshal(fixed)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	return data, nil
}

func (h *CheckoutHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	key, _ := event["owner"].(string)
	if err := h.Producer.PublishEvent(ctx, "order_events", key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
