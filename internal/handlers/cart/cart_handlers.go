package cart

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avadoshop/backend/internal/models"
	"github.com/avadoshop/backend/internal/mykafka"
	"github.com/avadoshop/backend/internal/principal"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// Line is a cart row joined with the product's live name and pricing,
// for display. It is not the order-time price snapshot.
type Line struct {
	ID              uint     `json:"id"`
	ProductID       uint     `json:"product_id"`
	Quantity        uint     `json:"quantity"`
	Name            string   `json:"name"`
	Price           float64  `json:"price"`
	ImageURL        string   `json:"image_url"`
	DiscountPercent *float64 `json:"discount_percent,omitempty"`
}

func (h *CartHandler) GetCart(c echo.Context) error {
	owner := principal.FromContext(c)

	var lines []Line
	err := h.DB.Table("cart_items").
		Select("cart_items.id, cart_items.product_id, cart_items.quantity, products.name, products.price, products.image_url, products.discount_percent").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.owner_key = ?", owner.OwnerKey()).
		Order("cart_items.id DESC").
		Scan(&lines).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load cart")
	}

	return c.JSON(http.StatusOK, echo.Map{"cart": lines})
}

// AddToCart merge-upserts a cart line: one atomic statement increments
// the quantity when a line for (owner, product) already exists and
// inserts otherwise, so concurrent adds can never fan out into
// duplicate lines.
func (h *CartHandler) AddToCart(c echo.Context) error {
	owner := principal.FromContext(c)

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "missing product_id")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	item := models.CartItem{
		OwnerKey:  owner.OwnerKey(),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UpdatedAt: time.Now(),
	}
	if owner.IsUser() {
		userID := owner.UserID
		item.UserID = &userID
	} else {
		sessionID := owner.SessionID
		item.SessionID = &sessionID
	}

	err := h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_key"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to add item")
	}

	var merged models.CartItem
	if err := h.DB.Where("owner_key = ? AND product_id = ?", owner.OwnerKey(), req.ProductID).First(&merged).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load item")
	}

	h.publish(c, map[string]any{
		"type":       "cart_item_added",
		"owner":      owner.OwnerKey(),
		"product_id": req.ProductID,
		"quantity":   merged.Quantity,
	})
	return c.JSON(http.StatusOK, merged)
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be >= 1")
	}

	result := h.DB.Model(&models.CartItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity":   req.Quantity,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update item")
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
	}

	var item models.CartItem
	if err := h.DB.First(&item, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load item")
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_updated",
		"id":       item.ID,
		"quantity": item.Quantity,
	})
	return c.JSON(http.StatusOK, echo.Map{"success": true, "item": item})
}

func (h *CartHandler) Remove(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	result := h.DB.Delete(&models.CartItem{}, id)
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to remove item")
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
	}

	h.publish(c, map[string]any{
		"type": "cart_item_removed",
		"id":   id,
	})
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Purge deletes every line the checkout owner could hold: the resolved
// user's lines and, when the request arrived as a guest, the guest
// session's lines. Runs inside the checkout transaction.
func Purge(tx *gorm.DB, userID uint, sessionID string) error {
	keys := make([]string, 0, 2)
	if userID != 0 {
		keys = append(keys, principal.UserOwnerKey(userID))
	}
	if sessionID != "" {
		keys = append(keys, principal.GuestOwnerKey(sessionID))
	}
	if len(keys) == 0 {
		return errors.New("purge: no owner")
	}
	return tx.Where("owner_key IN ?", keys).Delete(&models.CartItem{}).Error
}
