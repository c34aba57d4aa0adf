package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/avadoshop/backend/internal/models"
	"github.com/avadoshop/backend/internal/principal"
)

type OrdersHandler struct {
	DB       *gorm.DB
	Resolver *principal.Resolver
}

func (h *OrdersHandler) ListMyOrders(c echo.Context) error {
	user, err := h.Resolver.Authenticate(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var orders []models.Order
	if err := h.DB.Where("user_id = ?", user.ID).Order("id DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	return c.JSON(http.StatusOK, orders)
}
