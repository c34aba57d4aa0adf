package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/avadoshop/backend/internal/models"
)

// CMSHandler exposes the content collaborators (banners, categories,
// footer blocks) as simple read/write stores. No business logic lives
// here.
type CMSHandler struct {
	DB *gorm.DB
}

func (h *CMSHandler) ListBanners(c echo.Context) error {
	var banners []models.Banner
	if err := h.DB.Order("position ASC").Find(&banners).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	return c.JSON(http.StatusOK, banners)
}

func (h *CMSHandler) SaveBanner(c echo.Context) error {
	var banner models.Banner
	if err := c.Bind(&banner); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if banner.ImageURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "image_url required")
	}
	if err := h.DB.Save(&banner).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	return c.JSON(http.StatusOK, banner)
}

func (h *CMSHandler) DeleteBanner(c echo.Context) error {
	return h.deleteByID(c, &models.Banner{})
}

func (h *CMSHandler) ListCategories(c echo.Context) error {
	var categories []models.Category
	if err := h.DB.Order("name ASC").Find(&categories).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *CMSHandler) SaveCategory(c echo.Context) error {
	var category models.Category
	if err := c.Bind(&category); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if category.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}
	if err := h.DB.Save(&category).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	return c.JSON(http.StatusOK, category)
}

func (h *CMSHandler) DeleteCategory(c echo.Context) error {
	return h.deleteByID(c, &models.Category{})
}

func (h *CMSHandler) ListFooterBlocks(c echo.Context) error {
	var blocks []models.FooterBlock
	if err := h.DB.Order("section ASC, id ASC").Find(&blocks).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	return c.JSON(http.StatusOK, blocks)
}

func (h *CMSHandler) SaveFooterBlock(c echo.Context) error {
	var block models.FooterBlock
	if err := c.Bind(&block); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if block.Section == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "section required")
	}
	if err := h.DB.Save(&block).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	return c.JSON(http.StatusOK, block)
}

func (h *CMSHandler) DeleteFooterBlock(c echo.Context) error {
	return h.deleteByID(c, &models.FooterBlock{})
}

func (h *CMSHandler) deleteByID(c echo.Context, model interface{}) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result := h.DB.Delete(model, id)
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return c.NoContent(http.StatusNoContent)
}
