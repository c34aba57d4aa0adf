package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/avadoshop/backend/internal/logging"
	"github.com/avadoshop/backend/internal/models"
	"github.com/avadoshop/backend/internal/mykafka"
	"github.com/avadoshop/backend/internal/service/search"
	"github.com/avadoshop/backend/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	ES       *elasticsearch.Client
	Index    string
	Producer *mykafka.Producer
}

type OptionInput struct {
	OptionName  string  `json:"option_name"`
	OptionPrice float64 `json:"option_price"`
	OptionImage string  `json:"option_image"`
}

type VariantInput struct {
	Level   int           `json:"level"`
	Name    string        `json:"name"`
	Options []OptionInput `json:"options"`
}

type ProductInput struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Price           float64        `json:"price"`
	DiscountPercent *float64       `json:"discount_percent"`
	ImageURL        string         `json:"image_url"`
	HoverImageURL   string         `json:"hover_image_url"`
	IsTop           bool           `json:"is_top"`
	IsHotDeal       bool           `json:"is_hot_deal"`
	OfferStartsAt   *time.Time     `json:"offer_starts_at"`
	OfferEndsAt     *time.Time     `json:"offer_ends_at"`
	Variants        []VariantInput `json:"variants"`
}

func (in *ProductInput) validate() error {
	if in.Name == "" {
		return errors.New("name is required")
	}
	if in.Price <= 0 {
		return errors.New("price must be positive")
	}
	if in.DiscountPercent != nil && (*in.DiscountPercent < 0 || *in.DiscountPercent > 100) {
		return errors.New("discount_percent must be between 0 and 100")
	}
	return nil
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	var items []models.Product
	err := h.DB.Preload("Variants.Options").Preload("Variants").
		Order("id DESC").Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	err = h.DB.Preload("Variants.Options").Preload("Variants").First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req ProductInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	product := models.Product{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		DiscountPercent: req.DiscountPercent,
		ImageURL:        req.ImageURL,
		HoverImageURL:   req.HoverImageURL,
		IsTop:           req.IsTop,
		IsHotDeal:       req.IsHotDeal,
		OfferStartsAt:   req.OfferStartsAt,
		OfferEndsAt:     req.OfferEndsAt,
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		return replaceVariantTree(tx, product.ID, req.Variants)
	})
	if txErr != nil {
		logging.FromContext(c.Request().Context()).Error("product_create_failed", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	h.reload(&product)
	h.index(c, product)
	h.publish(c, map[string]any{"type": "product_created", "product_id": product.ID, "name": product.Name})

	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req ProductInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.DiscountPercent = req.DiscountPercent
	product.ImageURL = req.ImageURL
	product.HoverImageURL = req.HoverImageURL
	product.IsTop = req.IsTop
	product.IsHotDeal = req.IsHotDeal
	product.OfferStartsAt = req.OfferStartsAt
	product.OfferEndsAt = req.OfferEndsAt

	// Core fields and the variant tree change together or not at all.
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Variants").Save(&product).Error; err != nil {
			return err
		}
		return replaceVariantTree(tx, product.ID, req.Variants)
	})
	if txErr != nil {
		logging.FromContext(c.Request().Context()).Error("product_update_failed", "product_id", id, "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	h.reload(&product)
	h.index(c, product)
	h.publish(c, map[string]any{"type": "product_updated", "product_id": product.ID, "name": product.Name})

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := replaceVariantTree(tx, uint(id), nil); err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, id).Error
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	if h.ES != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := search.Delete(ctx, h.ES, h.Index, uint(id)); err != nil {
			c.Logger().Errorf("ES delete error: %v", err)
		}
	}
	h.publish(c, map[string]any{"type": "product_deleted", "product_id": id})

	return c.NoContent(http.StatusNoContent)
}

// replaceVariantTree swaps a product's whole variant tree: delete the
// options under the product's variants, delete the variants, insert the
// submitted tree. Variants have no identity that survives across calls,
// so a full replace is the correctness-simplest strategy. Callers run
// it inside a transaction.
func replaceVariantTree(tx *gorm.DB, productID uint, variants []VariantInput) error {
	variantIDs := tx.Model(&models.ProductVariant{}).Select("id").Where("product_id = ?", productID)
	if err := tx.Where("variant_id IN (?)", variantIDs).Delete(&models.VariantOption{}).Error; err != nil {
		return fmt.Errorf("delete options: %w", err)
	}
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductVariant{}).Error; err != nil {
		return fmt.Errorf("delete variants: %w", err)
	}

	for _, v := range variants {
		variant := models.ProductVariant{
			ProductID: productID,
			Level:     v.Level,
			Name:      v.Name,
		}
		if err := tx.Create(&variant).Error; err != nil {
			return fmt.Errorf("insert variant %q: %w", v.Name, err)
		}
		for _, o := range v.Options {
			option := models.VariantOption{
				VariantID:   variant.ID,
				OptionName:  o.OptionName,
				OptionPrice: o.OptionPrice,
				OptionImage: o.OptionImage,
			}
			if err := tx.Create(&option).Error; err != nil {
				return fmt.Errorf("insert option %q: %w", o.OptionName, err)
			}
		}
	}
	return nil
}

func (h *ProductHandler) reload(product *models.Product) {
	if err := h.DB.Preload("Variants.Options").Preload("Variants").First(product, product.ID).Error; err != nil {
		product.Variants = nil
	}
}

func (h *ProductHandler) index(c echo.Context, product models.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, h.Index, product); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["product_id"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
