package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/avadoshop/backend/internal/models"
)

func newProductHandler(t *testing.T) *ProductHandler {
	return &ProductHandler{DB: newTestDB(t), Index: "products"}
}

func twoLevelInput(name string) ProductInput {
	return ProductInput{
		Name:  name,
		Price: 100,
		Variants: []VariantInput{
			{Level: 1, Name: "Color", Options: []OptionInput{
				{OptionName: "Red"},
				{OptionName: "Blue", OptionPrice: 5},
			}},
			{Level: 2, Name: "Size", Options: []OptionInput{
				{OptionName: "M"},
			}},
		},
	}
}

func countRows(t *testing.T, h *ProductHandler, model interface{}) int64 {
	var n int64
	require.NoError(t, h.DB.Model(model).Count(&n).Error)
	return n
}

func TestCreateProductWithVariantTree(t *testing.T) {
	h := newProductHandler(t)
	e := echo.New()

	c, rec := doJSONRequest(t, e, http.MethodPost, "/api/products", twoLevelInput("Sofa"))
	require.NoError(t, h.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	require.Len(t, created.Variants, 2)

	require.EqualValues(t, 2, countRows(t, h, &models.ProductVariant{}))
	require.EqualValues(t, 3, countRows(t, h, &models.VariantOption{}))
}

func TestCreateProductValidation(t *testing.T) {
	h := newProductHandler(t)
	e := echo.New()

	cases := []ProductInput{
		{Price: 100},               // no name
		{Name: "Sofa"},             // no price
		{Name: "Sofa", Price: -10}, // negative price
	}
	for _, in := range cases {
		c, _ := doJSONRequest(t, e, http.MethodPost, "/api/products", in)
		err := h.CreateProduct(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		require.Equal(t, http.StatusBadRequest, he.Code)
	}
	require.EqualValues(t, 0, countRows(t, h, &models.Product{}))
}

func TestReplaceVariantTreeIdempotent(t *testing.T) {
	h := newProductHandler(t)
	e := echo.New()

	c, rec := doJSONRequest(t, e, http.MethodPost, "/api/products", twoLevelInput("Sofa"))
	require.NoError(t, h.CreateProduct(c))
	var created models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Submitting the same tree twice must not accumulate rows.
	for i := 0; i < 2; i++ {
		c, rec = doJSONRequest(t, e, http.MethodPut, "/api/products/1", twoLevelInput("Sofa"))
		c.SetParamNames("id")
		c.SetParamValues("1")
		require.NoError(t, h.UpdateProduct(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	require.EqualValues(t, 2, countRows(t, h, &models.ProductVariant{}))
	require.EqualValues(t, 3, countRows(t, h, &models.VariantOption{}))
}

func TestUpdateProductShrinksVariantTree(t *testing.T) {
	h := newProductHandler(t)
	e := echo.New()

	c, _ := doJSONRequest(t, e, http.MethodPost, "/api/products", twoLevelInput("Sofa"))
	require.NoError(t, h.CreateProduct(c))

	smaller := twoLevelInput("Sofa")
	smaller.Variants = smaller.Variants[:1]
	c, _ = doJSONRequest(t, e, http.MethodPut, "/api/products/1", smaller)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateProduct(c))

	require.EqualValues(t, 1, countRows(t, h, &models.ProductVariant{}))
	require.EqualValues(t, 2, countRows(t, h, &models.VariantOption{}))
}

func TestUpdateProductRollsBackOnVariantFailure(t *testing.T) {
	h := newProductHandler(t)
	e := echo.New()

	c, _ := doJSONRequest(t, e, http.MethodPost, "/api/products", twoLevelInput("Sofa"))
	require.NoError(t, h.CreateProduct(c))

	// Make option inserts fail mid-replace; the whole update must roll back.
	require.NoError(t, h.DB.Migrator().DropTable(&models.VariantOption{}))

	renamed := twoLevelInput("Renamed")
	c, _ = doJSONRequest(t, e, http.MethodPut, "/api/products/1", renamed)
	c.SetParamNames("id")
	c.SetParamValues("1")
	err := h.UpdateProduct(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusInternalServerError, he.Code)

	var product models.Product
	require.NoError(t, h.DB.First(&product, 1).Error)
	require.Equal(t, "Sofa", product.Name, "core fields untouched after rollback")
	require.EqualValues(t, 2, countRows(t, h, &models.ProductVariant{}))
}

func TestGetProductNotFound(t *testing.T) {
	h := newProductHandler(t)
	e := echo.New()

	c, _ := doJSONRequest(t, e, http.MethodGet, "/api/products/99", nil)
	c.SetParamNames("id")
	c.SetParamValues("99")
	err := h.GetProduct(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetProductsPagination(t *testing.T) {
	h := newProductHandler(t)
	e := echo.New()

	for i := 0; i < 15; i++ {
		require.NoError(t, h.DB.Create(&models.Product{Name: "P", Price: 10}).Error)
	}

	c, rec := doJSONRequest(t, e, http.MethodGet, "/api/products?page=2&size=10", nil)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Product `json:"data"`
		Meta struct {
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 5)
	require.EqualValues(t, 15, resp.Meta.Total)
	require.EqualValues(t, 2, resp.Meta.TotalPages)
}

func TestDeleteProductRemovesTree(t *testing.T) {
	h := newProductHandler(t)
	e := echo.New()

	c, _ := doJSONRequest(t, e, http.MethodPost, "/api/products", twoLevelInput("Sofa"))
	require.NoError(t, h.CreateProduct(c))

	c, rec := doJSONRequest(t, e, http.MethodDelete, "/api/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.DeleteProduct(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	require.EqualValues(t, 0, countRows(t, h, &models.Product{}))
	require.EqualValues(t, 0, countRows(t, h, &models.ProductVariant{}))
	require.EqualValues(t, 0, countRows(t, h, &models.VariantOption{}))
}
