package api

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/pricing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// listProducts handles category listing requests
func (h *Handler) listProducts(c *gin.Context) {
	category, ok := categoryParam(c)
	if !ok {
		return
	}

	q, err := parseListingQuery(c)
	if err != nil {
		badRequest(c, "Invalid query", err)
		return
	}

	page, err := h.deps.Catalog.List(c.Request.Context(), category, q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// getProduct handles product detail requests
func (h *Handler) getProduct(c *gin.Context) {
	category, ok := categoryParam(c)
	if !ok {
		return
	}

	product, err := h.deps.Catalog.GetBySKU(c.Request.Context(), category, c.Param("sku"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func parseListingQuery(c *gin.Context) (catalog.Query, error) {
	q := catalog.Query{
		Availability: c.Query("availability"),
		Firmness:     listParam(c, "firmness"),
		Sizes:        listParam(c, "size"),
		Types:        listParam(c, "type"),
		Search:       c.Query("search"),
		Sort:         c.DefaultQuery("sort", catalog.SortNewest),
	}

	var err error
	if q.MinPrice, err = priceParam(c, "min_price"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = priceParam(c, "max_price"); err != nil {
		return q, err
	}

	if raw := c.Query("page"); raw != "" {
		if q.Page, err = strconv.Atoi(raw); err != nil {
			return q, err
		}
	}
	return q, nil
}

// listParam accepts both ?size=King&size=Queen and ?size=King,Queen
func listParam(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func priceParam(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := pricing.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// createProduct handles admin product creation
func (h *Handler) createProduct(c *gin.Context) {
	category, ok := categoryParam(c)
	if !ok {
		return
	}

	var raw models.RawProduct
	if err := c.ShouldBindJSON(&raw); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}
	p, err := catalog.Normalize(raw, category)
	if err != nil {
		h.respondError(c, err)
		return
	}

	created, err := h.deps.Catalog.Create(c.Request.Context(), category, p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// updateProduct handles admin product edits
func (h *Handler) updateProduct(c *gin.Context) {
	category, ok := categoryParam(c)
	if !ok {
		return
	}

	var raw models.RawProduct
	if err := c.ShouldBindJSON(&raw); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}
	p, err := catalog.Normalize(raw, category)
	if err != nil {
		h.respondError(c, err)
		return
	}

	updated, err := h.deps.Catalog.Update(c.Request.Context(), category, c.Param("id"), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// deleteProduct handles admin product removal
func (h *Handler) deleteProduct(c *gin.Context) {
	category, ok := categoryParam(c)
	if !ok {
		return
	}

	if err := h.deps.Catalog.Delete(c.Request.Context(), category, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// generateSKU previews the SKU the admin form would produce
func (h *Handler) generateSKU(c *gin.Context) {
	var draft catalog.SKUDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sku": catalog.GenerateSKU(draft)})
}
