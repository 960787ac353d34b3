package api

import (
	"fmt"
	"net/http"
	"strconv"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/categorize"
	"catalog-service/internal/models"
	"catalog-service/internal/service"

	"github.com/gin-gonic/gin"
)

// listProducts handles GET /products with optional exact-match and price filters
func (h *Handler) listProducts(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

func parseListFilter(c *gin.Context) (service.ListFilter, error) {
	filter := service.ListFilter{
		Brand:    c.Query("brand"),
		Category: c.Query("category"),
	}

	if raw := c.Query("in_stock"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.Validation(fmt.Sprintf("in_stock must be true or false, got %q", raw))
		}
		filter.InStock = &v
	}

	for _, key := range categorize.TagKeys {
		if v := c.Query(key); v != "" {
			if filter.Tags == nil {
				filter.Tags = map[string]string{}
			}
			filter.Tags[key] = v
		}
	}

	var err error
	if filter.MinPrice, err = priceParam(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = priceParam(c, "max_price"); err != nil {
		return filter, err
	}
	return filter, nil
}

func priceParam(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, apperrors.Validation(fmt.Sprintf("%s must be a non-negative integer amount in cents, got %q", name, raw))
	}
	return &v, nil
}

// createProduct handles POST /products
func (h *Handler) createProduct(c *gin.Context) {
	var req service.ProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// getProduct handles GET /products/:id
func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// updateProduct handles PUT /products/:id. validate_images=false skips the
// image URL shape check.
func (h *Handler) updateProduct(c *gin.Context) {
	validateImages := true
	if raw := c.Query("validate_images"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(c, apperrors.Validation(fmt.Sprintf("validate_images must be true or false, got %q", raw)))
			return
		}
		validateImages = v
	}

	var req service.ProductUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), c.Param("id"), &req, validateImages)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// deleteProduct handles DELETE /products/:id
func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// verifyImages handles POST /products/:id/verify-images
func (h *Handler) verifyImages(c *gin.Context) {
	result, err := h.catalog.VerifyProductImages(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// recategorizeProduct handles POST /products/:id/recategorize
func (h *Handler) recategorizeProduct(c *gin.Context) {
	product, err := h.catalog.RecategorizeProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// filterOptions handles GET /filter-options
func (h *Handler) filterOptions(c *gin.Context) {
	options, err := h.catalog.FilterOptions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, options)
}
