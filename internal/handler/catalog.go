package handler

import (
	"net/http"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"
	"github.com/reinaldoagf/servimarket-back/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogHandler serves the read-only product reference data the POS frontend
// needs to build carts and category filters.
type CatalogHandler struct{ repo repository.ProductRepository }

func NewCatalogHandler(repo repository.ProductRepository) *CatalogHandler {
	return &CatalogHandler{repo: repo}
}

// GetProduct godoc
// @Summary      Get one product with brand and category
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product UUID"
// @Success      200 {object} model.Product
// @Failure      404 {object} apierror.APIError
// @Router       /v1/products/{id} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	p, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("product not found"))
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListCategories returns every product category, ordered by name.
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	cats, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cats})
}
