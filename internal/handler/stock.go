package handler

import (
	"net/http"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"
	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StockHandler struct{ svc service.StockService }

func NewStockHandler(svc service.StockService) *StockHandler { return &StockHandler{svc: svc} }

// Create godoc
// @Summary      Register a stock unit
// @Description  Creates the stock record for one (product, presentation, branch) with prices and derived profit metrics. Duplicate units are rejected.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateStockRequest true "Stock detail"
// @Success      201  {object} dto.StockResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/stock [post]
func (h *StockHandler) Create(c *gin.Context) {
	var req dto.CreateStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *StockHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary      List stock units
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        branch_id query string false "Branch UUID"
// @Param        search    query string false "Product name or flavor"
// @Param        page      query int    false "Page (default 1)"
// @Param        page_size query int    false "Rows per page (default 10)"
// @Success      200  {object} dto.StockListResponse
// @Router       /v1/stock [get]
func (h *StockHandler) List(c *gin.Context) {
	var filter dto.StockFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary      Correct a stock unit
// @Description  Adjusts prices and/or the available quantity. Quantity corrections are applied through the ledger and leave a movement record.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Stock UUID"
// @Param        body body dto.UpdateStockRequest true "Fields to change"
// @Success      200  {object} dto.StockResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/stock/{id} [put]
func (h *StockHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.UpdateStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StockHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteByBranchProduct removes every stock unit of one product at one branch.
func (h *StockHandler) DeleteByBranchProduct(c *gin.Context) {
	branchID, err := uuid.Parse(c.Param("branchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid branch id"))
		return
	}
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product id"))
		return
	}
	deleted, err := h.svc.DeleteByBranchProduct(c.Request.Context(), branchID, productID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
