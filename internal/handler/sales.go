package handler

import (
	"net/http"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"
	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler { return &SalesHandler{svc: svc} }

// Create godoc
// @Summary      Register a new sale
// @Description  Creates a sale atomically: assigns the branch ticket number, decrements stock with guarded updates, upserts the monthly category aggregates and records payment splits. All shortages are reported in one response.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateSaleRequest true "Sale detail"
// @Success      201  {object} dto.SaleResponse
// @Failure      400  {object} apierror.StockError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sales [post]
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
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

// Update godoc
// @Summary      Update a sale
// @Description  Reconciles an existing sale against the requested lines: lines with an id adjust stock by the quantity delta, new lines consume in full. Splits are replaced unless status is "unprocessed".
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Sale UUID"
// @Param        body body dto.UpdateSaleRequest true "Updated sale detail"
// @Success      200  {object} dto.SaleResponse
// @Failure      400  {object} apierror.StockError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sales/{id} [put]
func (h *SalesHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.UpdateSaleRequest
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

// RecordPayment godoc
// @Summary      Record a payment on a pending sale
// @Description  Replaces the payment splits and updates the cancelled amount. Lines and stock are untouched; the sale flips to "paid" when fully cancelled.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Sale UUID"
// @Param        body body dto.PatchSalePaymentRequest true "Payment detail"
// @Success      200  {object} dto.SaleResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sales/{id}/payment [patch]
func (h *SalesHandler) RecordPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.PatchSalePaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordPayment(c.Request.Context(), id, req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Approve godoc
// @Summary      Approve a purchase
// @Description  The buyer acknowledges a purchase registered to their account. Approval feeds the purchase into the buyer's personal monthly ledger with VAT on non-exempt products.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Sale UUID"
// @Param        body body dto.ApproveSaleRequest true "Approval decision"
// @Success      200  {object} dto.SaleResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/sales/{id}/approve [patch]
func (h *SalesHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.ApproveSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Approve(c.Request.Context(), id, req.Approve)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns one sale with lines and splits.
func (h *SalesHandler) Get(c *gin.Context) {
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
// @Summary      List sales
// @Description  Returns a paginated list of sales filtered by user, branch, status, date range and free-text search over client identity.
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        user_id    query string false "Buyer UUID"
// @Param        branch_id  query string false "Branch UUID"
// @Param        status     query string false "paid | pending | unprocessed | all"
// @Param        search     query string false "Client name / email / DNI"
// @Param        page       query int    false "Page (default 1)"
// @Param        page_size  query int    false "Rows per page (default 10)"
// @Success      200  {object} dto.SaleListResponse
// @Router       /v1/sales [get]
func (h *SalesHandler) List(c *gin.Context) {
	var filter dto.SaleFilter
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
