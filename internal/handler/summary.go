package handler

import (
	"net/http"
	"time"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"
	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/middleware"
	"github.com/reinaldoagf/servimarket-back/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SummaryHandler struct{ svc service.SummaryService }

func NewSummaryHandler(svc service.SummaryService) *SummaryHandler {
	return &SummaryHandler{svc: svc}
}

// Summary godoc
// @Summary      Sale summary by scope
// @Description  Groups sales by effective status (completed / pending / expired) for a business, branch or user. Pending sales past their expiry date count as expired; amounts are outstanding balances.
// @Tags         summary
// @Produce      json
// @Security     BearerAuth
// @Param        business_id query string false "Business UUID"
// @Param        branch_id   query string false "Branch UUID"
// @Param        user_id     query string false "Buyer UUID"
// @Success      200  {object} dto.SaleSummaryResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/sales/summary [get]
func (h *SummaryHandler) Summary(c *gin.Context) {
	var filter dto.SummaryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.SummaryByFilters(c.Request.Context(), filter)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CategoryTotals returns the monthly category ledger for a scope. The month
// defaults to the current one; accepts YYYY-MM.
func (h *SummaryHandler) CategoryTotals(c *gin.Context) {
	scopeType := c.Query("scope_type")
	scopeID, err := uuid.Parse(c.Query("scope_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid scope_id"))
		return
	}
	month := time.Now().UTC()
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid month, expected YYYY-MM"))
			return
		}
		month = parsed
	}
	rows, err := h.svc.CategoryTotals(c.Request.Context(), scopeType, scopeID, month)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// MyLastPurchase returns the authenticated user's most recent purchase.
func (h *SummaryHandler) MyLastPurchase(c *gin.Context) {
	claims := middleware.GetClaims(c)
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid token subject"))
		return
	}
	resp, err := h.svc.MyLastPurchase(c.Request.Context(), userID)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MyLastSale returns the most recent sale for a business or branch scope.
func (h *SummaryHandler) MyLastSale(c *gin.Context) {
	resp, err := h.svc.MyLastSale(c.Request.Context(), c.Query("business_id"), c.Query("branch_id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
