package handler

import (
	"net/http"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"
	"github.com/reinaldoagf/servimarket-back/internal/dto"
	"github.com/reinaldoagf/servimarket-back/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PendingsHandler struct{ svc service.PendingService }

func NewPendingsHandler(svc service.PendingService) *PendingsHandler {
	return &PendingsHandler{svc: svc}
}

// List godoc
// @Summary      List pending notifications
// @Tags         pendings
// @Produce      json
// @Security     BearerAuth
// @Param        user_id     query string false "Addressee UUID"
// @Param        branch_id   query string false "Branch UUID"
// @Param        business_id query string false "Business UUID"
// @Success      200  {object} dto.PendingListResponse
// @Router       /v1/pendings [get]
func (h *PendingsHandler) List(c *gin.Context) {
	var filter dto.PendingFilter
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

// Dismiss deletes one notification.
func (h *PendingsHandler) Dismiss(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	if err := h.svc.Dismiss(c.Request.Context(), id); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
