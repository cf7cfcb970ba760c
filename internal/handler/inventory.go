package handler

import (
	"net/http"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/dto"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// Restock godoc
// @Summary      Restock a product
// @Description  Adds a lot (perishable, expiration required) or increments the counter.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string             true "Product UUID"
// @Param        body body dto.RestockRequest true "Quantity and expiration"
// @Success      200  {object} dto.ProductResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/products/{id}/stock [post]
func (h *InventoryHandler) Restock(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.RestockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Restock(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Withdraw godoc
// @Summary      Withdraw stock outside a sale
// @Description  FEFO withdrawal for perishable products; all or nothing.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string              true "Product UUID"
// @Param        body body dto.WithdrawRequest true "Quantity and reason"
// @Success      200  {object} dto.WithdrawalResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/products/{id}/withdraw [post]
func (h *InventoryHandler) Withdraw(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.WithdrawRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Withdraw(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) ListLots(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	includeExpired := c.Query("include_expired") == "true"
	resp, err := h.svc.ListLots(c.Request.Context(), id, includeExpired)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Alerts(c *gin.Context) {
	resp, err := h.svc.Alerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Movements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Movements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
