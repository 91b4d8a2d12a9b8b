package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/domain/receiving"
	"caravan/internal/infrastructure/http/v1/dto"
	"caravan/internal/infrastructure/storage/postgres"
)

// AuditHistory reads recorded receipt payloads for a purchase.
// Implemented by postgres.ReceiptAuditStore.
type AuditHistory interface {
	HistoryByPurchase(ctx context.Context, purchaseID id.ID, limit int) ([]postgres.ReceiptAuditEntry, error)
}

// ReceivingHandler handles HTTP requests for goods receiving.
type ReceivingHandler struct {
	*BaseHandler
	service *receiving.Service
	audit   AuditHistory // optional
}

// NewReceivingHandler creates a new receiving handler.
func NewReceivingHandler(base *BaseHandler, service *receiving.Service, audit AuditHistory) *ReceivingHandler {
	return &ReceivingHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// Receive handles POST /purchases/:purchaseId/receive
func (h *ReceivingHandler) Receive(c *gin.Context) {
	purchaseID, err := id.Parse(c.Param("purchaseId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid purchaseId format"))
		return
	}

	var body dto.ReceiveRequest
	if !h.BindJSON(c, &body) {
		return
	}

	req, err := body.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.Receive(c.Request.Context(), purchaseID, req)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ReceiveStatus handles GET /purchases/:purchaseId/receive-status
func (h *ReceivingHandler) ReceiveStatus(c *gin.Context) {
	purchaseID, err := id.Parse(c.Param("purchaseId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid purchaseId format"))
		return
	}

	status, err := h.service.GetReceiveStatus(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// AuditTrail handles GET /purchases/:purchaseId/audit
func (h *ReceivingHandler) AuditTrail(c *gin.Context) {
	purchaseID, err := id.Parse(c.Param("purchaseId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid purchaseId format"))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 20)

	entries, err := h.audit.HistoryByPurchase(c.Request.Context(), purchaseID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.AuditListResponse{
		PurchaseID: purchaseID.String(),
		Items:      make([]dto.AuditEntryResponse, len(entries)),
	}
	for i, e := range entries {
		response.Items[i] = dto.FromAuditEntry(e)
	}

	c.JSON(http.StatusOK, response)
}

// RegisterRoutes registers receiving routes under the purchases group.
// The audit trail route is exposed only when a history source is wired.
func (h *ReceivingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:purchaseId/receive", h.Receive)
	rg.GET("/:purchaseId/receive-status", h.ReceiveStatus)
	if h.audit != nil {
		rg.GET("/:purchaseId/audit", h.AuditTrail)
	}
}
