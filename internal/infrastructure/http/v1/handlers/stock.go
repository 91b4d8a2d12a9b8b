package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"caravan/internal/core/apperror"
	"caravan/internal/core/id"
	"caravan/internal/domain/inventory"
	"caravan/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for the inventory ledger.
type StockHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *inventory.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetStock handles GET /variants/:variantId/stock
func (h *StockHandler) GetStock(c *gin.Context) {
	ctx := c.Request.Context()

	variantID, err := id.Parse(c.Param("variantId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid variantId format"))
		return
	}

	records, err := h.service.StockByWarehouse(ctx, variantID)
	if err != nil {
		h.Error(c, err)
		return
	}

	verify := c.Query("verify") == "true"

	response := dto.StockListResponse{
		VariantID: variantID.String(),
		Items:     make([]dto.StockRecordResponse, len(records)),
	}
	for i, r := range records {
		response.Items[i] = dto.FromStockRecord(r)
		response.TotalQuantity += r.Quantity
		response.TotalAvailable += r.Available

		if verify {
			ok, err := h.service.VerifyLedger(ctx, r)
			if err != nil {
				h.Error(c, err)
				return
			}
			response.Items[i].IntegrityOK = &ok
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetMovements handles GET /variants/:variantId/movements
func (h *StockHandler) GetMovements(c *gin.Context) {
	ctx := c.Request.Context()

	variantID, err := id.Parse(c.Param("variantId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid variantId format"))
		return
	}

	filter := inventory.MovementFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	// Parse optional warehouse filter
	if whStr := c.Query("warehouse"); whStr != "" {
		warehouse := inventory.Warehouse(whStr)
		if !warehouse.Valid() {
			h.Error(c, apperror.NewValidation("unknown warehouse").WithDetail("value", whStr))
			return
		}
		filter.Warehouse = &warehouse
	}

	// Parse optional movement type filter
	if typeStr := c.Query("type"); typeStr != "" {
		movementType := inventory.MovementType(typeStr)
		filter.Type = &movementType
	}

	// Parse optional date range
	if fromStr := c.Query("fromDate"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filter.FromDate = &parsed
		}
	}

	if toStr := c.Query("toDate"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			filter.ToDate = &parsed
		}
	}

	movements, err := h.service.MovementHistory(ctx, variantID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := make([]dto.MovementResponse, len(movements))
	for i, m := range movements {
		response[i] = dto.FromMovement(m)
	}

	c.JSON(http.StatusOK, dto.MovementListResponse{
		Items:      response,
		TotalCount: len(response),
	})
}

// RegisterRoutes registers stock routes under the variants group.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:variantId/stock", h.GetStock)
	rg.GET("/:variantId/movements", h.GetMovements)
}
