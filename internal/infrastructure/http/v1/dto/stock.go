package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"caravan/internal/domain/inventory"
)

// --- Response DTOs for the inventory ledger ---

// StockRecordResponse represents per-warehouse stock in API responses.
type StockRecordResponse struct {
	VariantID string    `json:"variantId"`
	Warehouse string    `json:"warehouse"`
	Quantity  int64     `json:"quantity"`
	Reserved  int64     `json:"reserved"`
	Available int64     `json:"available"`
	UpdatedAt time.Time `json:"updatedAt"`

	// IntegrityOK is set only when the snapshot was requested with
	// verify=true: true when replaying the movement log reproduces
	// the stored quantity.
	IntegrityOK *bool `json:"integrityOk,omitempty"`
}

// FromStockRecord converts a ledger record to a response DTO.
func FromStockRecord(r *inventory.Record) StockRecordResponse {
	return StockRecordResponse{
		VariantID: r.VariantID.String(),
		Warehouse: string(r.Warehouse),
		Quantity:  r.Quantity,
		Reserved:  r.Reserved,
		Available: r.Available,
		UpdatedAt: r.UpdatedAt,
	}
}

// StockListResponse represents a variant's stock across warehouses.
type StockListResponse struct {
	VariantID      string                `json:"variantId"`
	Items          []StockRecordResponse `json:"items"`
	TotalQuantity  int64                 `json:"totalQuantity"`
	TotalAvailable int64                 `json:"totalAvailable"`
}

// MovementResponse represents one movement log row.
type MovementResponse struct {
	ID             string          `json:"id"`
	VariantID      string          `json:"variantId"`
	Warehouse      string          `json:"warehouse"`
	MovementType   string          `json:"movementType"`
	QuantityChange int64           `json:"quantityChange"`
	QuantityBefore int64           `json:"quantityBefore"`
	QuantityAfter  int64           `json:"quantityAfter"`
	UnitCost       decimal.Decimal `json:"unitCost"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	Reason         string          `json:"reason,omitempty"`
	ReferenceType  string          `json:"referenceType"`
	ReferenceID    string          `json:"referenceId"`
	ActorID        string          `json:"actorId"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// FromMovement converts a movement log row to a response DTO.
func FromMovement(m *inventory.Movement) MovementResponse {
	return MovementResponse{
		ID:             m.ID.String(),
		VariantID:      m.VariantID.String(),
		Warehouse:      string(m.Warehouse),
		MovementType:   string(m.Type),
		QuantityChange: m.QuantityChange,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		UnitCost:       m.UnitCost,
		TotalCost:      m.TotalCost,
		Reason:         m.Reason,
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.ReferenceID.String(),
		ActorID:        m.ActorID,
		CreatedAt:      m.CreatedAt,
	}
}

// MovementListResponse represents a page of the movement log.
type MovementListResponse struct {
	Items      []MovementResponse `json:"items"`
	TotalCount int                `json:"totalCount,omitempty"`
}
