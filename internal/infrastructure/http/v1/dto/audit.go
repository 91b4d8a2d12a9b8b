package dto

import (
	"encoding/json"
	"time"

	"caravan/internal/infrastructure/storage/postgres"
)

// AuditEntryResponse represents one recorded receipt payload.
type AuditEntryResponse struct {
	ID        string          `json:"id"`
	ReceiptID string          `json:"receiptId"`
	ActorID   string          `json:"actorId"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FromAuditEntry converts a stored audit entry to a response DTO.
// The store inflates compressed payloads before returning them.
func FromAuditEntry(e postgres.ReceiptAuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        e.ID.String(),
		ReceiptID: e.ReceiptID.String(),
		ActorID:   e.ActorID,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
}

// AuditListResponse represents a purchase's receipt audit trail,
// newest first.
type AuditListResponse struct {
	PurchaseID string               `json:"purchaseId"`
	Items      []AuditEntryResponse `json:"items"`
}
