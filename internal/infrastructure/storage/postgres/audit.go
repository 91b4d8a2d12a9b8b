package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "caravan/internal/core/context"
	"caravan/internal/core/id"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// ReceiptAuditEntry is one immutable record of a receiving event, holding
// the full result payload as it was returned to the caller.
type ReceiptAuditEntry struct {
	ID                id.ID           `db:"id"`
	ReceiptID         id.ID           `db:"receipt_id"`
	PurchaseID        id.ID           `db:"purchase_id"`
	ActorID           string          `db:"actor_id"`
	Payload           json.RawMessage `db:"payload"`
	PayloadCompressed []byte          `db:"payload_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// ReceiptAuditStore persists receiving results for later dispute
// resolution. Large payloads (many-line receipts) are zstd-compressed.
type ReceiptAuditStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes, default 10KB
}

// NewReceiptAuditStore creates the audit store.
func NewReceiptAuditStore(txManager *TxManager) (*ReceiptAuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &ReceiptAuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// RecordReceipt stores the receiving result for a committed receipt.
func (s *ReceiptAuditStore) RecordReceipt(ctx context.Context, receiptID, purchaseID id.ID, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal receipt payload: %w", err)
	}

	entry := ReceiptAuditEntry{
		ID:              id.New(),
		ReceiptID:       receiptID,
		PurchaseID:      purchaseID,
		ActorID:         appctx.GetActorID(ctx),
		Payload:         raw,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}
	if len(raw) > s.compressThreshold {
		entry.PayloadCompressed = s.encoder.EncodeAll(raw, nil)
		entry.Payload = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_receiving_audit (
			id, receipt_id, purchase_id, actor_id,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		entry.ID, entry.ReceiptID, entry.PurchaseID, entry.ActorID,
		entry.Payload, entry.PayloadCompressed, entry.CompressionAlgo,
		entry.CreatedAt,
	)

	return err
}

// HistoryByPurchase retrieves audit entries for a purchase, newest first.
// Compressed payloads are inflated before returning.
func (s *ReceiptAuditStore) HistoryByPurchase(ctx context.Context, purchaseID id.ID, limit int) ([]ReceiptAuditEntry, error) {
	sql := `
		SELECT id, receipt_id, purchase_id, actor_id,
			   payload, payload_compressed, compression_algo, created_at
		FROM sys_receiving_audit
		WHERE purchase_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, purchaseID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []ReceiptAuditEntry
	for rows.Next() {
		var e ReceiptAuditEntry
		err := rows.Scan(
			&e.ID, &e.ReceiptID, &e.PurchaseID, &e.ActorID,
			&e.Payload, &e.PayloadCompressed, &e.CompressionAlgo,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.PayloadCompressed) > 0 {
			inflated, err := s.decoder.DecodeAll(e.PayloadCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress payload: %w", err)
			}
			e.Payload = inflated
			e.PayloadCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
