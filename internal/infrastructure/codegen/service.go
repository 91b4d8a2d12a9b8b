// Package codegen provides the PostgreSQL implementation of sequence
// generation for document numbers and variant codes. It implements
// core/codegen.Generator with a DB-level UPSERT so concurrent callers
// never see the same value.
package codegen

import (
	"context"
	"fmt"

	corecodegen "caravan/internal/core/codegen"
	"caravan/internal/infrastructure/storage/postgres"
)

// QuerierProvider yields the querier bound to the current transaction.
// Implemented by postgres.TxManager.
type QuerierProvider interface {
	GetQuerier(ctx context.Context) postgres.Querier
}

// Service allocates sequence values from the sys_sequences table.
type Service struct {
	txm QuerierProvider
}

// Ensure compile-time interface compliance.
var _ corecodegen.Generator = (*Service)(nil)

// New creates a new sequence service.
func New(txm QuerierProvider) *Service {
	return &Service{txm: txm}
}

// Next returns the next value for a key. Allocation participates in the
// caller's transaction, so a rolled-back receipt does not burn a
// receipt number.
func (s *Service) Next(ctx context.Context, key string) (int64, error) {
	querier := s.txm.GetQuerier(ctx)

	var num int64
	err := querier.QueryRow(ctx, `
        INSERT INTO sys_sequences (key, current_val)
        VALUES ($1, 1)
        ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
        RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("next sequence value: %w", err)
	}

	return num, nil
}

// Set overwrites the current value for a key (migration use).
func (s *Service) Set(ctx context.Context, key string, value int64) error {
	querier := s.txm.GetQuerier(ctx)

	var result int64
	err := querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, key, value).Scan(&result)
	if err != nil {
		return fmt.Errorf("set sequence value: %w", err)
	}

	return nil
}
