// Package codegen provides domain contracts for sequence-backed code generation.
package codegen

import (
	"context"
	"sync"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	mu   sync.Mutex
	seqs map[string]int64

	// NextFunc overrides Next when set.
	NextFunc func(ctx context.Context, key string) (int64, error)
}

// Next implements Generator. By default it counts up per key in memory.
func (m *MockGenerator) Next(ctx context.Context, key string) (int64, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seqs == nil {
		m.seqs = make(map[string]int64)
	}
	m.seqs[key]++
	return m.seqs[key], nil
}

// Set implements Generator.
func (m *MockGenerator) Set(ctx context.Context, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seqs == nil {
		m.seqs = make(map[string]int64)
	}
	m.seqs[key] = value - 1
	return nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
