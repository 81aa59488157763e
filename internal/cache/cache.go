// Package cache memoizes state summaries, which are the most expensive
// shaper output and are shared by the map and the per-state bar chart.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"ecommerce-dashboard/internal/models"
)

const DefaultSize = 256

type SummaryCache interface {
	Get(ctx context.Context, key string) (models.StateSummary, bool)
	Set(ctx context.Context, key string, s models.StateSummary)
}

// SummaryKey hashes a canonical predicate key together with the selected
// states, which only affect highlighting and top-N preservation.
func SummaryKey(predicateKey string, selected []string) string {
	sel := slices.Clone(selected)
	slices.Sort(sel)
	sum := sha256.Sum256([]byte(predicateKey + "\x00" + strings.Join(sel, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// Memory is a bounded in-process cache.
type Memory struct {
	lru *lru.Cache[string, models.StateSummary]
}

func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, models.StateSummary](size)
	if err != nil {
		return nil, err
	}
	return &Memory{lru: c}, nil
}

func (m *Memory) Get(_ context.Context, key string) (models.StateSummary, bool) {
	return m.lru.Get(key)
}

func (m *Memory) Set(_ context.Context, key string, s models.StateSummary) {
	m.lru.Add(key, s)
}

func (m *Memory) Len() int { return m.lru.Len() }

func (m *Memory) Purge() { m.lru.Purge() }

// Tiered reads through a local cache to a shared one and writes to both.
type Tiered struct {
	local  SummaryCache
	shared SummaryCache
}

func NewTiered(local, shared SummaryCache) *Tiered {
	return &Tiered{local: local, shared: shared}
}

func (t *Tiered) Get(ctx context.Context, key string) (models.StateSummary, bool) {
	if s, ok := t.local.Get(ctx, key); ok {
		return s, true
	}
	s, ok := t.shared.Get(ctx, key)
	if ok {
		t.local.Set(ctx, key, s)
	}
	return s, ok
}

func (t *Tiered) Set(ctx context.Context, key string, s models.StateSummary) {
	t.local.Set(ctx, key, s)
	t.shared.Set(ctx, key, s)
}
