// Package cache stores encoded renders keyed by model digest and viewport.
// Entries never go stale: a model with different content has a different
// digest and so new keys, in this process or any other sharing the cache.
package cache

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joeblew999/plat-pestmap/internal/geo"
	"github.com/joeblew999/plat-pestmap/internal/metrics"
)

// Cache is a byte cache for rendered PNGs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
}

// Key identifies a render of the model with the given digest over vp.
func Key(digest uint64, vp geo.Viewport) string {
	var buf [8 * 9]byte
	b := buf[:0]
	b = binary.LittleEndian.AppendUint64(b, digest)
	for _, f := range []float64{
		vp.Extent.Min[0], vp.Extent.Min[1], vp.Extent.Max[0], vp.Extent.Max[1],
		vp.Resolution, vp.PixelRatio,
	} {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(f))
	}
	b = binary.LittleEndian.AppendUint64(b, uint64(vp.Width))
	b = binary.LittleEndian.AppendUint64(b, uint64(vp.Height))
	return strconv.FormatUint(digest, 16) + ":" + strconv.FormatUint(xxhash.Sum64(b), 16)
}

// Memory is an in-process LRU.
type Memory struct {
	lru *lru.Cache[string, []byte]
}

// NewMemory creates an LRU holding up to size renders.
func NewMemory(size int) (*Memory, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Memory{lru: c}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	data, ok := m.lru.Get(key)
	record(ok)
	return data, ok
}

func (m *Memory) Set(_ context.Context, key string, data []byte) {
	m.lru.Add(key, data)
}

// Len returns the number of cached renders.
func (m *Memory) Len() int { return m.lru.Len() }

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Set(context.Context, string, []byte) {}

func record(hit bool) {
	if hit {
		metrics.RenderCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	metrics.RenderCacheTotal.WithLabelValues("miss").Inc()
}
