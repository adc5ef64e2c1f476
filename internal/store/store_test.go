package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-pestmap/internal/db"
	"github.com/joeblew999/plat-pestmap/internal/surface"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(db.Config{DataDir: t.TempDir(), DBName: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	s, err := New(context.Background(), conn, nil)
	require.NoError(t, err)
	return s
}

func samplePredictions() surface.Predictions {
	return surface.Predictions{
		"11": {RegionCode: "11", RiskLevel: 3, Probability: 72, Temperature: 24.1, Humidity: 77, Source: surface.SourceLive},
		"50": {RegionCode: "50", RiskLevel: 1, Probability: 21, Temperature: 26.3, Humidity: 83, Source: surface.SourceSimulation},
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	snap, err := s.Save(ctx, "morning run", samplePredictions())
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 2, snap.Regions)

	got, preds, err := s.Load(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, "morning run", got.Label)
	assert.WithinDuration(t, snap.CreatedAt, got.CreatedAt, time.Millisecond)
	assert.Equal(t, samplePredictions(), preds)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	first, err := s.Save(ctx, "first", samplePredictions())
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := s.Save(ctx, "second", surface.Predictions{})
	require.NoError(t, err)

	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, 0, list[0].Regions)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, 2, list[1].Regions)
}

func TestLoadMissing(t *testing.T) {
	_, _, err := newStore(t).Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	snap, err := s.Save(ctx, "gone", samplePredictions())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, snap.ID))
	_, _, err = s.Load(ctx, snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, snap.ID), ErrNotFound)
}
