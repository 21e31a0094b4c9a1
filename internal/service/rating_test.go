package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSmooth(t *testing.T) {
	assert.InDelta(t, 99.01, Smooth(100, SignalSuccess, 0.01), 1e-9)
	assert.InDelta(t, 98.99, Smooth(100, SignalMiss, 0.01), 1e-9)
	assert.Equal(t, 100.0, Smooth(100, SignalNeutral, 0.01))
	assert.Equal(t, 100.0, Smooth(math.NaN(), SignalNeutral, 0.01))
	assert.Equal(t, 0.0, Smooth(0, SignalMiss, 0.5))
}

// TestSmoothStaysInRangeProperty checks that any finite signal sequence keeps the rating in [0,100].
func TestSmoothStaysInRangeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		alpha := rapid.Float64Range(0.001, 1).Draw(t, "alpha")
		signals := rapid.SliceOfN(rapid.Float64Range(-1000, 1000), 1, 200).Draw(t, "signals")

		r := DefaultRating
		for _, s := range signals {
			r = Smooth(r, Signal(s), alpha)
			if r < 0 || r > 100 || math.IsNaN(r) {
				t.Fatalf("rating left range: %v", r)
			}
		}
	})
}

// TestSuccessSignalsConvergeDownwardProperty checks that repeated +1 signals
// from 100 decrease the rating monotonically without crossing 0.
func TestSuccessSignalsConvergeDownwardProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 500).Draw(t, "n")

		r := DefaultRating
		for i := 0; i < n; i++ {
			next := Smooth(r, SignalSuccess, DefaultRatingAlpha)
			if next > r {
				t.Fatalf("step %d increased rating: %v -> %v", i, r, next)
			}
			if next < 0 {
				t.Fatalf("step %d went below zero: %v", i, next)
			}
			r = next
		}
	})
}

func TestRatingServiceUpdate(t *testing.T) {
	ctx := context.Background()
	store := newMemRatings()
	svc := NewRatingService(store, DefaultRatingAlpha)

	got, err := svc.Update(ctx, 1, SignalSuccess)
	require.NoError(t, err)
	assert.InDelta(t, 99.01, got, 1e-9)
	assert.InDelta(t, 99.01, store.values[1], 1e-9)

	got, err = svc.Update(ctx, 1, SignalMiss)
	require.NoError(t, err)
	assert.InDelta(t, 0.99*99.01-0.01, got, 1e-9)
}

func TestRatingServiceNeutralRead(t *testing.T) {
	ctx := context.Background()
	store := newMemRatings()
	svc := NewRatingService(store, DefaultRatingAlpha)

	got, err := svc.Update(ctx, 7, SignalNeutral)
	require.NoError(t, err)
	assert.Equal(t, DefaultRating, got)
	assert.Equal(t, 1, store.saves, "missing rating is initialized")

	got, err = svc.Update(ctx, 7, SignalNeutral)
	require.NoError(t, err)
	assert.Equal(t, DefaultRating, got)
	assert.Equal(t, 1, store.saves, "neutral read does not write again")
}

func TestNewRatingServiceAlphaFallback(t *testing.T) {
	assert.Equal(t, DefaultRatingAlpha, NewRatingService(newMemRatings(), 0).alpha)
	assert.Equal(t, DefaultRatingAlpha, NewRatingService(newMemRatings(), 2).alpha)
	assert.Equal(t, 0.5, NewRatingService(newMemRatings(), 0.5).alpha)
}
