package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
)

// memStore is an in-memory outcomeStore.
type memStore struct {
	rows map[string]*contracts.TrackedSignal
}

func newMemStore(rows ...*contracts.TrackedSignal) *memStore {
	m := &memStore{rows: make(map[string]*contracts.TrackedSignal)}
	for _, r := range rows {
		m.rows[r.Signal.ID] = r
	}
	return m
}

func (m *memStore) unvalidatedSignals(_ context.Context, createdBefore time.Time) ([]contracts.TrackedSignal, error) {
	var out []contracts.TrackedSignal
	for _, r := range m.rows {
		if !r.Validated && r.Signal.CreatedAt.Before(createdBefore) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) fillOutcome(_ context.Context, id string, days int, ret float64) error {
	r, ok := m.rows[id]
	if !ok {
		return errors.New("no such row")
	}
	v := ret
	switch days {
	case 1:
		if r.Return1D == nil {
			r.Return1D = &v
		}
	case 3:
		if r.Return3D == nil {
			r.Return3D = &v
		}
	case 5:
		if r.Return5D == nil {
			r.Return5D = &v
		}
	case 10:
		if r.Return10D == nil {
			r.Return10D = &v
		}
	}
	return nil
}

func (m *memStore) markValidated(_ context.Context, id string) error {
	m.rows[id].Validated = true
	return nil
}

// fakePrices returns a fixed price per symbol and counts lookups.
type fakePrices struct {
	prices       map[string]float64
	err          error
	lookups      int
	sawDeadlines int
}

func (f *fakePrices) GetPrice(ctx context.Context, symbol string, _ time.Time) (float64, error) {
	f.lookups++
	if _, ok := ctx.Deadline(); ok {
		f.sawDeadlines++
	}
	if f.err != nil {
		return 0, f.err
	}
	return f.prices[symbol], nil
}

func trackedRow(id, symbol string, entry float64, age time.Duration, now time.Time) *contracts.TrackedSignal {
	return &contracts.TrackedSignal{
		Decision: contracts.Decision{
			Signal: contracts.Signal{
				ID:            id,
				Source:        "dp",
				Symbol:        symbol,
				Kind:          "support",
				Action:        contracts.ActionWatch,
				Strength:      50,
				PriceAtSignal: entry,
				CreatedAt:     now.Add(-age),
			},
			FinalAction: contracts.ActionLong,
		},
	}
}

func TestForwardReturn(t *testing.T) {
	assert.InDelta(t, 10.0, forwardReturn(100, 110), 1e-9)
	assert.InDelta(t, -5.0, forwardReturn(200, 190), 1e-9)
	assert.InDelta(t, 0.0, forwardReturn(50, 50), 1e-9)
}

func TestRefresh_FillsOnlyDueHorizons(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	row := trackedRow("a", "AAPL", 100, 4*24*time.Hour, now)
	ms := newMemStore(row)
	prices := &fakePrices{prices: map[string]float64{"AAPL": 110}}

	r := NewOutcomeRefresher(ms, prices, nil, nil, zerolog.Nop()).
		WithClock(func() time.Time { return now })

	filled, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, filled, "1d and 3d are due at age 4 days")

	got := ms.rows["a"]
	require.NotNil(t, got.Return1D)
	require.NotNil(t, got.Return3D)
	assert.InDelta(t, 10.0, *got.Return1D, 1e-9)
	assert.Nil(t, got.Return5D)
	assert.Nil(t, got.Return10D)
	assert.False(t, got.Validated, "open horizons remain")
}

func TestRefresh_Idempotent(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	row := trackedRow("a", "AAPL", 100, 4*24*time.Hour, now)
	ms := newMemStore(row)
	prices := &fakePrices{prices: map[string]float64{"AAPL": 110}}

	r := NewOutcomeRefresher(ms, prices, nil, nil, zerolog.Nop()).
		WithClock(func() time.Time { return now })

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	firstLookups := prices.lookups

	// A second sweep must not touch already-filled horizons
	filled, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, filled)
	assert.Equal(t, firstLookups, prices.lookups, "no repeat lookups for filled horizons")
}

func TestRefresh_ValidatesWhenComplete(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	row := trackedRow("a", "AAPL", 100, 11*24*time.Hour, now)
	ms := newMemStore(row)
	prices := &fakePrices{prices: map[string]float64{"AAPL": 95}}

	r := NewOutcomeRefresher(ms, prices, rate.NewLimiter(rate.Inf, 1), nil, zerolog.Nop()).
		WithClock(func() time.Time { return now })

	filled, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, filled)
	assert.True(t, ms.rows["a"].Validated)
	assert.InDelta(t, -5.0, *ms.rows["a"].Return10D, 1e-9)
}

func TestRefresh_LookupFailureLeavesHorizonOpen(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	row := trackedRow("a", "AAPL", 100, 2*24*time.Hour, now)
	ms := newMemStore(row)
	prices := &fakePrices{err: errors.New("provider down")}

	r := NewOutcomeRefresher(ms, prices, nil, nil, zerolog.Nop()).
		WithClock(func() time.Time { return now })

	filled, err := r.Refresh(context.Background())
	require.NoError(t, err, "a flaky provider is not a refresh failure")
	assert.Equal(t, 0, filled)
	assert.Nil(t, ms.rows["a"].Return1D)
	assert.False(t, ms.rows["a"].Validated)
}

func TestRefresh_EachLookupCarriesDeadline(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	row := trackedRow("a", "AAPL", 100, 4*24*time.Hour, now)
	ms := newMemStore(row)
	prices := &fakePrices{prices: map[string]float64{"AAPL": 110}}

	r := NewOutcomeRefresher(ms, prices, nil, nil, zerolog.Nop()).
		WithClock(func() time.Time { return now }).
		WithLookupTimeout(5 * time.Second)

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, prices.lookups)
	assert.Equal(t, prices.lookups, prices.sawDeadlines,
		"every price lookup is individually bounded")
}

func TestRefresh_ExpiresStaleRows(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	// Way past the last horizon plus grace, prices still unavailable
	row := trackedRow("a", "DLST", 100, 30*24*time.Hour, now)
	ms := newMemStore(row)
	prices := &fakePrices{err: errors.New("symbol delisted")}

	r := NewOutcomeRefresher(ms, prices, nil, nil, zerolog.Nop()).
		WithClock(func() time.Time { return now })

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, ms.rows["a"].Validated, "stale rows are closed out")
}
