package contracts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the stance a signal recommends on an instrument.
// ⭐ SSOT: 액션 enum 정의는 여기서만
type Action string

const (
	ActionLong  Action = "LONG"
	ActionShort Action = "SHORT"
	ActionWatch Action = "WATCH"
	ActionAvoid Action = "AVOID"
)

// Valid reports whether the action is one of the known values.
func (a Action) Valid() bool {
	switch a {
	case ActionLong, ActionShort, ActionWatch, ActionAvoid:
		return true
	}
	return false
}

// Bullish reports whether the action expresses upside conviction.
func (a Action) Bullish() bool {
	return a == ActionLong
}

// Signal is a provisional observation emitted by a checker before
// confluence scoring.
type Signal struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"` // checker name
	Symbol        string    `json:"symbol"`
	Kind          string    `json:"kind"` // source-specific tag, e.g. "support-bounce"
	Action        Action    `json:"action"`
	Strength      float64   `json:"strength"` // 0-100, source-reported confidence
	PriceAtSignal float64   `json:"price_at_signal"`
	CreatedAt     time.Time `json:"created_at"`
	Factors       []string  `json:"factors"` // ordered contributing evidence
}

// NewSignal builds a signal with a fresh ID and timestamp.
func NewSignal(source, symbol, kind string, action Action, strength, price float64, factors ...string) Signal {
	return Signal{
		ID:            uuid.NewString(),
		Source:        source,
		Symbol:        symbol,
		Kind:          kind,
		Action:        action,
		Strength:      strength,
		PriceAtSignal: price,
		CreatedAt:     time.Now(),
		Factors:       factors,
	}
}

// Validate checks required fields. A signal without a price snapshot
// cannot be scored or outcome-tracked.
func (s *Signal) Validate() error {
	if s.Source == "" || s.Symbol == "" || s.Kind == "" {
		return &ScoringError{Signal: *s, Reason: "missing source/symbol/kind"}
	}
	if !s.Action.Valid() {
		return &ScoringError{Signal: *s, Reason: fmt.Sprintf("unknown action %q", s.Action)}
	}
	if s.PriceAtSignal <= 0 {
		return &ScoringError{Signal: *s, Reason: "missing price_at_signal"}
	}
	if s.Strength < 0 || s.Strength > 100 {
		return &ScoringError{Signal: *s, Reason: fmt.Sprintf("strength %.1f out of range", s.Strength)}
	}
	return nil
}

// Key returns the dedup identity of the signal.
func (s *Signal) Key() AlertKey {
	return AlertKey{Source: s.Source, Symbol: s.Symbol, Kind: s.Kind}
}

// AlertKey identifies a dedup/rate-limit bucket: one alert per
// (source, symbol, kind) per cooldown window.
type AlertKey struct {
	Source string `json:"source"`
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
}

// String renders the key in its canonical "source|symbol|kind" form,
// the same form the store uses to index alert history.
func (k AlertKey) String() string {
	return k.Source + "|" + k.Symbol + "|" + k.Kind
}
