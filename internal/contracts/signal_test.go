package contracts

import (
	"errors"
	"testing"
	"time"
)

func TestSignal_Validate(t *testing.T) {
	valid := NewSignal("dp", "AAPL", "support", ActionAvoid, 60, 187.5, "large print at 185")

	tests := []struct {
		name   string
		mutate func(*Signal)
		wantOK bool
	}{
		{"valid", func(s *Signal) {}, true},
		{"missing price", func(s *Signal) { s.PriceAtSignal = 0 }, false},
		{"negative price", func(s *Signal) { s.PriceAtSignal = -1 }, false},
		{"missing symbol", func(s *Signal) { s.Symbol = "" }, false},
		{"missing kind", func(s *Signal) { s.Kind = "" }, false},
		{"unknown action", func(s *Signal) { s.Action = "YOLO" }, false},
		{"strength over 100", func(s *Signal) { s.Strength = 101 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.wantOK {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				var se *ScoringError
				if !errors.As(err, &se) {
					t.Errorf("Validate() error type = %T, want *ScoringError", err)
				}
			}
		})
	}
}

func TestAlertKey_String(t *testing.T) {
	s := NewSignal("reddit", "GME", "sentiment-extreme", ActionWatch, 80, 25.0)
	key := s.Key()

	if got := key.String(); got != "reddit|GME|sentiment-extreme" {
		t.Errorf("Key().String() = %q", got)
	}

	// Identical tuples must produce identical keys regardless of other fields
	s2 := NewSignal("reddit", "GME", "sentiment-extreme", ActionLong, 10, 99.0)
	if s2.Key() != key {
		t.Error("keys for identical (source, symbol, kind) differ")
	}
}

func TestTrackedSignal_HorizonReturn(t *testing.T) {
	r := 3.0
	ts := TrackedSignal{Return3D: &r}

	if got := ts.HorizonReturn(3); got == nil || *got != 3.0 {
		t.Errorf("HorizonReturn(3) = %v, want 3.0", got)
	}
	if got := ts.HorizonReturn(1); got != nil {
		t.Errorf("HorizonReturn(1) = %v, want nil", got)
	}
	if got := ts.HorizonReturn(7); got != nil {
		t.Errorf("HorizonReturn(7) = %v, want nil for unknown horizon", got)
	}
}

func TestTransientFetch(t *testing.T) {
	base := errors.New("connection refused")
	wrapped := TransientFetch(base)

	if !errors.Is(wrapped, ErrTransientFetch) {
		t.Error("wrapped error should match ErrTransientFetch")
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should still match the cause")
	}
	if TransientFetch(nil) != nil {
		t.Error("TransientFetch(nil) should be nil")
	}
}

func TestSignal_CreatedAtSet(t *testing.T) {
	before := time.Now().Add(-time.Second)
	s := NewSignal("gamma", "SPY", "gamma-flip", ActionLong, 70, 500.0)

	if s.ID == "" {
		t.Error("NewSignal should assign an ID")
	}
	if s.CreatedAt.Before(before) {
		t.Error("NewSignal should stamp CreatedAt")
	}
}
