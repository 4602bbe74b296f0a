package contracts

import (
	"errors"
	"fmt"
)

// ⭐ SSOT: 에러 분류는 여기서만 정의

// ErrTransientFetch marks a network/timeout failure from a checker or a
// context provider. Retried on the next scheduled tick; only repeated
// occurrences count toward a checker fault.
var ErrTransientFetch = errors.New("transient fetch error")

// TransientFetch wraps err so errors.Is(err, ErrTransientFetch) holds.
func TransientFetch(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransientFetch, err)
}

// CheckerFault is raised after a checker fails repeatedly or returns a
// response it cannot parse; it triggers the cooldown-after-failure state.
type CheckerFault struct {
	Checker     string
	Consecutive int
	Err         error
}

func (f *CheckerFault) Error() string {
	return fmt.Sprintf("checker %s faulted after %d consecutive failures: %v", f.Checker, f.Consecutive, f.Err)
}

func (f *CheckerFault) Unwrap() error { return f.Err }

// ScoringError marks a malformed signal that cannot be scored.
// The decision is dropped before the alert stage.
type ScoringError struct {
	Signal Signal
	Reason string
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("cannot score signal %s/%s/%s: %s", e.Signal.Source, e.Signal.Symbol, e.Signal.Kind, e.Reason)
}

// DeliveryError marks a sink failure after all retries.
type DeliveryError struct {
	Sink     string
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("sink %s failed after %d attempts: %v", e.Sink, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// StorageError marks a store write failure. Fatal for that row's audit
// trail but never for the orchestrator.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
