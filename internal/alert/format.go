package alert

import (
	"fmt"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
)

// Format renders a decision into the wire form sinks deliver.
// The factor list carries both the source's evidence and the scorer's
// contributing factors, in that order.
func Format(d contracts.Decision) contracts.AlertMessage {
	sig := d.Signal

	factors := make([]string, 0, len(sig.Factors)+len(d.ScoreNotes))
	factors = append(factors, sig.Factors...)
	factors = append(factors, d.ScoreNotes...)

	text := fmt.Sprintf("[%s] %s %s → %s (score %+d, strength %.0f) @ %.2f",
		sig.Source, sig.Symbol, sig.Kind, d.FinalAction, d.Score, sig.Strength, sig.PriceAtSignal)
	if d.Upgraded {
		text += fmt.Sprintf(" [was %s]", sig.Action)
	}

	return contracts.AlertMessage{
		Source:    sig.Source,
		Symbol:    sig.Symbol,
		Kind:      sig.Kind,
		Action:    d.FinalAction,
		Score:     d.Score,
		Factors:   factors,
		Price:     sig.PriceAtSignal,
		Timestamp: sig.CreatedAt,
		Text:      text,
	}
}
