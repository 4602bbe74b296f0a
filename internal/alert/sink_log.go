package alert

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
)

// LogSink writes alerts to the structured log. Always configured; it is
// the channel of last resort when no webhook is set up.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "alert.sink.log").Logger()}
}

// Name implements contracts.AlertSink.
func (s *LogSink) Name() string { return "log" }

// Send implements contracts.AlertSink.
func (s *LogSink) Send(_ context.Context, msg contracts.AlertMessage) error {
	s.log.Info().
		Str("source", msg.Source).
		Str("symbol", msg.Symbol).
		Str("kind", msg.Kind).
		Str("action", string(msg.Action)).
		Int("score", msg.Score).
		Float64("price", msg.Price).
		Strs("factors", msg.Factors).
		Msg(msg.Text)
	return nil
}
