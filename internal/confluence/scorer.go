package confluence

import (
	"fmt"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
)

// Scorer combines a provisional signal with market context into an
// upgraded/downgraded decision. Scoring is a pure function of
// (signal, context, config): no clock, no hidden state.
// ⭐ SSOT: 컨플루언스 판단은 여기서만
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer with the given weights.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score evaluates a signal against its market context. Missing optional
// context (no level, zero volume) contributes nothing; only a malformed
// signal itself is an error.
func (s *Scorer) Score(sig contracts.Signal, mc contracts.MarketContext) (contracts.Decision, error) {
	if err := sig.Validate(); err != nil {
		return contracts.Decision{}, err
	}

	f := s.cfg.Factors
	net := 0
	var notes []string

	// 5-day trend
	switch {
	case mc.Trend5D >= f.TrendThresholdPct:
		net += f.TrendPoints
		notes = append(notes, fmt.Sprintf("trend +%d (5d %+.1f%%)", f.TrendPoints, mc.Trend5D))
	case mc.Trend5D <= -f.TrendThresholdPct:
		net -= f.TrendPoints
		notes = append(notes, fmt.Sprintf("trend -%d (5d %+.1f%%)", f.TrendPoints, mc.Trend5D))
	}

	// Nearest institutional level
	if lvl := mc.NearestLevel; lvl != nil && lvl.Size >= f.LevelSizeFloor {
		switch lvl.Kind {
		case "support":
			net += f.LevelPoints
			notes = append(notes, fmt.Sprintf("support +%d (size %d @ %.2f)", f.LevelPoints, lvl.Size, lvl.Price))
		case "resistance":
			net -= f.LevelPoints
			notes = append(notes, fmt.Sprintf("resistance -%d (size %d @ %.2f)", f.LevelPoints, lvl.Size, lvl.Price))
		}
	}

	// Mega-cap stability (bullish only)
	if mc.MegaCap {
		net += f.MegaCapPoints
		notes = append(notes, fmt.Sprintf("mega-cap +%d", f.MegaCapPoints))
	}

	// Elevated volume follows the trend's direction
	if mc.RelativeVolume >= f.VolumeThreshold {
		switch {
		case mc.Trend5D > 0:
			net += f.VolumePoints
			notes = append(notes, fmt.Sprintf("volume +%d (%.1fx)", f.VolumePoints, mc.RelativeVolume))
		case mc.Trend5D < 0:
			net -= f.VolumePoints
			notes = append(notes, fmt.Sprintf("volume -%d (%.1fx)", f.VolumePoints, mc.RelativeVolume))
		}
	}

	// Panic regime (bearish only)
	if mc.Regime == "panic" {
		net -= f.PanicRegimePoints
		notes = append(notes, fmt.Sprintf("panic regime -%d", f.PanicRegimePoints))
	}

	final := s.applyThresholds(sig.Action, net)

	return contracts.Decision{
		Signal:      sig,
		FinalAction: final,
		Score:       net,
		Upgraded:    final != sig.Action,
		ScoreNotes:  notes,
	}, nil
}

// applyThresholds walks the AVOID → WATCH → LONG ladder (and its bearish
// mirror) based on the net score. SHORT signals are source conviction;
// bullish confluence never flips them, it only leaves them alone.
func (s *Scorer) applyThresholds(orig contracts.Action, net int) contracts.Action {
	t := s.cfg.Thresholds

	switch {
	case net >= t.UpgradeHigh:
		if orig == contracts.ActionAvoid || orig == contracts.ActionWatch {
			return contracts.ActionLong
		}
	case net >= t.UpgradeLow:
		if orig == contracts.ActionAvoid {
			return contracts.ActionWatch
		}
	case net <= -t.UpgradeHigh:
		if orig == contracts.ActionLong || orig == contracts.ActionWatch {
			return contracts.ActionAvoid
		}
	case net <= -t.UpgradeLow:
		if orig == contracts.ActionLong {
			return contracts.ActionWatch
		}
	}

	return orig
}
