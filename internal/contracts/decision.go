package contracts

import "time"

// MarketContext is the auxiliary read-only view the scorer consumes.
// Fields come from external price/levels collaborators; the core never
// computes them. Optional fields may be zero/nil and contribute nothing.
type MarketContext struct {
	Symbol         string     `json:"symbol"`
	Trend5D        float64    `json:"trend_5d"` // 5-day percent change, e.g. 6.0 = +6%
	NearestLevel   *LevelInfo `json:"nearest_level,omitempty"`
	MegaCap        bool       `json:"mega_cap"`
	RelativeVolume float64    `json:"relative_volume"` // 1.0 = average
	Regime         string     `json:"regime"`          // volatility tag: calm, elevated, panic
	AsOf           time.Time  `json:"as_of"`
}

// LevelInfo describes the nearest known institutional level for a symbol.
type LevelInfo struct {
	Price float64 `json:"price"`
	Size  int64   `json:"size"` // notional size behind the level
	Kind  string  `json:"kind"` // "support" or "resistance"
}

// Decision is the confluence scorer's output wrapping a signal.
type Decision struct {
	Signal      Signal   `json:"signal"`
	FinalAction Action   `json:"final_action"`
	Score       int      `json:"score"`
	Upgraded    bool     `json:"upgraded"`
	ScoreNotes  []string `json:"score_notes"` // which factors contributed and by how much
}

// AlertMessage is the wire form delivered to sinks.
// JSON body shape is part of the webhook contract.
type AlertMessage struct {
	Source    string    `json:"source"`
	Symbol    string    `json:"symbol"`
	Kind      string    `json:"kind"`
	Action    Action    `json:"action"`
	Score     int       `json:"score"`
	Factors   []string  `json:"factors"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"` // rendered one-line summary
}
