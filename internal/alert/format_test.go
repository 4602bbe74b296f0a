package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
)

func TestFormat(t *testing.T) {
	sig := contracts.NewSignal("darkpool", "NVDA", "support", contracts.ActionWatch, 72, 181.50)
	sig.Factors = []string{"dark pool level 180.00 size $4.2M"}

	d := contracts.Decision{
		Signal:      sig,
		FinalAction: contracts.ActionLong,
		Score:       5,
		Upgraded:    true,
		ScoreNotes:  []string{"trend +5.3%/5d", "megacap"},
	}

	msg := Format(d)

	assert.Equal(t, "darkpool", msg.Source)
	assert.Equal(t, "NVDA", msg.Symbol)
	assert.Equal(t, contracts.ActionLong, msg.Action)
	assert.Equal(t, 5, msg.Score)
	assert.Equal(t, sig.CreatedAt, msg.Timestamp)

	// Source evidence first, scorer notes after
	assert.Equal(t, []string{"dark pool level 180.00 size $4.2M", "trend +5.3%/5d", "megacap"}, msg.Factors)

	assert.Equal(t, "[darkpool] NVDA support → LONG (score +5, strength 72) @ 181.50 [was WATCH]", msg.Text)
}

func TestFormat_NoUpgradeNote(t *testing.T) {
	sig := contracts.NewSignal("sweep", "TSLA", "call_sweep", contracts.ActionLong, 88, 250.00)

	msg := Format(contracts.Decision{Signal: sig, FinalAction: contracts.ActionLong, Score: 1})

	assert.NotContains(t, msg.Text, "[was")
	assert.Empty(t, msg.Factors)
}
