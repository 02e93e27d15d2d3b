package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionStrings(t *testing.T) {
	assert.Equal(t, "HOLD", ActionHold.String())
	assert.Equal(t, "PROBE_BUY", ActionProbeBuy.String())
	assert.Equal(t, "ADD_BUY", ActionAddBuy.String())
	assert.Equal(t, "SCALE_OUT_20", ActionScaleOut20.String())
	assert.Equal(t, "EXIT_FULL", ActionExitFull.String())
	assert.Equal(t, "unknown", Action(99).String())
}

func TestActionClassification(t *testing.T) {
	assert.True(t, ActionProbeBuy.IsEntry())
	assert.True(t, ActionAddBuy.IsEntry())
	assert.False(t, ActionProbeBuy.IsExit())

	assert.True(t, ActionScaleOut20.IsExit())
	assert.True(t, ActionExitFull.IsExit())
	assert.False(t, ActionHold.IsEntry())
	assert.False(t, ActionHold.IsExit())
}

func TestActionMarshalsAsWireString(t *testing.T) {
	raw, err := json.Marshal(map[string]Action{"action": ActionProbeBuy})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action": "PROBE_BUY"}`, string(raw))
}

func TestProposalDemoteAndWithReasons(t *testing.T) {
	p := Proposal{
		Action:      ActionProbeBuy,
		ReasonCodes: []string{ReasonBreakoutConfirm},
		Guards:      map[string]int{"max_slippage_bps": 250},
		ExpiresAt:   1700000060,
	}

	demoted := p.Demote([]string{RejectLowLiquidity})
	assert.Equal(t, ActionHold, demoted.Action)
	assert.Equal(t, []string{RejectLowLiquidity}, demoted.ReasonCodes)
	assert.Equal(t, p.Guards, demoted.Guards)
	assert.Equal(t, p.ExpiresAt, demoted.ExpiresAt)
	// The original is untouched.
	assert.Equal(t, ActionProbeBuy, p.Action)

	rewritten := p.WithReasons([]string{ReasonNetOutflow})
	assert.Equal(t, ActionProbeBuy, rewritten.Action)
	assert.True(t, rewritten.HasReason(ReasonNetOutflow))
	assert.False(t, rewritten.HasReason(ReasonBreakoutConfirm))
}

func TestZoneContains(t *testing.T) {
	z := Zone{Low: 0.99, High: 1.01}
	assert.True(t, z.Contains(1.0))
	assert.True(t, z.Contains(0.99))
	assert.False(t, z.Contains(1.02))
}

func TestCandleRange(t *testing.T) {
	c := Candle{H: 1.2, L: 1.05}
	assert.InDelta(t, 0.15, c.Range(), 1e-9)
}
