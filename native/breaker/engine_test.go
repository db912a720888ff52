package breaker

import (
	"testing"

	"github.com/stretchr/testify/require"

	fperrors "versemarket/core/errors"
	"versemarket/core/fixedpoint"
	"versemarket/native/market"
)

type mockState struct {
	cfg *market.GlobalConfig
}

func (m *mockState) GetGlobalConfig() (*market.GlobalConfig, bool, error) {
	if m.cfg == nil {
		return nil, false, nil
	}
	return m.cfg, true, nil
}
func (m *mockState) PutGlobalConfig(g *market.GlobalConfig) error {
	m.cfg = g
	return nil
}

func setup() (*Engine, *mockState) {
	ms := &mockState{cfg: &market.GlobalConfig{Coverage: fixedpoint.One6464(), GenesisSlot: 0}}
	e := NewEngine()
	e.SetMarket(ms)
	e.SetAuthority("authority-addr")
	return e, ms
}

func TestEvaluateVolatilityTrips(t *testing.T) {
	e, ms := setup()
	err := e.EvaluateVolatility(600, 100)
	require.Error(t, err)
	require.True(t, ms.cfg.HaltFlag)
	require.True(t, e.IsPaused("position"))
}

func TestEvaluateVolatilityDoesNotTripBelowThreshold(t *testing.T) {
	e, ms := setup()
	err := e.EvaluateVolatility(100, 100)
	require.NoError(t, err)
	require.False(t, ms.cfg.HaltFlag)
}

func TestEvaluateCoverageTrips(t *testing.T) {
	e, ms := setup()
	err := e.EvaluateCoverage(9000, 100)
	require.Error(t, err)
	require.True(t, ms.cfg.HaltFlag)
}

func TestResetRequiresAuthorityOutsideGenesisWindow(t *testing.T) {
	e, ms := setup()
	ms.cfg.GenesisSlot = 0
	require.ErrorIs(t, e.EvaluateCoverage(9000, 100), fperrors.ErrCircuitBreakerOpen)
	require.True(t, ms.cfg.HaltFlag)

	err := e.Reset("random-caller", EmergencyGenesisWindowSlots+1000, 0)
	require.Error(t, err)

	err = e.Reset("authority-addr", EmergencyGenesisWindowSlots+1000, 0)
	require.NoError(t, err)
	require.False(t, ms.cfg.HaltFlag)
}

func TestResetAllowsAnyCallerWithinGenesisWindow(t *testing.T) {
	e, ms := setup()
	ms.cfg.GenesisSlot = 0
	require.ErrorIs(t, e.EvaluateCoverage(9000, 50), fperrors.ErrCircuitBreakerOpen)
	require.True(t, ms.cfg.HaltFlag)

	err := e.Reset("anyone", 100, 0)
	require.NoError(t, err)
	require.False(t, ms.cfg.HaltFlag)
}
