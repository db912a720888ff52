package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"versemarket/native/market"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.AuthorityKey)
	require.Equal(t, ":8090", cfg.AdminListenAddress)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestLoadBackfillsMissingAuthorityKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`DataDir = "./data"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.AuthorityKey)
	require.Equal(t, "./data", cfg.DataDir)
}

func TestLoadGlobalMissingFileYieldsDefaults(t *testing.T) {
	g, err := LoadGlobal(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, defaultGlobal().Leverage.MaxEffectiveLeverage, g.Leverage.MaxEffectiveLeverage)
	require.NoError(t, ValidateConfig(g))
}

func TestNormaliseFillsZeroFieldsOnly(t *testing.T) {
	g := Global{Leverage: LeverageConfig{MaxSteps: 7}}
	n := g.Normalise()
	require.Equal(t, 7, n.Leverage.MaxSteps)
	require.Equal(t, defaultGlobal().Leverage.MinSteps, n.Leverage.MinSteps)
	require.Equal(t, defaultGlobal().Safety.ClampBpsPerSlot, n.Safety.ClampBpsPerSlot)
	require.NoError(t, ValidateConfig(n))
}

func TestValidateConfigRejectsInvertedSteps(t *testing.T) {
	g := defaultGlobal()
	g.Leverage.MinSteps = 5
	g.Leverage.MaxSteps = 2
	require.Error(t, ValidateConfig(g))
}

func TestValidateConfigRejectsNonDescendingCoverageTiers(t *testing.T) {
	g := defaultGlobal()
	g.Leverage.CoverageTiers = []market.CoverageLeverageTier{
		{MinCoverageBps: 5000, MaxLeverage: 3},
		{MinCoverageBps: 6000, MaxLeverage: 10},
	}
	require.Error(t, ValidateConfig(g))
}

func TestValidateConfigRejectsOutOfRangeBps(t *testing.T) {
	g := defaultGlobal()
	g.Safety.MinConfidenceBps = BasisPointsScale + 1
	require.Error(t, ValidateConfig(g))
}

func TestParametersConvertsFields(t *testing.T) {
	g := defaultGlobal()
	p, err := g.Parameters()
	require.NoError(t, err)
	require.Equal(t, g.Leverage.MaxEffectiveLeverage, p.MaxEffectiveLeverage)
	require.Equal(t, g.Fees.FlashLoanFeeBps, p.Fees.FlashLoanFeeBps)
	require.Equal(t, len(g.Leverage.CoverageTiers), len(p.CoverageTiers))
	require.Equal(t, g.Breaker.EmergencyGenesisWindowSlots, p.EmergencyGenesisWindowSlots)
}
