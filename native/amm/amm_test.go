package amm

import (
	"math/big"
	"testing"

	"versemarket/core/fixedpoint"
	"versemarket/native/market"

	"github.com/stretchr/testify/require"
)

func binaryProposal(t *testing.T) *market.Proposal {
	t.Helper()
	half, err := fixedpoint.NewU6464FromRat(big.NewRat(1, 2))
	require.NoError(t, err)
	liquidity, err := fixedpoint.NewU6464FromInt64(100)
	require.NoError(t, err)
	zero := fixedpoint.Zero6464()
	return &market.Proposal{
		ID: "p1", Shape: market.ShapeBinary, NumOutcomes: 2, SettleSlot: 1_000_000,
		Prices: []fixedpoint.U6464{half, half}, Quantities: []fixedpoint.U6464{zero, zero},
		LiquidityParam: liquidity,
	}
}

func TestLMSRTradeKeepsProbabilitySum(t *testing.T) {
	p := binaryProposal(t)
	l := LMSR{}
	amount, err := fixedpoint.NewU6464FromInt64(10)
	require.NoError(t, err)
	res, err := l.Trade(p, TradeRequest{Outcome: 0, Side: SideLong, Amount: amount})
	require.NoError(t, err)
	require.Len(t, res.NewPrices, 2)
	require.NoError(t, l.InvariantCheck(p))
	require.True(t, res.NewPrices[0].Cmp(p.Prices[0]) == 0)
}

func TestLMSRRejectsNonBinary(t *testing.T) {
	p := binaryProposal(t)
	p.NumOutcomes = 3
	l := LMSR{}
	_, err := l.Quote(p, TradeRequest{Outcome: 0, Side: SideLong})
	require.Error(t, err)
}

func discreteProposal(t *testing.T, n int) *market.Proposal {
	t.Helper()
	prices := make([]fixedpoint.U6464, n)
	quantities := make([]fixedpoint.U6464, n)
	equal, err := fixedpoint.NewU6464FromRat(big.NewRat(1, int64(n)))
	require.NoError(t, err)
	for i := range prices {
		prices[i] = equal
		quantities[i] = fixedpoint.Zero6464()
	}
	liquidity, err := fixedpoint.NewU6464FromInt64(50)
	require.NoError(t, err)
	return &market.Proposal{
		ID: "p2", Shape: market.ShapeDiscrete, NumOutcomes: n, SettleSlot: 1_000_000,
		Prices: prices, Quantities: quantities, LiquidityParam: liquidity,
	}
}

func TestPMAMMConvergesWithinBudget(t *testing.T) {
	tables := fixedpoint.NewTables()
	require.NoError(t, tables.Populate())
	for _, n := range []int{2, 5, 16, 64} {
		p := discreteProposal(t, n)
		m := PMAMM{Tables: tables}
		amount, err := fixedpoint.NewU6464FromInt64(1)
		require.NoError(t, err)
		res, err := m.Trade(p, TradeRequest{Outcome: 0, Side: SideLong, Amount: amount})
		require.NoError(t, err)
		require.NoError(t, m.InvariantCheck(p))
		require.Len(t, res.NewPrices, n)
	}
}

func TestPMAMMRejectsWithoutTables(t *testing.T) {
	p := discreteProposal(t, 4)
	m := PMAMM{}
	_, err := m.Quote(p, TradeRequest{Outcome: 0, Side: SideLong})
	require.Error(t, err)
}

func rangeProposal(t *testing.T, points int) *market.Proposal {
	t.Helper()
	prices := make([]fixedpoint.U6464, points)
	equal, err := fixedpoint.NewU6464FromRat(big.NewRat(1, int64(points)))
	require.NoError(t, err)
	for i := range prices {
		prices[i] = equal
	}
	liquidity, err := fixedpoint.NewU6464FromInt64(2)
	require.NoError(t, err)
	return &market.Proposal{
		ID: "p3", Shape: market.ShapeContinuousRange, NumOutcomes: points, SettleSlot: 1_000_000,
		Prices: prices, LiquidityParam: liquidity,
	}
}

func TestL2AMMKeepsProbabilitySum(t *testing.T) {
	p := rangeProposal(t, 21)
	l := L2AMM{}
	amount, err := fixedpoint.NewU6464FromRat(big.NewRat(1, 100))
	require.NoError(t, err)
	_, err = l.Trade(p, TradeRequest{Outcome: 3, Side: SideLong, Amount: amount})
	require.NoError(t, err)
	require.NoError(t, l.InvariantCheck(p))
}

func TestSelectorBinaryUsesLMSR(t *testing.T) {
	p := binaryProposal(t)
	p.SettleSlot = 10_000_000
	pricer, kind, err := Select(p, 0, nil)
	require.NoError(t, err)
	require.Equal(t, market.AMMLMSR, kind)
	_, ok := pricer.(LMSR)
	require.True(t, ok)
}

func TestSelectorForcesPMAMMNearSettle(t *testing.T) {
	p := binaryProposal(t)
	p.SettleSlot = 100
	tables := fixedpoint.NewTables()
	require.NoError(t, tables.Populate())
	_, kind, err := Select(p, 50, tables)
	require.NoError(t, err)
	require.Equal(t, market.AMMPMAMM, kind)
}

func TestSelectorRejectsOverLimitDiscrete(t *testing.T) {
	p := discreteProposal(t, 4)
	p.NumOutcomes = 65
	p.SettleSlot = 10_000_000
	_, _, err := Select(p, 0, nil)
	require.Error(t, err)
}
