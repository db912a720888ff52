package position

import (
	"math/big"
	"testing"

	"versemarket/core/fixedpoint"
	"versemarket/native/amm"
	creditpkg "versemarket/native/credit"
	"versemarket/native/market"

	"github.com/stretchr/testify/require"
)

type mockPositionState struct {
	byID map[string]*Position
}

func newMockPositionState() *mockPositionState {
	return &mockPositionState{byID: make(map[string]*Position)}
}

func (m *mockPositionState) GetPosition(id string) (*Position, bool, error) {
	p, ok := m.byID[id]
	return p, ok, nil
}

func (m *mockPositionState) PutPosition(p *Position) error {
	m.byID[p.ID] = p
	return nil
}

func (m *mockPositionState) ListOpenPositions(user, verseID string) ([]*Position, error) {
	var out []*Position
	for _, p := range m.byID {
		if p.User == user && p.VerseID == verseID && (p.Status == StatusOpen || p.Status == StatusPartiallyLiquidated) {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockMarketState struct {
	verses    map[string]*market.Verse
	proposals map[string]*market.Proposal
	config    *market.GlobalConfig
}

func (m *mockMarketState) GetVerse(id string) (*market.Verse, bool, error) {
	v, ok := m.verses[id]
	return v, ok, nil
}
func (m *mockMarketState) GetProposal(id string) (*market.Proposal, bool, error) {
	p, ok := m.proposals[id]
	return p, ok, nil
}
func (m *mockMarketState) PutProposal(p *market.Proposal) error {
	m.proposals[p.ID] = p
	return nil
}
func (m *mockMarketState) GetGlobalConfig() (*market.GlobalConfig, bool, error) {
	if m.config == nil {
		return nil, false, nil
	}
	return m.config, true, nil
}
func (m *mockMarketState) PutGlobalConfig(cfg *market.GlobalConfig) error {
	m.config = cfg
	return nil
}

func setup(t *testing.T) (*Engine, *mockMarketState, *creditpkg.Engine, *mockCreditStateT) {
	t.Helper()
	half, err := fixedpoint.NewU6464FromRat(big.NewRat(1, 2))
	require.NoError(t, err)
	liquidity, err := fixedpoint.NewU6464FromInt64(100)
	require.NoError(t, err)
	proposal := &market.Proposal{
		ID: "prop1", VerseID: "v1", Shape: market.ShapeBinary, NumOutcomes: 2, SettleSlot: 1_000_000,
		Prices: []fixedpoint.U6464{half, half}, Quantities: []fixedpoint.U6464{fixedpoint.Zero6464(), fixedpoint.Zero6464()},
		LiquidityParam: liquidity, Status: market.ProposalOpen,
	}
	ms := &mockMarketState{
		verses:    map[string]*market.Verse{"v1": {ID: "v1", Status: market.VerseActive}},
		proposals: map[string]*market.Proposal{"prop1": proposal},
	}

	creditState := newMockCreditState()
	credits := creditpkg.NewEngine()
	credits.SetState(creditState)

	e := NewEngine()
	e.SetState(newMockPositionState())
	e.SetMarket(ms)
	e.SetCredits(credits)

	return e, ms, credits, creditState
}

type mockCreditStateT struct {
	byKey map[string]*creditpkg.UserCredits
}

func newMockCreditState() *mockCreditStateT {
	return &mockCreditStateT{byKey: make(map[string]*creditpkg.UserCredits)}
}
func (m *mockCreditStateT) GetUserCredits(user, verseID string) (*creditpkg.UserCredits, bool, error) {
	c, ok := m.byKey[user+"/"+verseID]
	return c, ok, nil
}
func (m *mockCreditStateT) PutUserCredits(c *creditpkg.UserCredits) error {
	m.byKey[c.User+"/"+c.VerseID] = c
	return nil
}

func TestOpenPositionLocksMarginAndSizes(t *testing.T) {
	e, _, credits, _ := setup(t)
	_, err := credits.Deposit("alice", "v1", mustAmount(t, 1000))
	require.NoError(t, err)

	p, err := e.Open(OpenRequest{
		User: "alice", VerseID: "v1", ProposalID: "prop1", Outcome: 0, Side: amm.SideLong,
		Amount: mustAmount(t, 100), Leverage: 5, CurrentSlot: 10, Nonce: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 0, p.Size.Cmp(mustAmount(t, 500)))
	require.Equal(t, StatusOpen, p.Status)
}

func TestOpenRejectsOverDirectLeverage(t *testing.T) {
	e, _, credits, _ := setup(t)
	_, err := credits.Deposit("alice", "v1", mustAmount(t, 1000))
	require.NoError(t, err)
	_, err = e.Open(OpenRequest{
		User: "alice", VerseID: "v1", ProposalID: "prop1", Outcome: 0, Side: amm.SideLong,
		Amount: mustAmount(t, 100), Leverage: 200, CurrentSlot: 10, Nonce: 1,
	})
	require.Error(t, err)
}

func TestOpenAndCloseTrackGlobalOpenInterest(t *testing.T) {
	e, ms, credits, _ := setup(t)
	ms.config = &market.GlobalConfig{TotalVault: mustAmount(t, 2000), TotalOI: fixedpoint.Zero6464(), Coverage: fixedpoint.One6464()}
	_, err := credits.Deposit("alice", "v1", mustAmount(t, 1000))
	require.NoError(t, err)

	p, err := e.Open(OpenRequest{
		User: "alice", VerseID: "v1", ProposalID: "prop1", Outcome: 0, Side: amm.SideLong,
		Amount: mustAmount(t, 100), Leverage: 5, CurrentSlot: 10, Nonce: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 0, ms.config.TotalOI.Cmp(mustAmount(t, 500)))

	_, err = e.Close(p.ID, 20)
	require.NoError(t, err)
	require.Equal(t, 0, ms.config.TotalOI.Cmp(fixedpoint.Zero6464()))
}

func TestCloseReleasesCredits(t *testing.T) {
	e, _, credits, creditState := setup(t)
	_, err := credits.Deposit("alice", "v1", mustAmount(t, 1000))
	require.NoError(t, err)
	p, err := e.Open(OpenRequest{
		User: "alice", VerseID: "v1", ProposalID: "prop1", Outcome: 0, Side: amm.SideLong,
		Amount: mustAmount(t, 100), Leverage: 5, CurrentSlot: 10, Nonce: 1,
	})
	require.NoError(t, err)

	closed, err := e.Close(p.ID, 20)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, closed.Status)

	c, ok, err := creditState.GetUserCredits("alice", "v1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, c.LockedCredits.Cmp(fixedpoint.Zero6464()))
}

func mustAmount(t *testing.T, v int64) fixedpoint.U6464 {
	t.Helper()
	fp, err := fixedpoint.NewU6464FromInt64(v)
	require.NoError(t, err)
	return fp
}
