package oracle

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	fperrors "versemarket/core/errors"
	"versemarket/core/fixedpoint"
	"versemarket/native/market"
)

type mockState struct {
	proposals map[string]*market.Proposal
	caches    map[string]*market.PriceCache
}

func newMockState() *mockState {
	return &mockState{proposals: map[string]*market.Proposal{}, caches: map[string]*market.PriceCache{}}
}
func (m *mockState) GetProposal(id string) (*market.Proposal, bool, error) {
	p, ok := m.proposals[id]
	return p, ok, nil
}
func (m *mockState) PutProposal(p *market.Proposal) error {
	m.proposals[p.ID] = p
	return nil
}
func (m *mockState) GetPriceCache(id string) (*market.PriceCache, bool, error) {
	c, ok := m.caches[id]
	return c, ok, nil
}
func (m *mockState) PutPriceCache(c *market.PriceCache) error {
	m.caches[c.ProposalID] = c
	return nil
}

func fp(t *testing.T, num, den int64) fixedpoint.U6464 {
	t.Helper()
	v, err := fixedpoint.NewU6464FromRat(big.NewRat(num, den))
	require.NoError(t, err)
	return v
}

func setup(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	ms := newMockState()
	ms.proposals["p1"] = &market.Proposal{
		ID: "p1", VerseID: "v1", Status: market.ProposalOpen,
		Prices: []fixedpoint.U6464{fp(t, 1, 2), fp(t, 1, 2)},
	}
	e := NewEngine()
	e.SetMarket(ms)
	return e, ms
}

func TestPushPriceAcceptsFreshSample(t *testing.T) {
	e, ms := setup(t)
	err := e.PushPrice(PushPriceRequest{
		ProposalID: "p1", Outcome: 0, PriceFP: fp(t, 51, 100),
		ConfidenceBps: 9000, SourceSlot: 10, CurrentSlot: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 0, ms.proposals["p1"].Prices[0].Cmp(fp(t, 51, 100)))
}

func TestPushPriceRejectsStale(t *testing.T) {
	e, _ := setup(t)
	err := e.PushPrice(PushPriceRequest{
		ProposalID: "p1", Outcome: 0, PriceFP: fp(t, 51, 100),
		ConfidenceBps: 9000, SourceSlot: 0, CurrentSlot: StalenessSlots + 1,
	})
	require.ErrorIs(t, err, fperrors.ErrStalePrice)
}

func TestPushPriceRejectsLowConfidence(t *testing.T) {
	e, _ := setup(t)
	err := e.PushPrice(PushPriceRequest{
		ProposalID: "p1", Outcome: 0, PriceFP: fp(t, 51, 100),
		ConfidenceBps: 100, SourceSlot: 10, CurrentSlot: 10,
	})
	require.Error(t, err)
}

func TestPushPriceRejectsClampViolation(t *testing.T) {
	e, ms := setup(t)
	ms.caches["p1"] = &market.PriceCache{ProposalID: "p1", LastPrice: fp(t, 1, 2), LastUpdateSlot: 10}
	err := e.PushPrice(PushPriceRequest{
		ProposalID: "p1", Outcome: 0, PriceFP: fp(t, 99, 100), // huge jump in one slot
		ConfidenceBps: 9000, SourceSlot: 11, CurrentSlot: 11,
	})
	require.Error(t, err)
	require.Equal(t, market.ProposalHalted, ms.proposals["p1"].Status)
}

