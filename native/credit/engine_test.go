package credit

import (
	"testing"

	fperrors "versemarket/core/errors"
	"versemarket/core/fixedpoint"
	"versemarket/native/market"

	"github.com/stretchr/testify/require"
)

type mockVault struct {
	cfg *market.GlobalConfig
}

func (m *mockVault) GetGlobalConfig() (*market.GlobalConfig, bool, error) {
	if m.cfg == nil {
		return nil, false, nil
	}
	return m.cfg, true, nil
}

func (m *mockVault) PutGlobalConfig(cfg *market.GlobalConfig) error {
	m.cfg = cfg
	return nil
}

type mockState struct {
	byKey map[string]*UserCredits
}

func newMockState() *mockState { return &mockState{byKey: make(map[string]*UserCredits)} }

func key(user, verseID string) string { return user + "/" + verseID }

func (m *mockState) GetUserCredits(user, verseID string) (*UserCredits, bool, error) {
	c, ok := m.byKey[key(user, verseID)]
	return c, ok, nil
}

func (m *mockState) PutUserCredits(c *UserCredits) error {
	m.byKey[key(c.User, c.VerseID)] = c
	return nil
}

func mustFP(t *testing.T, v int64) fixedpoint.U6464 {
	t.Helper()
	fp, err := fixedpoint.NewU6464FromInt64(v)
	require.NoError(t, err)
	return fp
}

func TestDepositConservesCredits(t *testing.T) {
	e := NewEngine()
	e.SetState(newMockState())
	c, err := e.Deposit("alice", "v1", mustFP(t, 1000))
	require.NoError(t, err)
	require.Equal(t, 0, c.TotalDeposit.Cmp(c.AvailableCredits.SaturatingAdd(c.LockedCredits)))
}

func TestLockAllowsSuperposition(t *testing.T) {
	e := NewEngine()
	e.SetState(newMockState())
	_, err := e.Deposit("alice", "v1", mustFP(t, 1000))
	require.NoError(t, err)
	_, err = e.Lock("alice", "v1", "pos-long", mustFP(t, 400))
	require.NoError(t, err)
	c, err := e.Lock("alice", "v1", "pos-short", mustFP(t, 400))
	require.NoError(t, err)
	require.Equal(t, 0, c.LockedCredits.Cmp(mustFP(t, 800)))
	require.Equal(t, 0, c.TotalDeposit.Cmp(c.AvailableCredits.SaturatingAdd(c.LockedCredits)))
}

func TestLockRejectsOverTotalDeposit(t *testing.T) {
	e := NewEngine()
	e.SetState(newMockState())
	_, err := e.Deposit("alice", "v1", mustFP(t, 1000))
	require.NoError(t, err)
	_, err = e.Lock("alice", "v1", "pos-a", mustFP(t, 1200))
	require.ErrorIs(t, err, fperrors.ErrInsufficientFunds)
}

func TestReleaseRestoresAvailable(t *testing.T) {
	e := NewEngine()
	e.SetState(newMockState())
	_, err := e.Deposit("alice", "v1", mustFP(t, 1000))
	require.NoError(t, err)
	_, err = e.Lock("alice", "v1", "pos-a", mustFP(t, 600))
	require.NoError(t, err)
	c, err := e.Release("alice", "v1", "pos-a")
	require.NoError(t, err)
	require.Equal(t, 0, c.AvailableCredits.Cmp(mustFP(t, 1000)))
	require.Equal(t, 0, c.LockedCredits.Cmp(fixedpoint.Zero6464()))
}

func TestRefundAtSettleTooEarly(t *testing.T) {
	e := NewEngine()
	e.SetState(newMockState())
	_, err := e.Deposit("alice", "v1", mustFP(t, 1000))
	require.NoError(t, err)
	_, err = e.RefundAtSettle("alice", "v1", 50, 100, true)
	require.ErrorIs(t, err, fperrors.ErrTooEarlyForRefund)
}

func TestRefundAtSettleSucceeds(t *testing.T) {
	e := NewEngine()
	e.SetState(newMockState())
	_, err := e.Deposit("alice", "v1", mustFP(t, 1000))
	require.NoError(t, err)
	amount, err := e.RefundAtSettle("alice", "v1", 100, 100, true)
	require.NoError(t, err)
	require.Equal(t, 0, amount.Cmp(mustFP(t, 1000)))
}

func TestDepositAndRefundTrackVaultTotal(t *testing.T) {
	e := NewEngine()
	e.SetState(newMockState())
	vault := &mockVault{cfg: &market.GlobalConfig{TotalVault: fixedpoint.Zero6464(), TotalOI: mustFP(t, 500)}}
	e.SetMarket(vault)

	_, err := e.Deposit("alice", "v1", mustFP(t, 1000))
	require.NoError(t, err)
	require.Equal(t, 0, vault.cfg.TotalVault.Cmp(mustFP(t, 1000)))
	// coverage = vault/OI = 1000/500 = 2.0
	require.Equal(t, 0, vault.cfg.Coverage.Cmp(mustFP(t, 2)))

	_, err = e.RefundAtSettle("alice", "v1", 100, 100, true)
	require.NoError(t, err)
	require.Equal(t, 0, vault.cfg.TotalVault.Cmp(fixedpoint.Zero6464()))
}

func TestBatchRefundContinuesPastFailures(t *testing.T) {
	e := NewEngine()
	e.SetState(newMockState())
	_, err := e.Deposit("alice", "v1", mustFP(t, 1000))
	require.NoError(t, err)
	_, err = e.Deposit("bob", "v1", mustFP(t, 500))
	require.NoError(t, err)

	results := e.BatchRefund([]RefundRequest{
		{User: "alice", VerseID: "v1", SettleSlot: 100, AllClosed: true},
		{User: "bob", VerseID: "v1", SettleSlot: 200, AllClosed: true},
	}, 150)
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.ErrorIs(t, results[1].Err, fperrors.ErrTooEarlyForRefund)
}
