package position

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockKeeperRewardStore struct {
	byKey map[string]KeeperRewardTotal
}

func newMockKeeperRewardStore() *mockKeeperRewardStore {
	return &mockKeeperRewardStore{byKey: make(map[string]KeeperRewardTotal)}
}

func (m *mockKeeperRewardStore) LoadKeeperReward(keeper string, epoch uint64) (KeeperRewardTotal, bool, error) {
	t, ok := m.byKey[keeperRewardTestKey(keeper, epoch)]
	return t, ok, nil
}

func (m *mockKeeperRewardStore) SaveKeeperReward(keeper string, epoch uint64, total KeeperRewardTotal) error {
	m.byKey[keeperRewardTestKey(keeper, epoch)] = total
	return nil
}

func keeperRewardTestKey(keeper string, epoch uint64) string {
	return keeper + "|" + big.NewInt(int64(epoch)).String()
}

func TestAccrueKeeperRewardSumsWithinEpoch(t *testing.T) {
	store := newMockKeeperRewardStore()
	e := NewEngine()
	e.SetKeeperRewards(store)

	require.NoError(t, e.accrueKeeperReward("keeper1", 10, mustAmount(t, 5)))
	require.NoError(t, e.accrueKeeperReward("keeper1", 20, mustAmount(t, 7)))

	total, ok, err := store.LoadKeeperReward("keeper1", RewardEpochOf(10))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(2), total.Liquidations)
	require.Equal(t, 0, total.AccruedRaw.Cmp(mustAmount(t, 12).Raw()))
}

func TestAccrueKeeperRewardRollsOverOnNewEpoch(t *testing.T) {
	store := newMockKeeperRewardStore()
	e := NewEngine()
	e.SetKeeperRewards(store)

	require.NoError(t, e.accrueKeeperReward("keeper1", 10, mustAmount(t, 5)))
	require.NoError(t, e.accrueKeeperReward("keeper1", RewardEpochSlots+10, mustAmount(t, 9)))

	firstEpoch, ok, err := store.LoadKeeperReward("keeper1", RewardEpochOf(10))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), firstEpoch.Liquidations)

	secondEpoch, ok, err := store.LoadKeeperReward("keeper1", RewardEpochOf(RewardEpochSlots+10))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), secondEpoch.Liquidations)
	require.Equal(t, 0, secondEpoch.AccruedRaw.Cmp(mustAmount(t, 9).Raw()))
}

func TestAccrueKeeperRewardNoopWithoutStoreOrAddress(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.accrueKeeperReward("keeper1", 10, mustAmount(t, 5)))

	store := newMockKeeperRewardStore()
	e.SetKeeperRewards(store)
	require.NoError(t, e.accrueKeeperReward("", 10, mustAmount(t, 5)))
	_, ok, err := store.LoadKeeperReward("", RewardEpochOf(10))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLiquidateAccruesKeeperReward(t *testing.T) {
	e, _, credits, _ := setup(t)
	store := newMockKeeperRewardStore()
	e.SetKeeperRewards(store)

	_, err := credits.Deposit("alice", "v1", mustAmount(t, 1000))
	require.NoError(t, err)
	p, err := e.Open(OpenRequest{
		User: "alice", VerseID: "v1", ProposalID: "prop1", Outcome: 0, Side: 0,
		Amount: mustAmount(t, 100), Leverage: 5, CurrentSlot: 10, Nonce: 1,
	})
	require.NoError(t, err)

	_, err = e.Liquidate(p.ID, 20, "keeper1", 10000, 3000)
	require.NoError(t, err)

	total, ok, err := store.LoadKeeperReward("keeper1", RewardEpochOf(20))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), total.Liquidations)
	require.Equal(t, 1, total.AccruedRaw.Sign())
}
