package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"versemarket/core/fixedpoint"
	"versemarket/native/market"
	"versemarket/native/position"
)

func TestStoreVerseRoundTrip(t *testing.T) {
	s := NewStore(NewMemDB())
	v := &market.Verse{ID: "v1", Status: market.VerseActive}
	require.NoError(t, s.PutVerse(v))

	got, ok, err := s.GetVerse("v1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, v.Status, got.Status)

	_, ok, err = s.GetVerse("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStorePositionRoundTripAndIndex(t *testing.T) {
	s := NewStore(NewMemDB())
	size, err := fixedpoint.NewU6464FromInt64(500)
	require.NoError(t, err)
	p := &position.Position{ID: "p1", User: "alice", VerseID: "v1", Status: position.StatusOpen, Size: size}
	require.NoError(t, s.PutPosition(p))

	got, ok, err := s.GetPosition("p1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, got.Size.Cmp(size))

	open, err := s.ListOpenPositions("alice", "v1")
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "p1", open[0].ID)

	p.Status = position.StatusClosed
	require.NoError(t, s.PutPosition(p))
	open, err = s.ListOpenPositions("alice", "v1")
	require.NoError(t, err)
	require.Len(t, open, 0)
}

func TestStoreKeeperRewardRoundTrip(t *testing.T) {
	s := NewStore(NewMemDB())
	_, ok, err := s.LoadKeeperReward("keeper1", 3)
	require.NoError(t, err)
	require.False(t, ok)

	amount, err := fixedpoint.NewU6464FromInt64(7)
	require.NoError(t, err)
	total := position.KeeperRewardTotal{EpochID: 3, AccruedRaw: amount.Raw(), Liquidations: 2}
	require.NoError(t, s.SaveKeeperReward("keeper1", 3, total))

	got, ok, err := s.LoadKeeperReward("keeper1", 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(2), got.Liquidations)
	require.Equal(t, 0, got.AccruedRaw.Cmp(amount.Raw()))
}

func TestStoreGlobalConfigSingleton(t *testing.T) {
	s := NewStore(NewMemDB())
	_, ok, err := s.GetGlobalConfig()
	require.NoError(t, err)
	require.False(t, ok)

	gc := &market.GlobalConfig{GenesisSlot: 42}
	require.NoError(t, s.PutGlobalConfig(gc))

	got, ok, err := s.GetGlobalConfig()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), got.GenesisSlot)
}
