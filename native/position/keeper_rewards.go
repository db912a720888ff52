package position

import (
	"math/big"

	"versemarket/core/fixedpoint"
)

// RewardEpochSlots is the slot span a keeper reward counter accumulates
// over before rolling to a fresh one.
const RewardEpochSlots = 50000

// RewardEpochOf maps a slot to its reward epoch.
func RewardEpochOf(slot uint64) uint64 { return slot / RewardEpochSlots }

// KeeperRewardTotal is the running, accounting-only counter of collateral a
// keeper address has been credited across liquidations in a given epoch. The
// engine never transfers funds against it; it is a ledger entry for an
// external payout process to read.
type KeeperRewardTotal struct {
	EpochID      uint64
	AccruedRaw   *big.Int // sum of rewarded amounts, each scaled by 2^64
	Liquidations uint32
}

// KeeperRewardStore persists per-keeper, per-epoch reward counters, keyed
// (address, epoch) -> counters.
type KeeperRewardStore interface {
	LoadKeeperReward(keeper string, epoch uint64) (KeeperRewardTotal, bool, error)
	SaveKeeperReward(keeper string, epoch uint64, total KeeperRewardTotal) error
}

// accrueKeeperReward adds reward to keeper's counter for the epoch
// containing currentSlot, starting a fresh counter if the epoch has rolled
// over since the last write.
func (e *Engine) accrueKeeperReward(keeper string, currentSlot uint64, reward fixedpoint.U6464) error {
	if e.rewards == nil || keeper == "" {
		return nil
	}
	epoch := RewardEpochOf(currentSlot)
	prev, ok, err := e.rewards.LoadKeeperReward(keeper, epoch)
	if err != nil {
		return err
	}
	next := prev
	if !ok || prev.EpochID != epoch || prev.AccruedRaw == nil {
		next = KeeperRewardTotal{EpochID: epoch, AccruedRaw: big.NewInt(0)}
	}
	next.AccruedRaw = new(big.Int).Add(next.AccruedRaw, reward.Raw())
	next.Liquidations++
	return e.rewards.SaveKeeperReward(keeper, epoch, next)
}
