// Package chain implements the atomic 2..5-step chain engine composing
// Borrow/Liquidity/Stake primitives with cycle detection, a flash-loan fee
// on every Borrow step, and strict-reverse rollback on any step failure.
package chain

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"versemarket/core/fixedpoint"
)

// StepKind identifies a chain primitive.
type StepKind int

const (
	StepBorrow StepKind = iota
	StepLiquidity
	StepStake
)

func (k StepKind) String() string {
	switch k {
	case StepBorrow:
		return "borrow"
	case StepLiquidity:
		return "liquidity"
	case StepStake:
		return "stake"
	default:
		return "unknown"
	}
}

// MinSteps and MaxSteps bound a chain's length.
const (
	MinSteps = 2
	MaxSteps = 5
)

// MaxEffectiveLeverage is the system-wide cap on a chain's compounded
// leverage, regardless of coverage-based caps.
const MaxEffectiveLeverage = 500

// FlashLoanFeeBps is the fee charged on every Borrow step's notional: 2%.
const FlashLoanFeeBps = 200

// PostBorrowCooldownSlots is the minimum slot gap required between a Borrow
// step and any subsequent trade in the same chain.
const PostBorrowCooldownSlots = 2

// Status is the chain lifecycle: Preparing → Active → (Completed |
// Unwinding → RolledBack).
type Status int

const (
	StatusPreparing Status = iota
	StatusActive
	StatusUnwinding
	StatusCompleted
	StatusRolledBack
)

// StepRequest is a caller-supplied chain step before execution.
type StepRequest struct {
	Kind       StepKind
	Target     string
	Multiplier fixedpoint.U6464 // per-step leverage contribution, e.g. Borrow≈1.5x
	Notional   fixedpoint.U6464
	Slot       uint64
}

// PreImage captures the user's credit snapshot immediately before a step
// executes, so rollback can verify byte-equal restoration.
type PreImage struct {
	Available fixedpoint.U6464
	Locked    fixedpoint.U6464
	Total     fixedpoint.U6464
}

// Step is an executed (or pending) chain step with its recorded
// compensating data.
type Step struct {
	Kind       StepKind
	Target     string
	Multiplier fixedpoint.U6464
	Notional   fixedpoint.U6464
	Slot       uint64
	FeeCharged fixedpoint.U6464
	PreImage   PreImage
	Executed   bool
}

// Chain is an ordered sequence of 2..5 steps composed into one atomic
// transaction.
type Chain struct {
	ID                string
	User              string
	VerseID           string
	Steps             []Step
	StepsCompleted    int
	EffectiveLeverage fixedpoint.U6464
	Status            Status
}

// DeriveChainID mirrors the teacher's deterministic trade-id derivation.
func DeriveChainID(user, verseID string, nonce uint64) string {
	preimage := fmt.Sprintf("%s|%s|%d", user, verseID, nonce)
	return ethcrypto.Keccak256Hash([]byte(preimage)).Hex()
}
