// Package fixedpoint implements the engine's U64.64 and U128.128 unsigned
// fixed-point arithmetic and the precomputed Φ/φ/erf tables consumed by the
// PM-AMM and L2-AMM pricers. All pricing in this repository goes through
// these types; normal-distribution values are table lookups, never live
// floating-point computation.
package fixedpoint

import (
	"encoding/json"
	"fmt"
	"math/big"

	fperrors "versemarket/core/errors"
)

// Shift64 is the fractional bit-width of a U64.64 value; the integer part
// occupies the remaining high bits of a 128-bit magnitude.
const Shift64 = 64

// Shift128 is the fractional bit-width of a U128.128 value; the integer part
// occupies the remaining high bits of a 256-bit magnitude.
const Shift128 = 128

var (
	maxU64_64   = new(big.Int).Lsh(big.NewInt(1), 128) // exclusive upper bound
	maxU128_128 = new(big.Int).Lsh(big.NewInt(1), 256) // exclusive upper bound
)

// U6464 is an unsigned U64.64 fixed-point value: 64 integer bits, 64
// fractional bits, stored as a scaled big.Int so overflow is checkable
// rather than silently wrapping.
type U6464 struct {
	raw *big.Int // value * 2^64
}

// One6464 returns the U64.64 representation of 1.
func One6464() U6464 { return U6464{raw: new(big.Int).Lsh(big.NewInt(1), Shift64)} }

// Zero6464 returns the U64.64 representation of 0.
func Zero6464() U6464 { return U6464{raw: big.NewInt(0)} }

// NewU6464FromInt64 scales a non-negative integer into U64.64.
func NewU6464FromInt64(v int64) (U6464, error) {
	if v < 0 {
		return U6464{}, fperrors.ErrInvalidInput
	}
	raw := new(big.Int).Lsh(big.NewInt(v), Shift64)
	return checked6464(raw)
}

// NewU6464FromRat scales an exact rational into U64.64, rounding toward zero.
func NewU6464FromRat(r *big.Rat) (U6464, error) {
	if r == nil || r.Sign() < 0 {
		return U6464{}, fperrors.ErrInvalidInput
	}
	scaled := new(big.Int).Lsh(r.Num(), Shift64)
	raw := new(big.Int).Quo(scaled, r.Denom())
	return checked6464(raw)
}

func checked6464(raw *big.Int) (U6464, error) {
	if raw.Sign() < 0 || raw.Cmp(maxU64_64) >= 0 {
		return U6464{}, fperrors.ErrMathOverflow
	}
	return U6464{raw: raw}, nil
}

// Raw returns the underlying scaled integer (value * 2^64).
func (a U6464) Raw() *big.Int { return new(big.Int).Set(a.raw) }

// Rat returns the exact rational value of a.
func (a U6464) Rat() *big.Rat {
	return new(big.Rat).SetFrac(a.raw, new(big.Int).Lsh(big.NewInt(1), Shift64))
}

// Float64 returns an approximate float64 view, for logging/metrics only.
func (a U6464) Float64() float64 {
	f, _ := a.Rat().Float64()
	return f
}

// Add returns a+b, or ErrMathOverflow if the result exceeds U64.64 range.
func (a U6464) Add(b U6464) (U6464, error) {
	return checked6464(new(big.Int).Add(a.raw, b.raw))
}

// SaturatingAdd returns a+b clamped to the maximum representable U64.64
// value instead of erroring on overflow.
func (a U6464) SaturatingAdd(b U6464) U6464 {
	sum := new(big.Int).Add(a.raw, b.raw)
	if sum.Cmp(maxU64_64) >= 0 {
		return U6464{raw: new(big.Int).Sub(maxU64_64, big.NewInt(1))}
	}
	return U6464{raw: sum}
}

// Sub returns a-b, or ErrMathUnderflow if b > a.
func (a U6464) Sub(b U6464) (U6464, error) {
	if a.raw.Cmp(b.raw) < 0 {
		return U6464{}, fperrors.ErrMathUnderflow
	}
	return U6464{raw: new(big.Int).Sub(a.raw, b.raw)}, nil
}

// Mul returns a*b, or ErrMathOverflow on range exceedance.
func (a U6464) Mul(b U6464) (U6464, error) {
	product := new(big.Int).Mul(a.raw, b.raw)
	product.Rsh(product, Shift64)
	return checked6464(product)
}

// Div returns a/b at U64.64 precision, or ErrMathOverflow/ErrInvalidInput.
func (a U6464) Div(b U6464) (U6464, error) {
	if b.raw.Sign() == 0 {
		return U6464{}, fperrors.ErrInvalidInput
	}
	numerator := new(big.Int).Lsh(a.raw, Shift64)
	quotient := new(big.Int).Quo(numerator, b.raw)
	return checked6464(quotient)
}

// Cmp compares a to b: -1, 0, or 1.
func (a U6464) Cmp(b U6464) int { return a.raw.Cmp(b.raw) }

// Sqrt returns the square root of a at U64.64 precision, truncated toward
// zero, computed with big.Int.Sqrt, per the teacher's preference for
// checked, deterministic math over floating point.
func (a U6464) Sqrt() (U6464, error) {
	if a.raw.Sign() < 0 {
		return U6464{}, fperrors.ErrInvalidInput
	}
	// sqrt(x * 2^64) = sqrt(x) * 2^32, so scale up by 2^64 before taking the
	// integer square root to preserve 64 fractional bits in the result.
	scaled := new(big.Int).Lsh(a.raw, Shift64)
	root := new(big.Int).Sqrt(scaled)
	return checked6464(root)
}

// MarshalJSON encodes the scaled integer as a decimal string, so the raw
// field survives round-tripping through storage without exposing it.
func (a U6464) MarshalJSON() ([]byte, error) {
	raw := a.raw
	if raw == nil {
		raw = big.NewInt(0)
	}
	return json.Marshal(raw.String())
}

// UnmarshalJSON decodes a value produced by MarshalJSON.
func (a *U6464) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("fixedpoint: invalid U6464 json %q", s)
	}
	a.raw = raw
	return nil
}

// U128128 is an unsigned U128.128 fixed-point value used for products of two
// U64.64 operands where U64.64 alone would lose precision.
type U128128 struct {
	raw *big.Int // value * 2^128
}

// WidenU6464 lifts a U64.64 value into U128.128, preserving exact value.
func WidenU6464(a U6464) U128128 {
	return U128128{raw: new(big.Int).Lsh(a.raw, Shift128-Shift64)}
}

// NarrowToU6464 projects a U128.128 value back to U64.64, truncating
// fractional precision beyond 64 bits, or ErrMathOverflow if it does not fit.
func (a U128128) NarrowToU6464() (U6464, error) {
	raw := new(big.Int).Rsh(a.raw, Shift128-Shift64)
	return checked6464(raw)
}

func checked128128(raw *big.Int) (U128128, error) {
	if raw.Sign() < 0 || raw.Cmp(maxU128_128) >= 0 {
		return U128128{}, fperrors.ErrMathOverflow
	}
	return U128128{raw: raw}, nil
}

// Mul returns a*b for U128.128 operands.
func (a U128128) Mul(b U128128) (U128128, error) {
	product := new(big.Int).Mul(a.raw, b.raw)
	product.Rsh(product, Shift128)
	return checked128128(product)
}

// Add returns a+b for U128.128 operands.
func (a U128128) Add(b U128128) (U128128, error) {
	return checked128128(new(big.Int).Add(a.raw, b.raw))
}

// Rat returns the exact rational value of a.
func (a U128128) Rat() *big.Rat {
	return new(big.Rat).SetFrac(a.raw, new(big.Int).Lsh(big.NewInt(1), Shift128))
}

// MarshalJSON encodes the scaled integer as a decimal string.
func (a U128128) MarshalJSON() ([]byte, error) {
	raw := a.raw
	if raw == nil {
		raw = big.NewInt(0)
	}
	return json.Marshal(raw.String())
}

// UnmarshalJSON decodes a value produced by MarshalJSON.
func (a *U128128) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("fixedpoint: invalid U128128 json %q", s)
	}
	a.raw = raw
	return nil
}
