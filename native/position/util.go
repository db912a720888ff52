package position

import (
	"math/big"

	"versemarket/core/fixedpoint"
)

func bigRat(v int64) *big.Rat {
	return new(big.Rat).SetInt64(v)
}

func bpsToFixed(bps uint32) fixedpoint.U6464 {
	r := big.NewRat(int64(bps), 10000)
	v, err := fixedpoint.NewU6464FromRat(r)
	if err != nil {
		return fixedpoint.Zero6464()
	}
	return v
}
