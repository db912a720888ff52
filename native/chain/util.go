package chain

import (
	"math/big"

	"versemarket/core/fixedpoint"
)

func bpsToFixed(bps int) fixedpoint.U6464 {
	v, err := fixedpoint.NewU6464FromRat(big.NewRat(int64(bps), 10000))
	if err != nil {
		return fixedpoint.Zero6464()
	}
	return v
}
