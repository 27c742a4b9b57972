package estimate

import (
	"math"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/params"
)

// Bucket is a coarsened gas price in units of 0.1 gwei.
type Bucket int64

var (
	tenthGwei = big.NewInt(params.GWei / 10)
	maxBucket = Bucket(math.MaxInt64 / 10 * 10)
)

// BucketOf rounds a gas price in wei down to its bucket. Prices below 1 gwei
// keep 0.1 gwei resolution; prices at or above 1 gwei are floored to a whole
// gwei. Anything below 0.1 gwei (including nil and negative values) is bucket 0.
func BucketOf(wei *big.Int) Bucket {
	if wei == nil || wei.Sign() <= 0 {
		return 0
	}
	scaled := new(big.Int).Quo(wei, tenthGwei)
	if !scaled.IsInt64() {
		return maxBucket
	}
	b := Bucket(scaled.Int64())
	if b < 10 {
		return b
	}
	return b / 10 * 10
}

// Gwei returns the bucket in display units.
func (b Bucket) Gwei() float64 {
	return float64(b) / 10
}

func (b Bucket) String() string {
	return strconv.FormatFloat(b.Gwei(), 'f', 1, 64) + " gwei"
}
