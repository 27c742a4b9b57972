package ethrpc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

type block struct {
	number int64
	time   int64
	prices []*big.Int
}

// newBlock extracts the effective gas price of each tx. Before London there
// is no base fee, and the price is the tx gas price.
func newBlock(h *types.Header, txs types.Transactions) *block {
	b := &block{
		number: h.Number.Int64(),
		time:   int64(h.Time),
		prices: make([]*big.Int, len(txs)),
	}
	for i, tx := range txs {
		b.prices[i] = effectiveGasPrice(tx, h.BaseFee)
	}
	return b
}

// effectiveGasPrice is min(feeCap, baseFee+tipCap). For legacy txs feeCap and
// tipCap both equal the gas price.
func effectiveGasPrice(tx *types.Transaction, baseFee *big.Int) *big.Int {
	if baseFee == nil {
		return new(big.Int).Set(tx.GasPrice())
	}
	p := new(big.Int).Add(baseFee, tx.GasTipCap())
	if feeCap := tx.GasFeeCap(); p.Cmp(feeCap) > 0 {
		p.Set(feeCap)
	}
	return p
}

// Number returns the block number.
func (b *block) Number() int64 {
	return b.number
}

// Time returns the block timestamp.
func (b *block) Time() int64 {
	return b.time
}

// GasPrices returns the effective tx gas prices in wei. A copy is made each
// time.
func (b *block) GasPrices() []*big.Int {
	prices := make([]*big.Int, len(b.prices))
	copy(prices, b.prices)
	return prices
}
