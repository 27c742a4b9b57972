package collect

import (
	"fmt"

	"go.uber.org/zap"

	est "github.com/bitcoinfees/ethgas/estimate"
)

// processBlock summarizes a fetched block. It fails if the source returned a
// different block from the one requested.
func processBlock(number int64, b Block, logger *zap.Logger) (est.Observation, error) {
	if b == nil {
		return est.Observation{}, fmt.Errorf("nil block")
	}
	if b.Number() != number {
		return est.Observation{}, fmt.Errorf("got block %d, requested %d", b.Number(), number)
	}
	o := est.NewObservation(b.Number(), b.Time(), b.GasPrices())
	if minPrice, ok := o.Accepted(); ok {
		logger.Debug("Block processed",
			zap.Int64("number", o.Number),
			zap.Int("txs", o.NumTxs),
			zap.Stringer("minprice", minPrice))
	} else {
		logger.Debug("Block processed, no txs", zap.Int64("number", o.Number))
	}
	return o, nil
}
