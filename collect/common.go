package collect

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

type Block interface {
	Number() int64
	Time() int64 // Block timestamp, Unix time in seconds

	// Effective gas prices (wei) paid by the block's transactions.
	GasPrices() []*big.Int
}

type HeadGetter func(ctx context.Context) (int64, error)
type BlockGetter func(ctx context.Context, number int64) (Block, error)

// FetchError is a failure to get data from the block source. It is
// transient: the collector retries on the next poll.
type FetchError struct {
	Op     string // "gethead" or "getblock"
	Number int64  // Block number, for "getblock"
	Err    error
}

func (e *FetchError) Error() string {
	if e.Op == opGetBlock {
		return fmt.Sprintf("%s %d: %v", e.Op, e.Number, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a block source failure that may succeed
// if retried.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

const (
	opGetHead  = "gethead"
	opGetBlock = "getblock"
)
