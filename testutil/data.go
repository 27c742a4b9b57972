package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"sync"
)

var ErrUnknownBlock = errors.New("block data not available")

type Block struct {
	Number_ int64      `json:"number"`
	Time_   int64      `json:"timestamp"`
	Prices  []*big.Int `json:"gasprices"`
}

// Number returns the block number.
func (b *Block) Number() int64 {
	return b.Number_
}

// Time returns the block timestamp.
func (b *Block) Time() int64 {
	return b.Time_
}

// GasPrices returns the effective gas prices of the block txs. A copy is made
// each time.
func (b *Block) GasPrices() []*big.Int {
	prices := make([]*big.Int, len(b.Prices))
	copy(prices, b.Prices)
	return prices
}

// Chain is an in-memory block source. Failures can be injected per block
// number, or for head queries.
type Chain struct {
	blocks   map[int64]*Block
	head     int64
	headErr  error
	blockErr map[int64]error
	calls    map[int64]int

	mux sync.Mutex
}

func NewChain() *Chain {
	return &Chain{
		blocks:   make(map[int64]*Block),
		blockErr: make(map[int64]error),
		calls:    make(map[int64]int),
	}
}

// Add adds blocks to the chain, advancing the head if necessary.
func (c *Chain) Add(blocks ...*Block) {
	c.mux.Lock()
	defer c.mux.Unlock()
	for _, b := range blocks {
		c.blocks[b.Number_] = b
		if b.Number_ > c.head {
			c.head = b.Number_
		}
	}
}

// Extend mines n more blocks on top of the head, interval seconds apart. Each
// block's prices are given by prices(number).
func (c *Chain) Extend(n int, interval int64, prices func(number int64) []*big.Int) {
	c.mux.Lock()
	head := c.head
	var t int64 = 1500000000
	if b := c.blocks[head]; b != nil {
		t = b.Time_
	}
	c.mux.Unlock()

	for i := int64(1); i <= int64(n); i++ {
		c.Add(&Block{Number_: head + i, Time_: t + i*interval, Prices: prices(head + i)})
	}
}

func (c *Chain) SetHead(h int64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.head = h
}

func (c *Chain) FailHead(err error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.headErr = err
}

// FailBlock makes requests for the given block number return err. A nil err
// clears the failure.
func (c *Chain) FailBlock(number int64, err error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if err == nil {
		delete(c.blockErr, number)
		return
	}
	c.blockErr[number] = err
}

// Calls returns the number of times the given block was requested.
func (c *Chain) Calls(number int64) int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.calls[number]
}

func (c *Chain) Head(ctx context.Context) (int64, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.headErr != nil {
		return 0, c.headErr
	}
	return c.head, nil
}

func (c *Chain) Block(ctx context.Context, number int64) (*Block, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.calls[number]++
	if err := c.blockErr[number]; err != nil {
		return nil, err
	}
	b := c.blocks[number]
	if b == nil {
		return nil, fmt.Errorf("block %d: %w", number, ErrUnknownBlock)
	}
	return b, nil
}

// RandomPrices returns a price generator for Chain.Extend. Each block gets up
// to maxTxs txs priced uniformly between lo and hi gwei; some blocks are empty.
func RandomPrices(rng *rand.Rand, maxTxs int, lo, hi float64) func(int64) []*big.Int {
	var mux sync.Mutex
	return func(int64) []*big.Int {
		mux.Lock()
		defer mux.Unlock()
		n := rng.Intn(maxTxs + 1)
		prices := make([]*big.Int, n)
		for i := range prices {
			prices[i] = Gwei(lo + rng.Float64()*(hi-lo))
		}
		return prices
	}
}

// FixedPrices returns a price generator giving every block the same txs.
func FixedPrices(gwei ...float64) func(int64) []*big.Int {
	return func(int64) []*big.Int {
		prices := make([]*big.Int, len(gwei))
		for i, g := range gwei {
			prices[i] = Gwei(g)
		}
		return prices
	}
}
