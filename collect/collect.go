/*
Package collect polls the block source for newly mined blocks and summarizes
them into the observations used by package estimate.
*/
package collect

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	est "github.com/bitcoinfees/ethgas/estimate"
)

type Config struct {
	PollPeriod int   `yaml:"pollperiod" json:"pollperiod"` // Seconds between head checks
	ConfirmLag int64 `yaml:"confirmlag" json:"confirmlag"` // Blocks a block must be buried by before it is processed
	Prefetch   int   `yaml:"prefetch" json:"prefetch"`     // Max concurrent block fetches
	CacheSize  int   `yaml:"cachesize" json:"cachesize"`   // Fetched blocks kept for retries

	GetHead  HeadGetter  `yaml:"-" json:"-"`
	GetBlock BlockGetter `yaml:"-" json:"-"`
	Logger   *zap.Logger `yaml:"-" json:"-"`
}

// NOTE: B, E channels must be serviced.
type Collector struct {
	B <-chan est.Observation
	E <-chan error

	next int64
	head int64

	cache  *lru.Cache
	pool   *ants.Pool
	cfg    Config
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mux    sync.RWMutex
}

func NewCollector(cfg Config) (*Collector, error) {
	if cfg.PollPeriod <= 0 {
		return nil, fmt.Errorf("pollperiod must be positive")
	}
	if cfg.ConfirmLag < 0 {
		return nil, fmt.Errorf("confirmlag must be non-negative")
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(cfg.Prefetch, ants.WithExpiryDuration(time.Minute))
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Collector{
		cache:  cache,
		pool:   pool,
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	return c, nil
}

// Ready returns the number of the highest block that is buried deep enough to
// be processed.
func (c *Collector) Ready(ctx context.Context) (int64, error) {
	head, err := c.cfg.GetHead(ctx)
	if err != nil {
		return 0, &FetchError{Op: opGetHead, Err: err}
	}
	c.setHead(head)
	return head - c.cfg.ConfirmLag, nil
}

// Head returns the last seen chain head.
func (c *Collector) Head() int64 {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.head
}

// Next returns the number of the next block to be sent on B.
func (c *Collector) Next() int64 {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.next
}

func (c *Collector) setHead(head int64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.head = head
}

func (c *Collector) setNext(next int64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.next = next
}

// FetchRange fetches and processes blocks [from, to] concurrently. The
// observations are returned in block order. If a fetch fails, the observations
// before the failed block are returned along with the error.
func (c *Collector) FetchRange(ctx context.Context, from, to int64) ([]est.Observation, error) {
	if to < from {
		return nil, nil
	}
	n := int(to - from + 1)
	obs := make([]est.Observation, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		number := from + int64(i)
		if v, ok := c.cache.Get(number); ok {
			obs[i] = v.(est.Observation)
			continue
		}
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			obs[i], errs[i] = c.fetch(ctx, number)
		}
		if err := c.pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = &FetchError{Op: opGetBlock, Number: number, Err: err}
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return obs[:i], err
		}
	}
	return obs, nil
}

func (c *Collector) fetch(ctx context.Context, number int64) (est.Observation, error) {
	b, err := c.cfg.GetBlock(ctx, number)
	if err != nil {
		return est.Observation{}, &FetchError{Op: opGetBlock, Number: number, Err: err}
	}
	o, err := processBlock(number, b, c.logger)
	if err != nil {
		return est.Observation{}, &FetchError{Op: opGetBlock, Number: number, Err: err}
	}
	c.cache.Add(number, o)
	return o, nil
}

// Run starts polling for blocks, beginning at block number next.
func (c *Collector) Run(next int64) error {
	if c.ctx.Err() != nil {
		return fmt.Errorf("collector stopped")
	}
	c.setNext(next)
	bc := make(chan est.Observation)
	ec := make(chan error)
	c.B = bc
	c.E = ec
	go c.run(bc, ec)
	return nil
}

func (c *Collector) Stop() {
	if err := c.closeDone(); err != nil {
		return
	}
	// Block until the err chan is closed when run terminates.
	if c.E != nil {
		for range c.E {
		}
	}
	c.pool.Release()
}

func (c *Collector) run(bc chan<- est.Observation, ec chan<- error) {
	defer close(ec)
	defer close(bc)

	ticker := time.NewTicker(time.Duration(c.cfg.PollPeriod) * time.Second)
	defer ticker.Stop()

	// Process blocks in batches, so that a long backlog is prefetched a few
	// blocks at a time.
	batch := int64(4 * c.cfg.Prefetch)

	for {
		select {
		case <-ticker.C:
		case <-c.ctx.Done():
			return
		}

		ready, err := c.Ready(c.ctx)
		if err != nil {
			select {
			case ec <- err:
				continue
			case <-c.ctx.Done():
				return
			}
		}

		next := c.Next()
		if ready < next {
			continue
		}
		c.logger.Debug("New blocks ready", zap.Int64("from", next), zap.Int64("to", ready))

		for next <= ready {
			to := next + batch - 1
			if to > ready {
				to = ready
			}
			obs, err := c.FetchRange(c.ctx, next, to)
			for _, o := range obs {
				next++
				c.setNext(next)
				select {
				case bc <- o:
				case <-c.ctx.Done():
					return
				}
			}
			if err != nil {
				// Retry from the failed block on the next tick.
				select {
				case ec <- err:
				case <-c.ctx.Done():
					return
				}
				break
			}
		}
	}
}

func (c *Collector) closeDone() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.ctx.Err() != nil {
		return fmt.Errorf("collector already stopped")
	}
	c.cancel()
	return nil
}
