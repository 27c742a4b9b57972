package estimate

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
)

// Observation summarizes one mined block.
type Observation struct {
	Number int64 `json:"number"`
	Time   int64 `json:"time"` // Block timestamp, Unix time in seconds

	// Lowest bucketed gas price included in the block. Only meaningful if
	// NumTxs > 0.
	MinBucket Bucket `json:"minbucket"`
	NumTxs    int    `json:"numtxs"`
}

// NewObservation buckets the gas prices of a block's transactions and records
// the minimum.
func NewObservation(number, time int64, prices []*big.Int) Observation {
	o := Observation{Number: number, Time: time, NumTxs: len(prices)}
	for i, p := range prices {
		if b := BucketOf(p); i == 0 || b < o.MinBucket {
			o.MinBucket = b
		}
	}
	return o
}

// Accepted returns the block's minimum accepted bucket. ok is false if the
// block had no transactions, in which case it carries no price signal.
func (o Observation) Accepted() (b Bucket, ok bool) {
	return o.MinBucket, o.NumTxs > 0
}

func (o Observation) String() string {
	if b, ok := o.Accepted(); ok {
		return fmt.Sprintf("Observation{number: %d, time: %d, txs: %d, min: %s}",
			o.Number, o.Time, o.NumTxs, b)
	}
	return fmt.Sprintf("Observation{number: %d, time: %d, txs: 0}", o.Number, o.Time)
}

// Window retains the observations of the most recent blocks. With L the highest
// block number put so far, the window contains exactly the observations with
// number in (L-size, L]. Older observations are evicted as newer blocks
// arrive; putting a number again replaces the previous observation.
//
// Observations are stored in a ring indexed by block number, so memory is
// bounded by the window size.
type Window struct {
	slots  []Observation
	filled []bool
	latest int64
	empty  bool
	mux    sync.RWMutex
}

func NewWindow(size int) *Window {
	if size <= 0 {
		panic("window size must be positive")
	}
	return &Window{
		slots:  make([]Observation, size),
		filled: make([]bool, size),
		empty:  true,
	}
}

// Size returns the window length in blocks.
func (w *Window) Size() int {
	return len(w.slots)
}

// Put adds o to the window, evicting everything that falls out of range. It
// returns false, and does nothing, if o is already too old to be retained.
func (w *Window) Put(o Observation) bool {
	w.mux.Lock()
	defer w.mux.Unlock()
	size := int64(len(w.slots))
	if !w.empty && o.Number <= w.latest-size {
		return false
	}
	if w.empty || o.Number > w.latest {
		w.latest = o.Number
		w.empty = false
	}
	i := w.index(o.Number)
	w.slots[i] = o
	w.filled[i] = true
	return true
}

// Latest returns the highest block number put so far.
func (w *Window) Latest() (number int64, ok bool) {
	w.mux.RLock()
	defer w.mux.RUnlock()
	return w.latest, !w.empty
}

// Get returns the observation for a block number, if it is in the window.
func (w *Window) Get(number int64) (Observation, bool) {
	w.mux.RLock()
	defer w.mux.RUnlock()
	i := w.index(number)
	if w.valid(i) && w.slots[i].Number == number {
		return w.slots[i], true
	}
	return Observation{}, false
}

// Len returns the number of observations in the window.
func (w *Window) Len() int {
	w.mux.RLock()
	defer w.mux.RUnlock()
	var n int
	for i := range w.slots {
		if w.valid(i) {
			n++
		}
	}
	return n
}

// Observations returns a copy of the window contents, sorted by increasing
// block number.
func (w *Window) Observations() []Observation {
	w.mux.RLock()
	defer w.mux.RUnlock()
	obs := make([]Observation, 0, len(w.slots))
	for i, o := range w.slots {
		if w.valid(i) {
			obs = append(obs, o)
		}
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].Number < obs[j].Number })
	return obs
}

func (w *Window) index(number int64) int {
	size := int64(len(w.slots))
	return int((number%size + size) % size)
}

// valid reports whether slot i holds an observation inside the window range.
// A slot can hold a stale observation if the block that would have replaced
// it was never put.
func (w *Window) valid(i int) bool {
	if w.empty || !w.filled[i] {
		return false
	}
	n := w.slots[i].Number
	return n > w.latest-int64(len(w.slots)) && n <= w.latest
}
