/*
Package estimate summarizes recently mined blocks into the statistics used by
package predict: the rolling window of per-block minimum gas prices, the
hashpower acceptance curve built from it, and the average block interval.
*/
package estimate

const (
	// DefaultWindowSize is the number of most recent blocks (by block number)
	// retained in a Window.
	DefaultWindowSize = 200

	// DefaultBlockInterval is the nominal block time in seconds, used when the
	// window contains no contiguous pair of blocks.
	DefaultBlockInterval = 15
)

// ObservationDB persists window observations, keyed by block number.
type ObservationDB interface {
	// Get returns all observations with number within [start, end], sorted by
	// increasing number.
	Get(start, end int64) ([]Observation, error)
	Put([]Observation) error
	Delete(start, end int64) error
}
