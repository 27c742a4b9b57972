// Package predict turns the hashpower acceptance curve into a gas price
// prediction table, and selects the recommended price tiers from it.
package predict

import (
	"errors"
	"fmt"
	"strings"

	est "github.com/bitcoinfees/ethgas/estimate"
)

var ErrTierUnavailable = errors.New("no gas price meets the acceptance threshold")

// Thresholds are the minimum percentages of recent blocks that must accept a
// tier's price.
type Thresholds struct {
	SafeLow  float64 `yaml:"safelow" json:"safelow"`
	Standard float64 `yaml:"standard" json:"standard"`
	Fast     float64 `yaml:"fast" json:"fast"`
}

var DefaultThresholds = Thresholds{SafeLow: 35, Standard: 60, Fast: 90}

func (t Thresholds) Validate() error {
	for _, v := range []float64{t.SafeLow, t.Standard, t.Fast} {
		if v <= 0 || v > 100 {
			return fmt.Errorf("threshold %v not in (0, 100]", v)
		}
	}
	if t.SafeLow > t.Standard || t.Standard > t.Fast {
		return fmt.Errorf("thresholds must be non-decreasing: %+v", t)
	}
	return nil
}

// Recommendation is the published set of gas price tiers, in gwei. A nil tier
// means that no price in the prediction table met its threshold.
type Recommendation struct {
	SafeLow   *float64 `json:"safeLow"`
	Standard  *float64 `json:"standard"`
	Fast      *float64 `json:"fast"`
	Fastest   *float64 `json:"fastest"`
	BlockTime float64  `json:"block_time"` // Average block interval in seconds
	BlockNum  int64    `json:"blockNum"`
}

// NewRecommendation converts selected tiers to display units.
func NewRecommendation(tiers Tiers, blockTime float64, blockNum int64) *Recommendation {
	return &Recommendation{
		SafeLow:   tiers.SafeLow.gwei(),
		Standard:  tiers.Standard.gwei(),
		Fast:      tiers.Fast.gwei(),
		Fastest:   tiers.Fastest.gwei(),
		BlockTime: blockTime,
		BlockNum:  blockNum,
	}
}

// Unavailable returns the names of the tiers that could not be determined.
func (r *Recommendation) Unavailable() []string {
	var names []string
	for _, t := range []struct {
		name  string
		price *float64
	}{
		{"safeLow", r.SafeLow},
		{"standard", r.Standard},
		{"fast", r.Fast},
		{"fastest", r.Fastest},
	} {
		if t.price == nil {
			names = append(names, t.name)
		}
	}
	return names
}

// Err returns an error wrapping ErrTierUnavailable if any tier is missing.
func (r *Recommendation) Err() error {
	if names := r.Unavailable(); len(names) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(names, ", "), ErrTierUnavailable)
	}
	return nil
}

func (r *Recommendation) String() string {
	f := func(p *float64) string {
		if p == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.1f", *p)
	}
	return fmt.Sprintf("Recommendation{block: %d, safeLow: %s, standard: %s, fast: %s, fastest: %s, blocktime: %.2fs}",
		r.BlockNum, f(r.SafeLow), f(r.Standard), f(r.Fast), f(r.Fastest), r.BlockTime)
}

// Tier is a selected grid price. OK is false if the tier is unavailable.
type Tier struct {
	Bucket est.Bucket
	OK     bool
}

func (t Tier) gwei() *float64 {
	if !t.OK {
		return nil
	}
	g := t.Bucket.Gwei()
	return &g
}

// ResultDB persists the most recent result across restarts.
type ResultDB interface {
	// GetResult returns a nil Recommendation if nothing has been stored.
	GetResult() (*Recommendation, Table, error)
	PutResult(*Recommendation, Table) error
}
