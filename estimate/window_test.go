package estimate

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gwei(f float64) *big.Int {
	v, _ := new(big.Float).Mul(big.NewFloat(f), big.NewFloat(1e9)).Int(nil)
	return v
}

func TestNewObservation(t *testing.T) {
	o := NewObservation(100, 1500000000, []*big.Int{gwei(21), gwei(4.2), gwei(0.55), gwei(30)})
	b, ok := o.Accepted()
	require.True(t, ok)
	assert.Equal(t, Bucket(5), b)
	assert.Equal(t, 4, o.NumTxs)
	assert.Equal(t, int64(100), o.Number)
	assert.Equal(t, int64(1500000000), o.Time)

	empty := NewObservation(101, 1500000015, nil)
	_, ok = empty.Accepted()
	assert.False(t, ok)
	assert.Equal(t, int64(1500000015), empty.Time)
}

func TestWindowInvariant(t *testing.T) {
	const size = 200
	w := NewWindow(size)
	_, ok := w.Latest()
	require.False(t, ok)
	require.Equal(t, 0, w.Len())

	for n := int64(1000); n < 1500; n++ {
		require.True(t, w.Put(Observation{Number: n, Time: n * 15, NumTxs: 1}))

		obs := w.Observations()
		want := int(n - 1000 + 1)
		if want > size {
			want = size
		}
		require.Len(t, obs, want)
		require.Equal(t, want, w.Len())
		for i, o := range obs {
			require.Greater(t, o.Number, n-size)
			require.LessOrEqual(t, o.Number, n)
			if i > 0 {
				require.Equal(t, obs[i-1].Number+1, o.Number)
			}
		}
		latest, ok := w.Latest()
		require.True(t, ok)
		require.Equal(t, n, latest)
	}

	// Block N+1 evicts N-199
	_, ok = w.Get(1499 - 199)
	require.True(t, ok)
	w.Put(Observation{Number: 1500})
	_, ok = w.Get(1499 - 199)
	assert.False(t, ok)
}

func TestWindowReplaceAndReject(t *testing.T) {
	w := NewWindow(10)
	w.Put(Observation{Number: 50, MinBucket: 10, NumTxs: 1})
	w.Put(Observation{Number: 50, MinBucket: 20, NumTxs: 1})
	require.Equal(t, 1, w.Len())
	o, ok := w.Get(50)
	require.True(t, ok)
	assert.Equal(t, Bucket(20), o.MinBucket)

	// Older blocks within range are accepted, out of range are rejected
	assert.True(t, w.Put(Observation{Number: 41}))
	assert.False(t, w.Put(Observation{Number: 40}))
	assert.Equal(t, 2, w.Len())
	latest, _ := w.Latest()
	assert.Equal(t, int64(50), latest)
}

func TestWindowGap(t *testing.T) {
	w := NewWindow(10)
	for n := int64(1); n <= 10; n++ {
		w.Put(Observation{Number: n})
	}
	// Jump ahead; only blocks in (15-10, 15] survive
	w.Put(Observation{Number: 15})
	obs := w.Observations()
	numbers := make([]int64, len(obs))
	for i, o := range obs {
		numbers[i] = o.Number
	}
	assert.Equal(t, []int64{6, 7, 8, 9, 10, 15}, numbers)

	w.Put(Observation{Number: 100})
	assert.Equal(t, 1, w.Len())
}

func TestWindowConcurrentRead(t *testing.T) {
	w := NewWindow(DefaultWindowSize)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := int64(0); n < 1000; n++ {
			w.Put(Observation{Number: n})
		}
	}()
	for i := 0; i < 100; i++ {
		assert.LessOrEqual(t, len(w.Observations()), DefaultWindowSize)
	}
	wg.Wait()
	assert.Equal(t, DefaultWindowSize, w.Len())
}
