package bolt

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/boltdb/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	est "github.com/bitcoinfees/ethgas/estimate"
)

func TestObservationDB(t *testing.T) {
	dbfile := filepath.Join(t.TempDir(), "observations.db")

	obsRef := []est.Observation{
		{Number: 100, Time: 1500000000, MinBucket: 200, NumTxs: 130},
		{Number: 101, Time: 1500000014, MinBucket: 0, NumTxs: 0},
		{Number: 102, Time: 1500000030, MinBucket: 5, NumTxs: 1},
		{Number: 104, Time: 1500000061, MinBucket: 1000, NumTxs: 42},
	}

	d, err := LoadObservationDB(dbfile)
	require.NoError(t, err)
	var _ est.ObservationDB = d

	// Shouldn't be able to load again
	_, err = LoadObservationDB(dbfile)
	assert.Equal(t, bolt.ErrTimeout, err)

	// Close and reopen
	require.NoError(t, d.Close())
	d, err = LoadObservationDB(dbfile)
	require.NoError(t, err)
	defer d.Close()

	// Put and Get
	require.NoError(t, d.Put(obsRef))
	obs, err := d.Get(100, 104)
	require.NoError(t, err)
	assert.Equal(t, obsRef, obs)

	// Get a subrange
	obs, err = d.Get(101, 103)
	require.NoError(t, err)
	assert.Equal(t, obsRef[1:3], obs)

	obs, err = d.Get(-10, 100)
	require.NoError(t, err)
	assert.Equal(t, obsRef[:1], obs)

	obs, err = d.Get(105, 200)
	require.NoError(t, err)
	assert.Empty(t, obs)

	obs, err = d.Get(104, 100)
	require.NoError(t, err)
	assert.Empty(t, obs)

	// Overwrite
	o := est.Observation{Number: 102, Time: 1500000030, MinBucket: 60, NumTxs: 7}
	require.NoError(t, d.Put([]est.Observation{o}))
	obs, err = d.Get(102, 102)
	require.NoError(t, err)
	assert.Equal(t, []est.Observation{o}, obs)

	// Delete
	require.NoError(t, d.Delete(0, 101))
	obs, err = d.Get(0, 1000)
	require.NoError(t, err)
	assert.Equal(t, []est.Observation{o, obsRef[3]}, obs)

	require.NoError(t, d.Delete(-5, -1))
	obs, err = d.Get(0, 1000)
	require.NoError(t, err)
	assert.Len(t, obs, 2)

	// Persisted across reopen
	require.NoError(t, d.Close())
	d, err = LoadObservationDB(dbfile)
	require.NoError(t, err)
	obs, err = d.Get(0, 1000)
	require.NoError(t, err)
	assert.Equal(t, []est.Observation{o, obsRef[3]}, obs)
}

func TestItob(t *testing.T) {
	for _, v := range []int64{0, 1, 255, 256, 17000000} {
		assert.Equal(t, v, btoi(itob(v)))
	}
	// Keys sort by number
	assert.Equal(t, -1, bytes.Compare(itob(255), itob(256)))
}
