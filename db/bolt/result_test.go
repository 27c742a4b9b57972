package bolt

import (
	"path/filepath"
	"testing"

	"github.com/boltdb/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	est "github.com/bitcoinfees/ethgas/estimate"
	"github.com/bitcoinfees/ethgas/predict"
)

func TestResultDB(t *testing.T) {
	dbfile := filepath.Join(t.TempDir(), "result.db")

	d, err := LoadResultDB(dbfile)
	require.NoError(t, err)
	var _ predict.ResultDB = d

	// Shouldn't be able to load again
	_, err = LoadResultDB(dbfile)
	assert.Equal(t, bolt.ErrTimeout, err)

	// Nothing stored yet
	rec, table, err := d.GetResult()
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Nil(t, table)

	var obs []est.Observation
	for i, b := range []est.Bucket{10, 20, 20, 50} {
		obs = append(obs, est.Observation{Number: int64(i), Time: int64(15 * i), MinBucket: b, NumTxs: 1})
	}
	tableRef := predict.MakeTable(est.NewCurve(obs))
	tiers := predict.SelectTiers(tableRef, predict.DefaultThresholds)
	tiers.Fast = predict.Tier{}
	tiers.SafeLow = predict.Tier{Bucket: 0, OK: true}
	recRef := predict.NewRecommendation(tiers, 15, 3)

	require.NoError(t, d.PutResult(recRef, tableRef))

	// Close and reopen
	require.NoError(t, d.Close())
	d, err = LoadResultDB(dbfile)
	require.NoError(t, err)
	defer d.Close()

	rec, table, err = d.GetResult()
	require.NoError(t, err)
	assert.Equal(t, recRef, rec)
	assert.Nil(t, rec.Fast)
	require.NotNil(t, rec.SafeLow)
	assert.Equal(t, 0.0, *rec.SafeLow)
	assert.Equal(t, tableRef, table)
}
