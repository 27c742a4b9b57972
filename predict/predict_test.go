package predict

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	est "github.com/bitcoinfees/ethgas/estimate"
)

func curveFromBuckets(buckets ...est.Bucket) *est.Curve {
	obs := make([]est.Observation, len(buckets))
	for i, b := range buckets {
		obs[i] = est.Observation{Number: int64(i), MinBucket: b, NumTxs: 1}
	}
	return est.NewCurve(obs)
}

func TestGrid(t *testing.T) {
	require.Len(t, Grid, 110)
	assert.Equal(t, est.Bucket(0), Grid[0])
	assert.Equal(t, est.Bucket(9), Grid[9])
	assert.Equal(t, est.Bucket(10), Grid[10])
	assert.Equal(t, est.Bucket(20), Grid[11])
	assert.Equal(t, est.Bucket(1000), Grid[len(Grid)-1])
	for i := 1; i < len(Grid); i++ {
		require.Less(t, Grid[i-1], Grid[i])
	}
}

func TestWorkedScenario(t *testing.T) {
	c := curveFromBuckets(10, 10, 20, 30, 20, 10, 40, 20, 10, 20)
	table := MakeTable(c)
	require.Len(t, table, len(Grid))

	accepting := make(map[est.Bucket]int)
	for _, r := range table {
		accepting[r.GasPrice] = r.Accepting
	}
	assert.Equal(t, 0, accepting[9])
	assert.Equal(t, 40, accepting[10])
	assert.Equal(t, 80, accepting[20])
	assert.Equal(t, 90, accepting[30])
	assert.Equal(t, 100, accepting[40])
	assert.Equal(t, 100, accepting[1000])

	tiers := SelectTiers(table, DefaultThresholds)
	assert.Equal(t, Tier{Bucket: 10, OK: true}, tiers.SafeLow)
	assert.Equal(t, Tier{Bucket: 20, OK: true}, tiers.Standard)
	assert.Equal(t, Tier{Bucket: 30, OK: true}, tiers.Fast)
	assert.Equal(t, Tier{Bucket: 40, OK: true}, tiers.Fastest)

	rec := NewRecommendation(tiers, 14.5, 5000000)
	require.NoError(t, rec.Err())
	assert.Equal(t, 1.0, *rec.SafeLow)
	assert.Equal(t, 2.0, *rec.Standard)
	assert.Equal(t, 3.0, *rec.Fast)
	assert.Equal(t, 4.0, *rec.Fastest)
	assert.Equal(t, 14.5, rec.BlockTime)
	assert.Equal(t, int64(5000000), rec.BlockNum)

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"safeLow":1,"standard":2,"fast":3,"fastest":4,"block_time":14.5,"blockNum":5000000}`,
		string(b))
}

func TestTableJSON(t *testing.T) {
	table := MakeTable(curveFromBuckets(5, 10))
	b, err := json.Marshal(table)
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &rows))
	require.Len(t, rows, len(Grid))
	assert.Equal(t, 0.5, rows[5]["gasprice"])
	assert.Equal(t, 50.0, rows[5]["hashpower_accepting"])
	assert.Equal(t, 100.0, rows[len(rows)-1]["gasprice"])

	var decoded Table
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, table, decoded)
}

func TestTiersUnavailable(t *testing.T) {
	// Empty window: nothing is accepted anywhere on the grid
	rec := NewRecommendation(SelectTiers(MakeTable(est.NewCurve(nil)), DefaultThresholds), 15, 1)
	assert.Equal(t, []string{"safeLow", "standard", "fast", "fastest"}, rec.Unavailable())
	assert.True(t, errors.Is(rec.Err(), ErrTierUnavailable))

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"safeLow":null,"standard":null,"fast":null,"fastest":null,"block_time":15,"blockNum":1}`,
		string(b))

	// All blocks priced above the grid
	tiers := SelectTiers(MakeTable(curveFromBuckets(2000, 3000)), DefaultThresholds)
	assert.False(t, tiers.SafeLow.OK)
	assert.False(t, tiers.Fastest.OK)

	// 80% of blocks within the grid: fast is unavailable
	tiers = SelectTiers(MakeTable(curveFromBuckets(500, 500, 500, 500, 500, 500, 500, 500, 2000, 2000)),
		DefaultThresholds)
	assert.Equal(t, Tier{Bucket: 500, OK: true}, tiers.SafeLow)
	assert.Equal(t, Tier{Bucket: 500, OK: true}, tiers.Standard)
	assert.False(t, tiers.Fast.OK)
	assert.Equal(t, Tier{Bucket: 500, OK: true}, tiers.Fastest)

	rec = NewRecommendation(tiers, 15, 2)
	assert.Equal(t, []string{"fast"}, rec.Unavailable())
	assert.Contains(t, rec.String(), "fast: n/a")
}

func TestTierOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(200)
		buckets := make([]est.Bucket, n)
		for i := range buckets {
			buckets[i] = est.Bucket(rng.Intn(1000))
		}
		tiers := SelectTiers(MakeTable(curveFromBuckets(buckets...)), DefaultThresholds)
		require.True(t, tiers.SafeLow.OK && tiers.Standard.OK && tiers.Fast.OK && tiers.Fastest.OK)
		require.LessOrEqual(t, tiers.SafeLow.Bucket, tiers.Standard.Bucket)
		require.LessOrEqual(t, tiers.Standard.Bucket, tiers.Fast.Bucket)
		require.LessOrEqual(t, tiers.Fast.Bucket, tiers.Fastest.Bucket)
	}
}

func TestIdempotent(t *testing.T) {
	c := curveFromBuckets(3, 3, 8, 70, 120, 120)
	t1, t2 := MakeTable(c), MakeTable(c)
	assert.Equal(t, t1, t2)
	assert.Equal(t, SelectTiers(t1, DefaultThresholds), SelectTiers(t2, DefaultThresholds))
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds.Validate())
	assert.Error(t, Thresholds{SafeLow: 0, Standard: 60, Fast: 90}.Validate())
	assert.Error(t, Thresholds{SafeLow: 35, Standard: 60, Fast: 101}.Validate())
	assert.Error(t, Thresholds{SafeLow: 70, Standard: 60, Fast: 90}.Validate())
}
