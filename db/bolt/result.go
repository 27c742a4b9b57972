package bolt

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"

	"github.com/bitcoinfees/ethgas/predict"
)

var (
	recommendationKey = []byte("recommendation")
	tableKey          = []byte("table")
)

type resultdb struct {
	db           *bolt.DB
	resultBucket []byte
}

func LoadResultDB(dbfile string) (*resultdb, error) {
	db, err := bolt.Open(dbfile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	d := &resultdb{
		db:           db,
		resultBucket: []byte("result"),
	}
	err = d.db.Update(func(tr *bolt.Tx) error {
		_, err := tr.CreateBucketIfNotExists(d.resultBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *resultdb) GetResult() (rec *predict.Recommendation, table predict.Table, err error) {
	err = d.db.View(func(tr *bolt.Tx) error {
		bkt := tr.Bucket(d.resultBucket)
		v := bkt.Get(recommendationKey)
		if v == nil {
			return nil
		}
		// Stored as published, since gob would drop tiers pointing at 0
		rec = new(predict.Recommendation)
		if err := json.Unmarshal(v, rec); err != nil {
			return err
		}
		if v := bkt.Get(tableKey); v != nil {
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&table); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return
}

func (d *resultdb) PutResult(rec *predict.Recommendation, table predict.Table) error {
	err := d.db.Update(func(tr *bolt.Tx) error {
		bkt := tr.Bucket(d.resultBucket)
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := bkt.Put(recommendationKey, b); err != nil {
			return err
		}

		buf := new(bytes.Buffer)
		if err := gob.NewEncoder(buf).Encode(table); err != nil {
			return err
		}
		return bkt.Put(tableKey, buf.Bytes())
	})
	return err
}

func (d *resultdb) Close() error {
	return d.db.Close()
}
