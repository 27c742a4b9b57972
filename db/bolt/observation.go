package bolt

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/boltdb/bolt"

	est "github.com/bitcoinfees/ethgas/estimate"
)

// obsRecord is the fixed-size on-disk form of est.Observation.
type obsRecord struct {
	Time      int64
	MinBucket int64
	NumTxs    int64
}

type observationdb struct {
	db        *bolt.DB
	byteOrder binary.ByteOrder
	obsBucket []byte
}

func LoadObservationDB(dbfile string) (*observationdb, error) {
	db, err := bolt.Open(dbfile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	d := &observationdb{
		db:        db,
		byteOrder: binary.BigEndian,
		obsBucket: []byte("observations"),
	}
	err = d.db.Update(func(tr *bolt.Tx) error {
		_, err = tr.CreateBucketIfNotExists(d.obsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *observationdb) Get(start, end int64) ([]est.Observation, error) {
	var obs []est.Observation
	if start < 0 {
		start = 0
	}
	if end < start {
		return nil, nil
	}
	err := d.db.View(func(tr *bolt.Tx) error {
		c := tr.Bucket(d.obsBucket).Cursor()
		startkey, endkey := itob(start), itob(end)
		for k, v := c.Seek(startkey); k != nil && bytes.Compare(k, endkey) <= 0; k, v = c.Next() {
			var r obsRecord
			if err := binary.Read(bytes.NewReader(v), d.byteOrder, &r); err != nil {
				return err
			}
			obs = append(obs, est.Observation{
				Number:    btoi(k),
				Time:      r.Time,
				MinBucket: est.Bucket(r.MinBucket),
				NumTxs:    int(r.NumTxs),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obs, nil
}

func (d *observationdb) Put(obs []est.Observation) error {
	err := d.db.Update(func(tr *bolt.Tx) error {
		bkt := tr.Bucket(d.obsBucket)
		for _, o := range obs {
			r := obsRecord{Time: o.Time, MinBucket: int64(o.MinBucket), NumTxs: int64(o.NumTxs)}
			value := new(bytes.Buffer)
			if err := binary.Write(value, d.byteOrder, r); err != nil {
				return err
			}
			if err := bkt.Put(itob(o.Number), value.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

func (d *observationdb) Delete(start, end int64) error {
	if start < 0 {
		start = 0
	}
	if end < start {
		return nil
	}
	err := d.db.Update(func(tr *bolt.Tx) error {
		b := tr.Bucket(d.obsBucket)
		c := b.Cursor()
		startkey, endkey := itob(start), itob(end)
		var del [][]byte
		for k, _ := c.Seek(startkey); k != nil && bytes.Compare(k, endkey) <= 0; k, _ = c.Next() {
			del = append(del, k)
		}
		for _, k := range del {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

func (d *observationdb) Close() error {
	return d.db.Close()
}

// itob returns an 8-byte big endian representation of v.
// The input argument v must be non-negative.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// btoi is the inverse of itob.
func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}
