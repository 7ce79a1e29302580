package controller

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
)

var boltDBBucket = []byte("events")

// errStopIteration signals an early exit from a bucket walk; it never leaves
// the store.
var errStopIteration = errors.New("iterator stopped")

type boltDBEventStore struct {
	db *bbolt.DB
}

// BoltDBEventStore constructs an EventStore persisted in a bbolt database at
// the given path. Records are JSON-encoded and keyed by a big-endian
// sequence number, so iteration order is insertion order.
func BoltDBEventStore(path string) (EventStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(boltDBBucket); err != nil {
			return fmt.Errorf("failed to create bucket: %s", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &boltDBEventStore{db: db}, nil
}

func (es *boltDBEventStore) Append(rec Record) error {
	return es.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltDBBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("json: %s", err)
		}

		return b.Put(binarySeq(seq), data)
	})
}

func (es *boltDBEventStore) Count() (count int, err error) {
	err = es.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(boltDBBucket).Stats().KeyN
		return nil
	})
	return count, err
}

func (es *boltDBEventStore) RangeRecords(rangeFunc RangeFunc) error {
	err := es.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltDBBucket).ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("json: %s", err)
			}

			if !rangeFunc(binary.BigEndian.Uint64(k), rec) {
				return errStopIteration
			}
			return nil
		})
	})
	if err == errStopIteration {
		return nil
	}
	return err
}

func (es *boltDBEventStore) Close() error {
	return es.db.Close()
}

func binarySeq(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
