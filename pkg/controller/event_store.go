package controller

import (
	"sync"
)

// Record is the storable form of an Event. Events themselves carry channel
// handles and cannot be serialized; a Record keeps what is worth replaying.
type Record struct {
	Node   uint8  `json:"node"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// MakeRecord flattens an Event into its storable form.
func MakeRecord(ev Event) Record {
	return Record{
		Node:   uint8(ev.Origin()),
		Kind:   ev.Kind(),
		Detail: ev.String(),
	}
}

// RangeFunc is used by RangeRecords to iterate over stored records in
// insertion order.
type RangeFunc func(seq uint64, rec Record) (next bool)

// EventStore persists event records.
type EventStore interface {
	// Append stores one record, assigning it the next sequence number.
	Append(Record) error

	// Count returns the number of records stored.
	Count() (int, error)

	// RangeRecords iterates over all records in insertion order and yields
	// them to the rangeFunc until `next` is false.
	RangeRecords(RangeFunc) error

	// Close releases the underlying resources.
	Close() error
}

type inMemoryEventStore struct {
	mu      sync.Mutex
	records []Record
}

// InMemoryEventStore implements in-memory EventStore.
func InMemoryEventStore() EventStore {
	return &inMemoryEventStore{}
}

func (es *inMemoryEventStore) Append(rec Record) error {
	es.mu.Lock()
	es.records = append(es.records, rec)
	es.mu.Unlock()
	return nil
}

func (es *inMemoryEventStore) Count() (int, error) {
	es.mu.Lock()
	count := len(es.records)
	es.mu.Unlock()
	return count, nil
}

func (es *inMemoryEventStore) RangeRecords(rangeFunc RangeFunc) error {
	es.mu.Lock()
	records := make([]Record, len(es.records))
	copy(records, es.records)
	es.mu.Unlock()

	for i, rec := range records {
		if !rangeFunc(uint64(i+1), rec) {
			break
		}
	}
	return nil
}

func (es *inMemoryEventStore) Close() error {
	return nil
}
