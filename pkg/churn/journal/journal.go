// Package journal provides Badger DB-backed storage for run history.
// Each completed (or interrupted) run leaves one record summarizing what
// the workers did; the history command reads them back.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/churn/pkg/churn/worker"
)

// prefixRun namespaces run records inside the database.
const prefixRun = "r:"

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("run record not found")

// Record summarizes one run of the generator.
type Record struct {
	ID      string           `json:"id"`
	Start   time.Time        `json:"start"`
	End     time.Time        `json:"end"`
	Root    string           `json:"root"`
	Workers int              `json:"workers"`
	Stats   worker.StatsView `json:"stats"`
}

// Duration is the wall-clock length of the run.
func (r *Record) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Journal is the run-history store backed by Badger DB.
type Journal struct {
	db *badger.DB
}

// Open opens or creates a journal at the given directory.
func Open(path string) (*Journal, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logging is noise here

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Put stores a run record.
func (j *Journal) Put(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixRun+rec.ID), data)
	})
}

// Get retrieves a run record by id.
func (j *Journal) Get(id string) (*Record, error) {
	var rec Record

	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixRun + id))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// List returns up to limit records, newest first. A limit of zero means
// all records.
func (j *Journal) List(limit int) ([]*Record, error) {
	var records []*Record

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRun)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				records = append(records, &rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, k int) bool {
		return records[i].Start.After(records[k].Start)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Prune removes records older than the retention period.
func (j *Journal) Prune(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	all, err := j.List(0)
	if err != nil {
		return 0, err
	}

	removed := 0
	err = j.db.Update(func(txn *badger.Txn) error {
		for _, rec := range all {
			if rec.Start.Before(cutoff) {
				if err := txn.Delete([]byte(prefixRun + rec.ID)); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
