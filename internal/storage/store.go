package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"pgblast/internal/config"
	"pgblast/internal/metrics"
)

const bucketRuns = "runs"

// RunRecord is one archived benchmark run.
type RunRecord struct {
	ID        string                  `json:"id"`
	Timestamp time.Time               `json:"timestamp"`
	Config    config.Config           `json:"config"`
	Report    metrics.AggregateReport `json:"report"`
}

// Store archives completed runs so `pgblast history` can list them.
type Store struct {
	db *bbolt.DB
}

// DefaultPath is the per-user history database location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".pgblast")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives one run. Keys are ordered by timestamp so a reverse cursor
// walk lists the newest runs first.
func (s *Store) Save(rec RunRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		key := []byte(rec.Timestamp.UTC().Format(time.RFC3339Nano) + "/" + rec.ID)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// List returns up to limit records, newest first.
func (s *Store) List(limit int) ([]RunRecord, error) {
	var records []RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketRuns)).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding run record %s: %w", k, err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns the archived run with the given id, or nil when absent.
func (s *Store) Get(id string) (*RunRecord, error) {
	var found *RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketRuns)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			if rec.ID == id {
				found = &rec
				return nil
			}
		}
		return nil
	})
	return found, err
}
