// Package history keeps a local record of runs in a bbolt file so that
// backends and worker counts can be compared across invocations.
package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var runsBucket = []byte("runs")

// ErrNoHistory is returned by Open in read-only mode when the file holds no
// runs bucket.
var ErrNoHistory = errors.New("history: no runs recorded")

// Run is one recorded invocation.
type Run struct {
	ID               string        `json:"id"`
	StartedAt        time.Time     `json:"started_at"`
	Input            string        `json:"input"`
	Backend          string        `json:"backend"`
	Policy           string        `json:"policy"`
	Transport        string        `json:"transport,omitempty"`
	WorkersRequested int           `json:"workers_requested"`
	WorkersUsed      int           `json:"workers_used"`
	Lines            int           `json:"lines"`
	Bytes            int           `json:"bytes"`
	Runtime          time.Duration `json:"runtime_ns"`
	UserCPU          time.Duration `json:"user_cpu_ns"`
	SystemCPU        time.Duration `json:"system_cpu_ns"`
	VirtualKB        uint64        `json:"virtual_kb"`
	PhysicalKB       uint64        `json:"physical_kb"`
}

// Store is an open history file.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the history file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing history file without creating anything.
func OpenReadOnly(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	err = db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(runsBucket) == nil {
			return ErrNoHistory
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// runKey orders runs by start time; the id breaks ties.
func runKey(r Run) []byte {
	key := make([]byte, 8, 8+len(r.ID))
	binary.BigEndian.PutUint64(key, uint64(r.StartedAt.UnixNano()))
	return append(key, r.ID...)
}

// Append records r. Missing ID and StartedAt are filled in.
func (s *Store) Append(r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	value, err := json.Marshal(r)
	if err != nil {
		return r, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put(runKey(r), value)
	})
	return r, err
}

// List returns up to limit runs, newest first. limit <= 0 returns all runs.
func (s *Store) List(limit int) ([]Run, error) {
	var runs []Run
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var r Run
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("history: corrupt record %x: %w", k, err)
			}
			runs = append(runs, r)
			if limit > 0 && len(runs) == limit {
				break
			}
		}
		return nil
	})
	return runs, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
