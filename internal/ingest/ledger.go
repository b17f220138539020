package ingest

import (
	"encoding/json"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"
)

const importsBucket = "imports"

var ErrLedgerClosed = errors.New("ingest ledger is closed")

// Entry records one imported file.
type Entry struct {
	BatchID    string    `json:"batch_id"`
	Category   string    `json:"category"`
	File       string    `json:"file"`
	SHA256     string    `json:"sha256"`
	Records    int       `json:"records"`
	ImportedAt time.Time `json:"imported_at"`
}

// Ledger remembers imported files by content hash in a local BoltDB file.
type Ledger struct {
	db *bolt.DB
}

func OpenLedger(path string) (*Ledger, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(importsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Lookup returns the entry stored for hash, if any.
func (l *Ledger) Lookup(hash string) (*Entry, bool, error) {
	if l == nil || l.db == nil {
		return nil, false, ErrLedgerClosed
	}

	var entry Entry
	found := false
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(importsBucket)).Get([]byte(hash))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &entry, true, nil
}

// Put stores entry unless its hash is already present. It returns the entry
// that ends up stored and whether it was written.
func (l *Ledger) Put(entry Entry) (*Entry, bool, error) {
	if l == nil || l.db == nil {
		return nil, false, ErrLedgerClosed
	}

	var result Entry
	created := false
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(importsBucket))
		if existing := b.Get([]byte(entry.SHA256)); existing != nil {
			return json.Unmarshal(existing, &result)
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		result = entry
		created = true
		return b.Put([]byte(entry.SHA256), data)
	})
	if err != nil {
		return nil, false, err
	}
	return &result, created, nil
}

// List returns every entry ordered by hash.
func (l *Ledger) List() ([]Entry, error) {
	if l == nil || l.db == nil {
		return nil, ErrLedgerClosed
	}

	entries := []Entry{}
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(importsBucket)).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
