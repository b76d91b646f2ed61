// Package history persists finished transcriptions so past dictations
// can be reviewed and re-copied. Entries expire automatically; the
// store is a convenience log, not an archive.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/adityasinghcodes/superwhisper-linux/internal/types"
)

const (
	keyPrefix = "tr:"
	retention = 30 * 24 * time.Hour
)

// Store is a badger-backed transcription log.
type Store struct {
	db *badger.DB
}

// DefaultPath returns the on-disk location of the history database.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "superwhisper", "history")
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Add records a transcription. Entries expire after thirty days.
func (s *Store) Add(tr types.Transcription) error {
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now()
	}
	val, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("encode transcription: %w", err)
	}
	key := fmt.Appendf(nil, "%s%020d:%s", keyPrefix, tr.CreatedAt.UnixNano(), tr.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, val).WithTTL(retention)
		return txn.SetEntry(e)
	})
}

// Recent returns up to n transcriptions, newest first.
func (s *Store) Recent(n int) ([]types.Transcription, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]types.Transcription, 0, n)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek key past the prefix range.
		seek := append([]byte(keyPrefix), 0xff)
		for it.Seek(seek); it.Valid() && len(out) < n; it.Next() {
			var tr types.Transcription
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &tr)
			})
			if err != nil {
				return fmt.Errorf("decode transcription: %w", err)
			}
			out = append(out, tr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close flushes and closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}
