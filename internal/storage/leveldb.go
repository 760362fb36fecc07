package storage

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	lstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

// Store is a small key-value store for JSON blobs backed by LevelDB
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the database directory at path
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open db %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// NewMemory returns a store that lives only in memory
func NewMemory() (*Store, error) {
	db, err := leveldb.Open(lstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory db: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value for key, or nil when the key is absent
func (s *Store) Get(key string) ([]byte, error) {
	value, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Write applies all puts and deletes as one atomic batch
func (s *Store) Write(puts map[string][]byte, deletes ...string) error {
	batch := new(leveldb.Batch)
	for key, value := range puts {
		batch.Put([]byte(key), value)
	}
	for _, key := range deletes {
		batch.Delete([]byte(key))
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	return nil
}

// Close releases the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
