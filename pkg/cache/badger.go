package cache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const badgerKeyPrefix = "response:"

type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

func OpenBadgerStore(dir string, logger *zap.Logger) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening badger cache: %w", err)
	}

	return NewBadgerStore(db, logger), nil
}

func NewBadgerStore(db *badger.DB, logger *zap.Logger) *BadgerStore {
	return &BadgerStore{db: db, logger: logger}
}

func (b *BadgerStore) Get(fingerprint string) (*Entry, error) {
	var entry Entry

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + fingerprint))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrMiss
		}

		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func (b *BadgerStore) Put(fingerprint string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		key := []byte(badgerKeyPrefix + fingerprint)

		_, err := txn.Get(key)
		if err == nil {
			b.logger.Debug("cache entry already present", zap.String("fingerprint", fingerprint))

			return nil
		}

		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		return txn.Set(key, data)
	})
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
