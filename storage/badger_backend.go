package storage

import (
	"github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// badgerLogger routes badger's own logs to zap. badger asks for Warningf
// where zap's sugared logger has Warnf.
type badgerLogger struct {
	*zap.SugaredLogger
}

var _ badger.Logger = badgerLogger{}

func (l badgerLogger) Warningf(template string, args ...interface{}) {
	l.Warnf(template, args...)
}

// OpenBadger opens a badger store in dir, or an in-memory one when dir is
// empty. A nil logger silences badger.
func OpenBadger(dir string, logger *zap.Logger) (*badger.DB, error) {
	option := badger.DefaultOptions(dir).WithLogger(nil)
	if logger != nil {
		option = option.WithLogger(badgerLogger{logger.Named("badger").Sugar()})
	}
	if dir == "" {
		option = option.WithInMemory(true)
	}
	db, err := badger.Open(option)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger at %q", dir)
	}
	if logger != nil {
		logger.Debug("opened badger", zap.String("dir", dir), zap.Bool("in-memory", dir == ""))
	}
	return db, nil
}

func TestBadgerDB() *badger.DB {
	db, err := OpenBadger("", nil)
	if err != nil {
		panic(err)
	}
	return db
}

type BadgerBackend struct {
	db *badger.DB
}

func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

func (backend *BadgerBackend) Close() error {
	return backend.db.Close()
}

func (backend *BadgerBackend) txnGet(key []byte) ([]byte, error) {
	var buf []byte
	err := backend.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		buf, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "key %x", key)
	}
	return buf, err
}

func (backend *BadgerBackend) txnPut(key, buf []byte) error {
	return backend.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

func (backend *BadgerBackend) txnDelete(key []byte) error {
	return backend.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (backend *BadgerBackend) Get(groupID int64, slot uint8, partialID int64) ([]byte, error) {
	return backend.txnGet(GetKey(groupID, slot, partialID))
}

func (backend *BadgerBackend) Put(groupID int64, slot uint8, partialID int64, buf []byte) error {
	return backend.txnPut(GetKey(groupID, slot, partialID), buf)
}

func (backend *BadgerBackend) Delete(groupID int64, slot uint8, partialID int64) error {
	return backend.txnDelete(GetKey(groupID, slot, partialID))
}

func mergeTxnFunc(txn *badger.Txn, key []byte, buf []byte, delKeys [][]byte) error {
	for _, delKey := range delKeys {
		if err := txn.Delete(delKey); err != nil {
			return err
		}
	}
	return txn.Set(key, buf)
}

func (backend *BadgerBackend) Merge(
	groupID int64,
	slot uint8,
	partialID int64,
	buf []byte,
	deletedIDs []int64) error {

	key := GetKey(groupID, slot, partialID)
	delKeys := make([][]byte, len(deletedIDs))
	for i, ID := range deletedIDs {
		delKeys[i] = GetKey(groupID, slot, ID)
	}

	return backend.db.Update(func(txn *badger.Txn) error {
		return mergeTxnFunc(txn, key, buf, delKeys)
	})
}

func (backend *BadgerBackend) IterateIndex(groupID int64, slot uint8, lambda func(int64) error) error {
	prefix := GetKeyPrefix(groupID, slot)
	iterOpts := badger.DefaultIteratorOptions
	iterOpts.PrefetchValues = false
	iterOpts.Prefix = prefix
	return backend.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(iterOpts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			if err := lambda(GetPartialIDFromKey(iter.Item().Key())); err != nil {
				return err
			}
		}
		return nil
	})
}
