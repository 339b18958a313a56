package core

import (
	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"

	"blockagg/operator"
	"blockagg/storage"
)

// BackingStore encodes partial accumulators into a storage.Backend and keeps
// the decoded form in a ristretto cache. Accumulators are never mutated
// after they are produced, so cached values can be shared.
type BackingStore struct {
	backend      storage.Backend
	cacheEnabled bool
	cache        *ristretto.Cache
}

func NewBackingStore(backend storage.Backend, cacheEnabled bool, maxCost int64) (*BackingStore, error) {
	store := &BackingStore{
		backend:      backend,
		cacheEnabled: cacheEnabled,
	}
	if cacheEnabled {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e5,
			MaxCost:     maxCost,
			BufferItems: 64,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create partial cache")
		}
		store.cache = cache
	}
	return store, nil
}

func cacheKey(groupID int64, slot uint8, partialID int64) string {
	return string(storage.GetKey(groupID, slot, partialID))
}

func (store *BackingStore) Get(groupID int64, slot uint8, partialID int64,
	codec operator.Codec) (operator.Accumulator, error) {
	if store.cacheEnabled {
		acc, found := store.cache.Get(cacheKey(groupID, slot, partialID))
		if found {
			return acc, nil
		}
	}
	buf, err := store.backend.Get(groupID, slot, partialID)
	if err != nil {
		return nil, err
	}
	return codec.Decode(buf)
}

func (store *BackingStore) Put(groupID int64, slot uint8, partialID int64,
	codec operator.Codec, acc operator.Accumulator) error {
	buf, err := codec.Encode(acc)
	if err != nil {
		return err
	}
	if err := store.backend.Put(groupID, slot, partialID, buf); err != nil {
		return err
	}
	if store.cacheEnabled {
		store.cache.Set(cacheKey(groupID, slot, partialID), acc, int64(len(buf)))
	}
	return nil
}

func (store *BackingStore) Delete(groupID int64, slot uint8, partialID int64) error {
	if store.cacheEnabled {
		store.cache.Del(cacheKey(groupID, slot, partialID))
	}
	return store.backend.Delete(groupID, slot, partialID)
}

// Merge replaces the partials deletedIDs by acc stored under partialID.
func (store *BackingStore) Merge(groupID int64, slot uint8, partialID int64,
	codec operator.Codec, acc operator.Accumulator, deletedIDs []int64) error {
	buf, err := codec.Encode(acc)
	if err != nil {
		return err
	}
	if store.cacheEnabled {
		for _, id := range deletedIDs {
			store.cache.Del(cacheKey(groupID, slot, id))
		}
	}
	if err := store.backend.Merge(groupID, slot, partialID, buf, deletedIDs); err != nil {
		return err
	}
	if store.cacheEnabled {
		store.cache.Set(cacheKey(groupID, slot, partialID), acc, int64(len(buf)))
	}
	return nil
}

func (store *BackingStore) IterateIndex(groupID int64, slot uint8, lambda func(partialID int64) error) error {
	return store.backend.IterateIndex(groupID, slot, lambda)
}

func (store *BackingStore) Close() error {
	if store.cacheEnabled {
		store.cache.Close()
	}
	return store.backend.Close()
}
