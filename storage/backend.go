package storage

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("partial not found")

const KeySize = 17

// GetKey lays out <8 bytes group ID> <1 byte aggregation slot> <8 bytes
// partial ID>, so that the partials of one (group, slot) share a prefix.
func GetKey(groupID int64, slot uint8, partialID int64) []byte {
	buf := make([]byte, KeySize)
	binary.BigEndian.PutUint64(buf[:8], uint64(groupID))
	buf[8] = slot
	binary.BigEndian.PutUint64(buf[9:], uint64(partialID))
	return buf
}

func GetKeyPrefix(groupID int64, slot uint8) []byte {
	buf := make([]byte, 9)
	binary.BigEndian.PutUint64(buf[:8], uint64(groupID))
	buf[8] = slot
	return buf
}

func GetGroupIDFromKey(buf []byte) int64 {
	return int64(binary.BigEndian.Uint64(buf[:8]))
}

func GetSlotFromKey(buf []byte) uint8 {
	return buf[8]
}

func GetPartialIDFromKey(buf []byte) int64 {
	return int64(binary.BigEndian.Uint64(buf[9:]))
}

// Backend stores encoded partial accumulators.
type Backend interface {
	Get(groupID int64, slot uint8, partialID int64) ([]byte, error)
	Put(groupID int64, slot uint8, partialID int64, buf []byte) error
	Delete(groupID int64, slot uint8, partialID int64) error
	// Merge stores buf under partialID and deletes deletedIDs atomically.
	Merge(groupID int64, slot uint8, partialID int64, buf []byte, deletedIDs []int64) error
	IterateIndex(groupID int64, slot uint8, lambda func(partialID int64) error) error
	Close() error
}

type InMemoryBackend struct {
	partials map[string][]byte
	mu       sync.Mutex
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		partials: make(map[string][]byte),
	}
}

func (backend *InMemoryBackend) Get(groupID int64, slot uint8, partialID int64) ([]byte, error) {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	buf, ok := backend.partials[string(GetKey(groupID, slot, partialID))]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "group %d slot %d partial %d", groupID, slot, partialID)
	}
	return buf, nil
}

func (backend *InMemoryBackend) Put(groupID int64, slot uint8, partialID int64, buf []byte) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.partials[string(GetKey(groupID, slot, partialID))] = buf
	return nil
}

func (backend *InMemoryBackend) Delete(groupID int64, slot uint8, partialID int64) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	delete(backend.partials, string(GetKey(groupID, slot, partialID)))
	return nil
}

func (backend *InMemoryBackend) Merge(
	groupID int64,
	slot uint8,
	partialID int64,
	buf []byte,
	deletedIDs []int64) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	for _, ID := range deletedIDs {
		delete(backend.partials, string(GetKey(groupID, slot, ID)))
	}
	backend.partials[string(GetKey(groupID, slot, partialID))] = buf
	return nil
}

func (backend *InMemoryBackend) IterateIndex(groupID int64, slot uint8, lambda func(int64) error) error {
	backend.mu.Lock()
	ids := make([]int64, 0)
	for k := range backend.partials {
		buf := []byte(k)
		if GetGroupIDFromKey(buf) != groupID || GetSlotFromKey(buf) != slot {
			continue
		}
		ids = append(ids, GetPartialIDFromKey(buf))
	}
	backend.mu.Unlock()

	for _, id := range ids {
		if err := lambda(id); err != nil {
			return err
		}
	}
	return nil
}

func (backend *InMemoryBackend) Close() error {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.partials = nil
	return nil
}
