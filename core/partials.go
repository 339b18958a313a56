package core

import (
	"sync"

	"github.com/pkg/errors"

	"blockagg/operator"
	"blockagg/storage"
)

// partialStore holds the per-block and merged accumulators of one group
// while its merge tree is being reduced.
type partialStore interface {
	put(partialID int64, accs []operator.Accumulator) error
	get(partialID int64) ([]operator.Accumulator, error)
	merge(partialID int64, accs []operator.Accumulator, deletedIDs []int64) error
	// discard drops every partial of the group.
	discard() error
}

type memoryPartials struct {
	mu       sync.Mutex
	partials map[int64][]operator.Accumulator
}

func newMemoryPartials() *memoryPartials {
	return &memoryPartials{partials: make(map[int64][]operator.Accumulator)}
}

func (p *memoryPartials) put(partialID int64, accs []operator.Accumulator) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.partials[partialID] = accs
	return nil
}

func (p *memoryPartials) get(partialID int64) ([]operator.Accumulator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	accs, ok := p.partials[partialID]
	if !ok {
		return nil, errors.Wrapf(storage.ErrNotFound, "partial %d", partialID)
	}
	return accs, nil
}

func (p *memoryPartials) merge(partialID int64, accs []operator.Accumulator, deletedIDs []int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range deletedIDs {
		delete(p.partials, id)
	}
	p.partials[partialID] = accs
	return nil
}

func (p *memoryPartials) discard() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.partials = make(map[int64][]operator.Accumulator)
	return nil
}

// spilledPartials writes each aggregation's accumulator under its own slot,
// slot i being the i-th aggregation of the set.
type spilledPartials struct {
	groupID int64
	codecs  []operator.Codec
	store   *BackingStore
}

func (p *spilledPartials) put(partialID int64, accs []operator.Accumulator) error {
	for i, codec := range p.codecs {
		if err := p.store.Put(p.groupID, uint8(i), partialID, codec, accs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *spilledPartials) get(partialID int64) ([]operator.Accumulator, error) {
	accs := make([]operator.Accumulator, len(p.codecs))
	for i, codec := range p.codecs {
		acc, err := p.store.Get(p.groupID, uint8(i), partialID, codec)
		if err != nil {
			return nil, err
		}
		accs[i] = acc
	}
	return accs, nil
}

func (p *spilledPartials) merge(partialID int64, accs []operator.Accumulator, deletedIDs []int64) error {
	for i, codec := range p.codecs {
		if err := p.store.Merge(p.groupID, uint8(i), partialID, codec, accs[i], deletedIDs); err != nil {
			return err
		}
	}
	return nil
}

func (p *spilledPartials) discard() error {
	for i := range p.codecs {
		ids := make([]int64, 0)
		err := p.store.IterateIndex(p.groupID, uint8(i), func(partialID int64) error {
			ids = append(ids, partialID)
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := p.store.Delete(p.groupID, uint8(i), id); err != nil {
				return err
			}
		}
	}
	return nil
}
