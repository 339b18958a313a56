package core

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"blockagg/block"
	"blockagg/operator"
	"blockagg/storage"
	"blockagg/tree"
)

const maxSpillSlots = 256

// Group is the set of blocks that belong to one group key.
type Group struct {
	Key    interface{}
	Blocks []block.Accessor
}

// Result holds the finalized value of every aggregation for one group,
// keyed by output name. Null results are nil.
type Result struct {
	Key    interface{}
	Values block.Row
}

type Option func(*Reducer)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Reducer) {
		r.logger = logger
	}
}

// WithBackend sets where spilled partials go. Without it a badger store is
// opened from the config.
func WithBackend(backend storage.Backend) Option {
	return func(r *Reducer) {
		r.backend = backend
	}
}

// Reducer runs an OpSet over groups of blocks: every block is aggregated on
// a worker pool, the partials of a group are combined smallest first and
// the group is finalized once.
type Reducer struct {
	ops     *operator.OpSet
	config  *Config
	pool    *ants.Pool
	logger  *zap.Logger
	backend storage.Backend
	store   *BackingStore
	codecs  []operator.Codec

	nextGroupID int64
}

func NewReducer(ops *operator.OpSet, config *Config, opts ...Option) (*Reducer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	r := &Reducer{
		ops:    ops,
		config: config,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if config.Spill {
		if ops.Len() > maxSpillSlots {
			return nil, errors.Wrapf(operator.ErrConfiguration,
				"cannot spill more than %d aggregations, got %d", maxSpillSlots, ops.Len())
		}
		r.codecs = make([]operator.Codec, ops.Len())
		for i, op := range ops.Ops() {
			codec, ok := op.(operator.Codec)
			if !ok {
				return nil, errors.Wrapf(operator.ErrNotEncodable,
					"aggregation %q cannot be spilled", op.Name())
			}
			r.codecs[i] = codec
		}
		if r.backend == nil {
			db, err := storage.OpenBadger(config.BadgerDir, r.logger)
			if err != nil {
				return nil, err
			}
			r.backend = storage.NewBadgerBackend(db)
		}
		store, err := NewBackingStore(r.backend, config.CacheEnabled, config.CacheMaxCost)
		if err != nil {
			return nil, err
		}
		r.store = store
	}

	pool, err := ants.NewPool(config.Workers)
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	r.pool = pool
	return r, nil
}

// Close releases the worker pool and closes the spill backend, if any.
func (r *Reducer) Close() error {
	r.pool.Release()
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

// Reduce validates every aggregation against schema before touching a
// block, then reduces the groups in order. The first error abandons the
// call; groups already reduced are not returned.
func (r *Reducer) Reduce(ctx context.Context, schema *block.Schema, groups []Group) ([]Result, error) {
	if err := r.ops.Validate(schema); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(groups))
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := r.reduceGroup(ctx, group)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *Reducer) newPartialStore() partialStore {
	if r.store == nil {
		return newMemoryPartials()
	}
	return &spilledPartials{
		groupID: atomic.AddInt64(&r.nextGroupID, 1),
		codecs:  r.codecs,
		store:   r.store,
	}
}

func (r *Reducer) reduceGroup(ctx context.Context, group Group) (Result, error) {
	partials := r.newPartialStore()
	ph := tree.NewPartialHeap(len(group.Blocks))

	if err := r.aggregateBlocks(ctx, group.Key, group.Blocks, partials); err != nil {
		r.discard(partials)
		return Result{}, err
	}
	var rows int64
	for i, b := range group.Blocks {
		ph.PushPartial(int64(i), b.NumRows())
		rows += b.NumRows()
	}

	nextID := int64(len(group.Blocks))
	for ph.Len() > 1 {
		if err := ctx.Err(); err != nil {
			r.discard(partials)
			return Result{}, err
		}
		left, right := ph.PopPartial(), ph.PopPartial()
		merged, err := r.combine(partials, left.ID, right.ID)
		if err == nil {
			err = partials.merge(nextID, merged, []int64{left.ID, right.ID})
		}
		if err != nil {
			r.discard(partials)
			return Result{}, err
		}
		ph.PushPartial(nextID, left.Rows+right.Rows)
		nextID++
	}

	accs := r.ops.Init()
	if ph.Len() == 1 {
		top := ph.PopPartial()
		last, err := partials.get(top.ID)
		if err == nil {
			accs, err = r.ops.Combine(accs, last)
		}
		r.discard(partials)
		if err != nil {
			return Result{}, err
		}
	}
	values, err := r.ops.Finalize(accs)
	if err != nil {
		return Result{}, err
	}

	r.logger.Debug("reduced group",
		zap.Int("blocks", len(group.Blocks)),
		zap.Int64("rows", rows),
		zap.Int64("merges", nextID-int64(len(group.Blocks))))

	row := make(block.Row, len(values))
	for i, name := range r.ops.Names() {
		row[name] = values[i]
	}
	return Result{Key: group.Key, Values: row}, nil
}

// aggregateBlocks stores the partial of block i under partial ID i.
func (r *Reducer) aggregateBlocks(ctx context.Context, key interface{},
	blocks []block.Accessor, partials partialStore) error {
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	setErr := func(err error) {
		errOnce.Do(func() {
			firstErr = err
		})
	}

	for i, b := range blocks {
		if err := ctx.Err(); err != nil {
			setErr(err)
			break
		}
		id, b := int64(i), b
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				setErr(ctx.Err())
				return
			}
			accs, err := r.ops.AggregateGroupBlock(key, b)
			if err == nil {
				err = partials.put(id, accs)
			}
			if err != nil {
				setErr(err)
			}
		})
		if err != nil {
			wg.Done()
			setErr(errors.Wrap(err, "submit block"))
			break
		}
	}
	wg.Wait()
	return firstErr
}

func (r *Reducer) combine(partials partialStore, leftID, rightID int64) ([]operator.Accumulator, error) {
	left, err := partials.get(leftID)
	if err != nil {
		return nil, err
	}
	right, err := partials.get(rightID)
	if err != nil {
		return nil, err
	}
	return r.ops.Combine(left, right)
}

func (r *Reducer) discard(partials partialStore) {
	if err := partials.discard(); err != nil {
		r.logger.Warn("failed to discard partials", zap.Error(err))
	}
}
