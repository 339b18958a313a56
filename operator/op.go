package operator

import (
	"fmt"

	"blockagg/block"
	"blockagg/monoid"

	"github.com/pkg/errors"
)

type Kind uint8

const (
	KindCount Kind = iota + 1
	KindSum
	KindMin
	KindMax
	KindMean
	KindStd
	KindAbsMax
	KindQuantile
	KindUnique
	KindRow
)

var kindNames = map[Kind]string{
	KindCount:    "count",
	KindSum:      "sum",
	KindMin:      "min",
	KindMax:      "max",
	KindMean:     "mean",
	KindStd:      "std",
	KindAbsMax:   "abs_max",
	KindQuantile: "quantile",
	KindUnique:   "unique",
	KindRow:      "row",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Accumulator is the opaque partial state of one aggregation. Only the
// aggregation that produced it can combine, finalize or encode it.
type Accumulator interface{}

// Aggregation is what the engine holds per (column, kind, group): one
// Init per group, one AggregateBlock per block, Combine in any order and
// tree shape, and exactly one Finalize.
type Aggregation interface {
	Kind() Kind
	Name() string
	// TargetColumn is empty for whole-row aggregations.
	TargetColumn() string
	IgnoreNulls() bool
	Validate(schema *block.Schema) error

	Init() Accumulator
	AggregateBlock(b block.Accessor) (Accumulator, error)
	Combine(cur, next Accumulator) (Accumulator, error)
	// Finalize returns nil for a null result.
	Finalize(acc Accumulator) (interface{}, error)
}

// Codec is implemented by aggregations whose accumulators can be written
// out and read back.
type Codec interface {
	Encode(acc Accumulator) ([]byte, error)
	Decode(buf []byte) (Accumulator, error)
}

// GroupAggregator is implemented by aggregations whose per-block
// accumulator depends on the key of the group the block belongs to.
type GroupAggregator interface {
	AggregateGroupBlock(key interface{}, b block.Accessor) (Accumulator, error)
}

type options struct {
	alias       string
	aliased     bool
	ignoreNulls *bool
	ddof        int
	q           float64
}

type Option func(*options)

// WithAlias overrides the canonical "<kind>(<column>)" display name.
func WithAlias(name string) Option {
	return func(o *options) {
		o.alias = name
		o.aliased = true
	}
}

func WithIgnoreNulls(ignoreNulls bool) Option {
	return func(o *options) {
		o.ignoreNulls = &ignoreNulls
	}
}

// WithDDOF sets the delta degrees of freedom of Std (default 1).
func WithDDOF(ddof int) Option {
	return func(o *options) {
		o.ddof = ddof
	}
}

// WithQuantile sets the quantile of Quantile (default 0.5).
func WithQuantile(q float64) Option {
	return func(o *options) {
		o.q = q
	}
}

func buildOptions(kind Kind, on string, defaultIgnoreNulls bool, opts []Option) *options {
	o := &options{ddof: 1, q: 0.5}
	for _, opt := range opts {
		opt(o)
	}
	if o.ignoreNulls == nil {
		o.ignoreNulls = &defaultIgnoreNulls
	}
	if !o.aliased {
		o.alias = fmt.Sprintf("%s(%s)", kind, on)
	}
	return o
}

// kernel is a raw aggregation plus the mapping of its accumulator to the
// wire record.
type kernel[A, O any] interface {
	monoid.Kernel[A, O]
	toPartial(acc A) partial
	fromPartial(p partial) (A, error)
}

// descriptor implements Aggregation for every built-in kind on top of the
// null-safe monoid.
type descriptor[A, O any] struct {
	kind    Kind
	name    string
	on      string
	numeric bool
	kernel  kernel[A, O]
	safe    *monoid.NullSafe[A, O]
}

func newDescriptor[A, O any](kind Kind, on string, numeric bool,
	o *options, k kernel[A, O]) (*descriptor[A, O], error) {
	if o.alias == "" {
		return nil, errors.Wrapf(ErrConfiguration, "non-empty name required for %s", kind)
	}
	return &descriptor[A, O]{
		kind:    kind,
		name:    o.alias,
		on:      on,
		numeric: numeric,
		kernel:  k,
		safe:    monoid.NewNullSafe[A, O](k, *o.ignoreNulls),
	}, nil
}

func (d *descriptor[A, O]) Kind() Kind {
	return d.kind
}

func (d *descriptor[A, O]) Name() string {
	return d.name
}

func (d *descriptor[A, O]) TargetColumn() string {
	return d.on
}

func (d *descriptor[A, O]) IgnoreNulls() bool {
	return d.safe.IgnoreNulls()
}

func (d *descriptor[A, O]) Validate(schema *block.Schema) error {
	if d.on == "" {
		return nil
	}
	field, ok := schema.Field(d.on)
	if !ok {
		return errors.Wrapf(ErrSchema, "%s: column %q not found", d.name, d.on)
	}
	if d.numeric && !field.Type.IsNumeric() {
		return errors.Wrapf(ErrSchema, "%s: column %q has non-numeric type %s",
			d.name, d.on, field.Type)
	}
	return nil
}

func (d *descriptor[A, O]) Zero() monoid.State[A] {
	return d.safe.Zero()
}

func (d *descriptor[A, O]) Aggregate(b block.Accessor) (monoid.State[A], error) {
	state, err := d.safe.Aggregate(b)
	if err != nil {
		return state, errors.Wrapf(err, "%s", d.name)
	}
	return state, nil
}

func (d *descriptor[A, O]) Merge(cur, next monoid.State[A]) monoid.State[A] {
	return d.safe.Combine(cur, next)
}

func (d *descriptor[A, O]) Result(state monoid.State[A]) monoid.Nullable[O] {
	return d.safe.Finalize(state)
}

func (d *descriptor[A, O]) state(acc Accumulator) (monoid.State[A], error) {
	state, ok := acc.(monoid.State[A])
	if !ok {
		return state, errors.Wrapf(ErrAccumulatorType, "%s: got %T", d.name, acc)
	}
	return state, nil
}

func (d *descriptor[A, O]) Init() Accumulator {
	return d.Zero()
}

func (d *descriptor[A, O]) AggregateBlock(b block.Accessor) (Accumulator, error) {
	return d.Aggregate(b)
}

func (d *descriptor[A, O]) Combine(cur, next Accumulator) (Accumulator, error) {
	curState, err := d.state(cur)
	if err != nil {
		return nil, err
	}
	nextState, err := d.state(next)
	if err != nil {
		return nil, err
	}
	return d.Merge(curState, nextState), nil
}

func (d *descriptor[A, O]) Finalize(acc Accumulator) (interface{}, error) {
	state, err := d.state(acc)
	if err != nil {
		return nil, err
	}
	result := d.Result(state)
	if !result.Valid {
		return nil, nil
	}
	return result.Value, nil
}

func (d *descriptor[A, O]) Encode(acc Accumulator) ([]byte, error) {
	state, err := d.state(acc)
	if err != nil {
		return nil, err
	}
	p := partial{}
	if value, ok := state.Get(); ok {
		p = d.kernel.toPartial(value)
	}
	p.kind = d.kind
	p.status = state.Status()
	return encodePartial(p)
}

func (d *descriptor[A, O]) Decode(buf []byte) (Accumulator, error) {
	p, err := decodePartial(buf)
	if err != nil {
		return nil, err
	}
	if p.kind != d.kind {
		return nil, errors.Wrapf(ErrAccumulatorType, "%s: decoded %s accumulator", d.name, p.kind)
	}
	if p.status != monoid.Present {
		var zero A
		return monoid.StateOf(p.status, zero), nil
	}
	value, err := d.kernel.fromPartial(p)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", d.name)
	}
	return monoid.ValueOf(value), nil
}
