package monoid

// Status tags an accumulator. Empty is the identity of Combine when nulls
// are ignored; Poisoned records that a null was observed while nulls are
// not ignored and absorbs everything it is combined with.
type Status uint8

const (
	Empty Status = iota
	Poisoned
	Present
)

func (s Status) String() string {
	switch s {
	case Empty:
		return "empty"
	case Poisoned:
		return "poisoned"
	default:
		return "present"
	}
}

type State[A any] struct {
	status Status
	value  A
}

func EmptyState[A any]() State[A] {
	return State[A]{status: Empty}
}

func PoisonedState[A any]() State[A] {
	return State[A]{status: Poisoned}
}

func ValueOf[A any](value A) State[A] {
	return State[A]{status: Present, value: value}
}

// StateOf restores a state from its parts, e.g. after decoding.
func StateOf[A any](status Status, value A) State[A] {
	if status != Present {
		var zero A
		return State[A]{status: status, value: zero}
	}
	return ValueOf(value)
}

func (s State[A]) Status() Status {
	return s.status
}

// IsNull reports whether the state carries no value, either because it is
// the identity or because it is poisoned.
func (s State[A]) IsNull() bool {
	return s.status != Present
}

func (s State[A]) Get() (A, bool) {
	return s.value, s.status == Present
}

// Nullable is a finalized output.
type Nullable[O any] struct {
	Value O
	Valid bool
}

func Null[O any]() Nullable[O] {
	return Nullable[O]{}
}

func Some[O any](value O) Nullable[O] {
	return Nullable[O]{Value: value, Valid: true}
}
