package operator

import "github.com/pkg/errors"

var (
	// ErrConfiguration is returned by constructors before any block work.
	ErrConfiguration = errors.New("invalid aggregation configuration")
	// ErrSchema is returned by Validate when the target column is missing
	// or has a type the aggregation cannot consume.
	ErrSchema = errors.New("aggregation does not match schema")
	// ErrAccumulatorType is returned when an accumulator produced by one
	// aggregation is handed to another.
	ErrAccumulatorType = errors.New("accumulator type mismatch")
	// ErrNotEncodable is returned for accumulators without a wire form.
	ErrNotEncodable = errors.New("accumulator is not encodable")
)
