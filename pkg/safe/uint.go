// Package safe provides range-checked integer conversions used when values cross fixed-width record fields.
package safe

import (
	"fmt"
	"math"
)

// Integer is the set of integer kinds accepted by the conversions.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

func isNegative[T Integer](v T) bool {
	return v < 0
}

// Uint32 converts v to uint32, failing when it does not fit.
func Uint32[T Integer](v T) (uint32, error) {
	if isNegative(v) || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of uint32 range", v)
	}
	return uint32(v), nil
}

// Uint64 converts v to uint64, failing on negative input.
func Uint64[T Integer](v T) (uint64, error) {
	if isNegative(v) {
		return 0, fmt.Errorf("value %d out of uint64 range", v)
	}
	return uint64(v), nil
}

// Int64 converts v to int64, failing when an unsigned value exceeds math.MaxInt64.
func Int64[T Integer](v T) (int64, error) {
	if !isNegative(v) && uint64(v) > math.MaxInt64 {
		return 0, fmt.Errorf("value %d out of int64 range", v)
	}
	return int64(v), nil
}
