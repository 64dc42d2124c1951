package functions

import (
	"fmt"
	"math"

	"github.com/leapstack-labs/gsql/pkg/core"
)

// Aggregates skip NULLs. Over an empty (or all-NULL) column they return
// NULL, except count which returns 0.

func aggCount(values []any) (any, error) {
	var n int64
	for _, v := range values {
		if v != nil {
			n++
		}
	}
	return n, nil
}

func aggSum(values []any) (any, error) {
	var (
		isum   int64
		fsum   float64
		floats bool
		seen   bool
	)
	for _, v := range values {
		if v == nil {
			continue
		}
		seen = true
		if i, ok := v.(int64); ok && !floats {
			isum += i
			continue
		}
		f, err := number(v)
		if err != nil {
			return nil, err
		}
		if !floats {
			floats = true
			fsum = float64(isum)
		}
		fsum += f
	}
	switch {
	case !seen:
		return nil, nil
	case floats:
		return fsum, nil
	default:
		return isum, nil
	}
}

func aggMin(values []any) (any, error) {
	return extreme(values, -1), nil
}

func aggMax(values []any) (any, error) {
	return extreme(values, 1), nil
}

// extreme returns the value v for which Compare(v, other) == sign holds
// against every other non-NULL value.
func extreme(values []any, sign int) any {
	var best any
	for _, v := range values {
		if v == nil {
			continue
		}
		if best == nil || core.Compare(v, best) == sign {
			best = v
		}
	}
	return best
}

func aggMean(values []any) (any, error) {
	nums, err := numbers(values)
	if err != nil || len(nums) == 0 {
		return nil, err
	}
	return mean(nums), nil
}

func aggVariance(values []any) (any, error) {
	nums, err := numbers(values)
	if err != nil || len(nums) == 0 {
		return nil, err
	}
	return variance(nums), nil
}

func aggStddev(values []any) (any, error) {
	nums, err := numbers(values)
	if err != nil || len(nums) == 0 {
		return nil, err
	}
	return math.Sqrt(variance(nums)), nil
}

func numbers(values []any) ([]float64, error) {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		f, err := number(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func mean(nums []float64) float64 {
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

// variance is the population variance (divides by N).
func variance(nums []float64) float64 {
	m := mean(nums)
	var ss float64
	for _, n := range nums {
		d := n - m
		ss += d * d
	}
	return ss / float64(len(nums))
}
