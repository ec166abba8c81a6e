package service

import (
	"errors"
	"fmt"
)

// ErrNoSplitNeeded means fewer than two splits were proposed; the
// transaction should keep a single category instead of being split.
var ErrNoSplitNeeded = errors.New("no split needed")

// ErrInvalidSplitAmount means a proposed split carried a zero or
// negative amount. Split amounts are magnitudes; the applier restores
// the parent's sign.
var ErrInvalidSplitAmount = errors.New("split amounts must be positive")

// ReconciliationError means the proposed splits do not sum to the
// original transaction amount within tolerance. Both figures are kept
// so the caller can surface them for manual correction.
type ReconciliationError struct {
	Expected    float64
	Actual      float64
	Discrepancy float64
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("splits sum to $%.2f but the transaction total is $%.2f (off by $%.2f)",
		e.Actual, e.Expected, e.Discrepancy)
}

// UnknownCategoryError means a split referenced a category that does
// not exist in the taxonomy. Fatal for the whole batch.
type UnknownCategoryError struct {
	Name string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("category %q is not in the taxonomy", e.Name)
}
