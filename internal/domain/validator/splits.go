// Package validator reconciles AI-proposed category splits against the
// original transaction amount before anything is written.
//
// The model output is untrusted: amounts must reconcile to the parent
// within a one-cent tolerance and category names must resolve exactly
// against the stored taxonomy. A mismatch rejects the whole batch; a
// partial application would leave the ledger sum inconsistent.
package validator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// Config holds validator configuration
type Config struct {
	Tolerance float64 // Reconciliation tolerance in dollars (default: 0.01)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Tolerance: 0.01,
	}
}

// ProposedSplit is one category grouping proposed by analysis. Amounts
// are always positive; the applier restores the parent's sign.
type ProposedSplit struct {
	CategoryName    string  `json:"category_name"`
	SubcategoryName string  `json:"subcategory_name,omitempty"`
	Amount          float64 `json:"amount"`
	ItemsSummary    string  `json:"items_summary,omitempty"`
}

// ResolvedSplit is a proposed split with category names bound to real
// taxonomy identifiers
type ResolvedSplit struct {
	CategoryID      string
	CategoryName    string
	SubcategoryID   *string // nil when the proposal named no (or an unknown) subcategory
	SubcategoryName string
	Amount          float64
	ItemsSummary    string
}

// Outcome classifies a validation result
type Outcome int

const (
	// OutcomeAccepted means the splits reconcile and all categories resolved
	OutcomeAccepted Outcome = iota

	// OutcomeNoSplit means fewer than two splits were proposed; no split
	// is warranted. This is a distinct outcome, not an error.
	OutcomeNoSplit

	// OutcomeInvalidAmount means a split carried a zero or negative
	// amount. Fatal for the whole batch.
	OutcomeInvalidAmount

	// OutcomeAmountMismatch means the split sum differs from the original
	// amount beyond tolerance. Fatal for the whole batch.
	OutcomeAmountMismatch

	// OutcomeUnknownCategory means a split named a category missing from
	// the taxonomy. Fatal for the whole batch.
	OutcomeUnknownCategory
)

// Result is the tagged outcome of validating a split proposal
type Result struct {
	Outcome Outcome

	// Splits holds the resolved splits when Outcome is OutcomeAccepted
	Splits []ResolvedSplit

	// Total is the normalized total: when the split sum is within
	// tolerance of the original but not exactly equal, the line items
	// are trusted over the reported aggregate
	Total float64

	// Expected, Actual and Discrepancy are set on OutcomeAmountMismatch
	Expected    float64
	Actual      float64
	Discrepancy float64

	// UnknownCategory names the offending category on OutcomeUnknownCategory
	UnknownCategory string

	// DowngradedSubcategories lists subcategory names that did not
	// resolve and were downgraded to "no subcategory"
	DowngradedSubcategories []string

	// Reason explains rejection outcomes
	Reason string
}

// Taxonomy is an exact-name lookup over the stored categories.
// No fuzzy matching happens here: a near-miss category name is a data
// error that must surface, not a silent misclassification.
type Taxonomy struct {
	byName map[string]*storage.Category
	byID   map[string]*storage.Category
}

// NewTaxonomy builds a taxonomy lookup from stored categories
func NewTaxonomy(categories []*storage.Category) Taxonomy {
	t := Taxonomy{
		byName: make(map[string]*storage.Category, len(categories)),
		byID:   make(map[string]*storage.Category, len(categories)),
	}
	for _, cat := range categories {
		t.byName[cat.Name] = cat
		t.byID[cat.ID] = cat
	}
	return t
}

// Category looks up a category by exact name
func (t Taxonomy) Category(name string) (*storage.Category, bool) {
	cat, ok := t.byName[name]
	return cat, ok
}

// CategoryByID looks up a category by identifier
func (t Taxonomy) CategoryByID(id string) (*storage.Category, bool) {
	cat, ok := t.byID[id]
	return cat, ok
}

// Validator validates split proposals against a parent amount
type Validator struct {
	config Config
}

// NewValidator creates a new validator with the given config
func NewValidator(config Config) *Validator {
	return &Validator{
		config: config,
	}
}

// Validate checks that the proposed splits reconcile against the
// original amount (the absolute value of the parent transaction) and
// resolves category names against the taxonomy.
//
// Amount mismatch and unknown category reject the whole batch.
// An unknown subcategory within a valid category downgrades to no
// subcategory and processing continues.
func (v *Validator) Validate(originalAmount float64, splits []ProposedSplit, taxonomy Taxonomy) Result {
	if len(splits) < 2 {
		return Result{
			Outcome: OutcomeNoSplit,
			Reason:  fmt.Sprintf("got %d split(s), need at least 2", len(splits)),
		}
	}

	// Sum with decimal arithmetic; summing floats would accumulate
	// binary representation error across many line items. Split amounts
	// are magnitudes: a negative amount could cancel against another
	// split, reconcile, and still produce children that break the ledger
	// sum once the applier restores the parent's sign.
	sum := decimal.Zero
	for _, split := range splits {
		if split.Amount <= 0 {
			return Result{
				Outcome: OutcomeInvalidAmount,
				Reason: fmt.Sprintf("split amount for category %q must be positive, got $%.2f",
					split.CategoryName, split.Amount),
			}
		}
		sum = sum.Add(decimal.NewFromFloat(split.Amount).Round(2))
	}

	expected := decimal.NewFromFloat(originalAmount).Round(2)
	diff := sum.Sub(expected).Abs()
	tolerance := decimal.NewFromFloat(v.config.Tolerance)

	if diff.GreaterThan(tolerance) {
		return Result{
			Outcome:     OutcomeAmountMismatch,
			Expected:    expected.InexactFloat64(),
			Actual:      sum.InexactFloat64(),
			Discrepancy: diff.InexactFloat64(),
			Reason: fmt.Sprintf("splits sum to $%s but the transaction total is $%s (off by $%s)",
				sum.StringFixed(2), expected.StringFixed(2), diff.StringFixed(2)),
		}
	}

	result := Result{
		Outcome: OutcomeAccepted,
		Splits:  make([]ResolvedSplit, 0, len(splits)),
		// Trust the line items over the reported aggregate
		Total: sum.InexactFloat64(),
	}

	for _, split := range splits {
		cat, ok := taxonomy.Category(split.CategoryName)
		if !ok {
			return Result{
				Outcome:         OutcomeUnknownCategory,
				UnknownCategory: split.CategoryName,
				Reason:          fmt.Sprintf("category %q is not in the taxonomy", split.CategoryName),
			}
		}

		resolved := ResolvedSplit{
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			Amount:       decimal.NewFromFloat(split.Amount).Round(2).InexactFloat64(),
			ItemsSummary: split.ItemsSummary,
		}

		if split.SubcategoryName != "" {
			if sub := findSubcategory(cat, split.SubcategoryName); sub != nil {
				resolved.SubcategoryID = &sub.ID
				resolved.SubcategoryName = sub.Name
			} else {
				// Recoverable: keep the split, drop the subcategory
				result.DowngradedSubcategories = append(result.DowngradedSubcategories, split.SubcategoryName)
			}
		}

		result.Splits = append(result.Splits, resolved)
	}

	return result
}

// findSubcategory looks up a subcategory by exact name within a category
func findSubcategory(cat *storage.Category, name string) *storage.Subcategory {
	for i := range cat.Subcategories {
		if cat.Subcategories[i].Name == name {
			return &cat.Subcategories[i]
		}
	}
	return nil
}
