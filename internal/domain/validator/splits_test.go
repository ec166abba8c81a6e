package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// Helper to build a small taxonomy for tests
func makeTaxonomy() Taxonomy {
	return NewTaxonomy([]*storage.Category{
		{
			ID:   "cat-groceries",
			Name: "Groceries",
			Subcategories: []storage.Subcategory{
				{ID: "sub-produce", CategoryID: "cat-groceries", Name: "Produce"},
			},
		},
		{ID: "cat-household", Name: "Household"},
		{ID: "cat-electronics", Name: "Electronics"},
	})
}

func TestValidator_AcceptsReconcilingSplits(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig())
	splits := []ProposedSplit{
		{CategoryName: "Groceries", Amount: 20.00},
		{CategoryName: "Household", Amount: 22.00},
	}

	// Act
	result := v.Validate(42.00, splits, makeTaxonomy())

	// Assert
	require.Equal(t, OutcomeAccepted, result.Outcome)
	require.Len(t, result.Splits, 2)
	assert.Equal(t, "cat-groceries", result.Splits[0].CategoryID)
	assert.Equal(t, "cat-household", result.Splits[1].CategoryID)
	assert.InDelta(t, 42.00, result.Total, 0.001)
}

func TestValidator_RejectsAmountMismatch(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig())
	splits := []ProposedSplit{
		{CategoryName: "Groceries", Amount: 20.00},
		{CategoryName: "Household", Amount: 20.00},
	}

	// Act
	result := v.Validate(42.00, splits, makeTaxonomy())

	// Assert
	require.Equal(t, OutcomeAmountMismatch, result.Outcome)
	assert.InDelta(t, 42.00, result.Expected, 0.001)
	assert.InDelta(t, 40.00, result.Actual, 0.001)
	assert.InDelta(t, 2.00, result.Discrepancy, 0.001)
	assert.Contains(t, result.Reason, "$40.00")
	assert.Contains(t, result.Reason, "$42.00")
	assert.Empty(t, result.Splits)
}

func TestValidator_SingleSplitIsNoSplit(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig())
	splits := []ProposedSplit{
		{CategoryName: "Groceries", Amount: 42.00},
	}

	// Act
	result := v.Validate(42.00, splits, makeTaxonomy())

	// Assert
	assert.Equal(t, OutcomeNoSplit, result.Outcome)
	assert.Empty(t, result.Splits)
}

func TestValidator_ZeroSplitsIsNoSplit(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig())

	// Act
	result := v.Validate(42.00, nil, makeTaxonomy())

	// Assert
	assert.Equal(t, OutcomeNoSplit, result.Outcome)
}

func TestValidator_RejectsNegativeAmount(t *testing.T) {
	// 50.00 - 8.00 reconciles to 42.00, but a negative split would
	// break the ledger sum once the applier restores the parent's sign
	// Arrange
	v := NewValidator(DefaultConfig())
	splits := []ProposedSplit{
		{CategoryName: "Groceries", Amount: 50.00},
		{CategoryName: "Household", Amount: -8.00},
	}

	// Act
	result := v.Validate(42.00, splits, makeTaxonomy())

	// Assert
	require.Equal(t, OutcomeInvalidAmount, result.Outcome)
	assert.Contains(t, result.Reason, "Household")
	assert.Contains(t, result.Reason, "-8.00")
	assert.Empty(t, result.Splits)
}

func TestValidator_RejectsZeroAmount(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig())
	splits := []ProposedSplit{
		{CategoryName: "Groceries", Amount: 42.00},
		{CategoryName: "Household", Amount: 0},
	}

	// Act
	result := v.Validate(42.00, splits, makeTaxonomy())

	// Assert
	assert.Equal(t, OutcomeInvalidAmount, result.Outcome)
}

func TestValidator_RejectsUnknownCategory(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig())
	splits := []ProposedSplit{
		{CategoryName: "Groceries", Amount: 20.00},
		{CategoryName: "Housing", Amount: 22.00},
	}

	// Act
	result := v.Validate(42.00, splits, makeTaxonomy())

	// Assert
	require.Equal(t, OutcomeUnknownCategory, result.Outcome)
	assert.Equal(t, "Housing", result.UnknownCategory)
	assert.Empty(t, result.Splits)
}

func TestValidator_NoFuzzyCategoryMatching(t *testing.T) {
	// A case difference is a data error, not a near-miss to repair
	// Arrange
	v := NewValidator(DefaultConfig())
	splits := []ProposedSplit{
		{CategoryName: "groceries", Amount: 20.00},
		{CategoryName: "Household", Amount: 22.00},
	}

	// Act
	result := v.Validate(42.00, splits, makeTaxonomy())

	// Assert
	require.Equal(t, OutcomeUnknownCategory, result.Outcome)
	assert.Equal(t, "groceries", result.UnknownCategory)
}

func TestValidator_UnknownSubcategoryDowngrades(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig())
	splits := []ProposedSplit{
		{CategoryName: "Groceries", SubcategoryName: "Snacks", Amount: 20.00},
		{CategoryName: "Household", Amount: 22.00},
	}

	// Act
	result := v.Validate(42.00, splits, makeTaxonomy())

	// Assert
	require.Equal(t, OutcomeAccepted, result.Outcome)
	assert.Nil(t, result.Splits[0].SubcategoryID)
	assert.Equal(t, []string{"Snacks"}, result.DowngradedSubcategories)
}

func TestValidator_KnownSubcategoryResolves(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig())
	splits := []ProposedSplit{
		{CategoryName: "Groceries", SubcategoryName: "Produce", Amount: 20.00},
		{CategoryName: "Household", Amount: 22.00},
	}

	// Act
	result := v.Validate(42.00, splits, makeTaxonomy())

	// Assert
	require.Equal(t, OutcomeAccepted, result.Outcome)
	require.NotNil(t, result.Splits[0].SubcategoryID)
	assert.Equal(t, "sub-produce", *result.Splits[0].SubcategoryID)
	assert.Equal(t, "Produce", result.Splits[0].SubcategoryName)
}

func TestValidator_OneCentDifferenceWithinTolerance(t *testing.T) {
	// Arrange
	v := NewValidator(DefaultConfig())
	splits := []ProposedSplit{
		{CategoryName: "Groceries", Amount: 20.00},
		{CategoryName: "Household", Amount: 22.01},
	}

	// Act
	result := v.Validate(42.00, splits, makeTaxonomy())

	// Assert
	require.Equal(t, OutcomeAccepted, result.Outcome)
	// The line items are trusted over the reported aggregate
	assert.InDelta(t, 42.01, result.Total, 0.001)
}

func TestValidator_FloatingPointSumsReconcile(t *testing.T) {
	// 0.1+0.2 style amounts must not trip the tolerance check
	// Arrange
	v := NewValidator(DefaultConfig())
	splits := []ProposedSplit{
		{CategoryName: "Groceries", Amount: 0.10},
		{CategoryName: "Household", Amount: 0.20},
	}

	// Act
	result := v.Validate(0.30, splits, makeTaxonomy())

	// Assert
	assert.Equal(t, OutcomeAccepted, result.Outcome)
}

func TestValidator_CustomTolerance(t *testing.T) {
	// Arrange
	v := NewValidator(Config{Tolerance: 0.05})
	splits := []ProposedSplit{
		{CategoryName: "Groceries", Amount: 20.00},
		{CategoryName: "Household", Amount: 22.04},
	}

	// Act
	result := v.Validate(42.00, splits, makeTaxonomy())

	// Assert
	assert.Equal(t, OutcomeAccepted, result.Outcome)
}
