// Package splitter materializes validated splits as child transactions.
package splitter

import (
	"fmt"
	"math"

	"github.com/cpenarrieta/personal-finance-backend/internal/domain/validator"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// BuildChildren creates one child transaction per resolved split.
//
// Each child:
//   - belongs to the parent's account and keeps its date and currency,
//   - carries the split amount with the parent's sign (an expense parent
//     produces expense children, an income parent income children),
//   - gets a deterministic ID derived from the parent ID and index so a
//     retried application collides instead of duplicating,
//   - references the resolved category/subcategory and the parent,
//   - is itself not split and marked manually created.
//
// The caller persists the children together with the parent's is_split
// flag through storage.ApplySplit; nothing is written here.
func BuildChildren(parent *storage.Transaction, splits []validator.ResolvedSplit) []*storage.Transaction {
	sign := 1.0
	if parent.Amount < 0 {
		sign = -1.0
	}

	children := make([]*storage.Transaction, 0, len(splits))
	for i, split := range splits {
		categoryID := split.CategoryID
		parentID := parent.ID

		child := &storage.Transaction{
			ID:              fmt.Sprintf("%s-split-%d", parent.ID, i+1),
			AccountID:       parent.AccountID,
			Amount:          sign * math.Abs(split.Amount),
			Currency:        parent.Currency,
			Date:            parent.Date,
			Pending:         false,
			MerchantName:    parent.MerchantName,
			Name:            childName(parent, split),
			CategoryID:      &categoryID,
			SubcategoryID:   split.SubcategoryID,
			Notes:           childNotes(parent, split),
			IsSplit:         false,
			ParentID:        &parentID,
			ManuallyCreated: true,
		}

		children = append(children, child)
	}

	return children
}

// childName derives the child's display name from the parent name and
// the split's item summary
func childName(parent *storage.Transaction, split validator.ResolvedSplit) string {
	if split.ItemsSummary == "" {
		return fmt.Sprintf("%s (%s)", parent.Name, split.CategoryName)
	}
	return fmt.Sprintf("%s - %s", parent.Name, split.ItemsSummary)
}

// childNotes tags the child as a generated split for auditability
func childNotes(parent *storage.Transaction, split validator.ResolvedSplit) string {
	notes := fmt.Sprintf("Auto-generated split of %s", parent.ID)
	if split.ItemsSummary != "" {
		notes = fmt.Sprintf("%s: %s", notes, split.ItemsSummary)
	}
	return notes
}
