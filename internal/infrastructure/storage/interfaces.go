package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadySplit is returned when a split is applied to a transaction
// that already has the is_split flag set.
var ErrAlreadySplit = errors.New("transaction is already split")

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	TransactionRepository
	CategoryRepository
	AnalysisRunRepository
	Close() error
}

// TransactionRepository handles transaction operations
type TransactionRepository interface {
	// SaveTransaction inserts or updates a transaction
	SaveTransaction(txn *Transaction) error

	// GetTransaction retrieves a transaction by ID.
	// Returns ErrNotFound if no such transaction exists.
	GetTransaction(id string) (*Transaction, error)

	// ListTransactions returns transactions matching the given filters
	ListTransactions(filters TransactionFilters) (*TransactionListResult, error)

	// ListChildren returns the child transactions of a split parent,
	// ordered by ID for determinism
	ListChildren(parentID string) ([]*Transaction, error)

	// ListSplitCandidates returns transactions eligible for receipt
	// matching: within the lookback window, not split, not a split
	// child, and not already linked to a receipt
	ListSplitCandidates(daysBack int) ([]*Transaction, error)

	// ApplySplit atomically creates all child transactions and flags the
	// parent as split. Either everything is written or nothing is: a
	// mid-batch failure must leave the parent unflagged with zero
	// children. Returns ErrAlreadySplit if the parent is already split.
	ApplySplit(parentID string, children []*Transaction) error

	// LinkReceipt associates a receipt with a transaction
	LinkReceipt(transactionID, receiptID string) error

	// GetStats returns aggregate statistics
	GetStats() (*Stats, error)
}

// TransactionFilters defines filters for listing transactions
type TransactionFilters struct {
	AccountID   string // Filter by account (empty = all)
	DaysBack    int    // How many days back to look (0 = all time)
	PendingOnly bool   // Only pending transactions
	Search      string // Substring match on name / merchant name
	Limit       int    // Max results (0 = default 50)
	Offset      int    // Pagination offset
}

// TransactionListResult contains paginated transaction results
type TransactionListResult struct {
	Transactions []*Transaction `json:"transactions"`
	TotalCount   int            `json:"total_count"`
	Limit        int            `json:"limit"`
	Offset       int            `json:"offset"`
}

// CategoryRepository handles the category taxonomy
type CategoryRepository interface {
	// ListCategories returns all categories with their subcategories
	ListCategories() ([]*Category, error)

	// GetCategoryByName retrieves a category (with subcategories) by
	// exact name. Returns ErrNotFound if no such category exists.
	GetCategoryByName(name string) (*Category, error)

	// SaveCategory inserts or updates a category
	SaveCategory(cat *Category) error

	// SaveSubcategory inserts or updates a subcategory
	SaveSubcategory(sub *Subcategory) error
}

// AnalysisRunRepository handles analysis call logging
type AnalysisRunRepository interface {
	// LogAnalysisRun logs a vision-model call to the database
	LogAnalysisRun(run *AnalysisRun) error

	// GetAnalysisRunsByTransaction retrieves all analysis runs for a
	// specific transaction, oldest first
	GetAnalysisRunsByTransaction(transactionID string) ([]AnalysisRun, error)
}
