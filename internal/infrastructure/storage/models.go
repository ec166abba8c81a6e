package storage

import (
	"time"
)

// Transaction is a ledger entry. Amounts are signed: negative for
// expenses, positive for income. A split parent keeps its original
// amount; its children carry the per-category portions.
type Transaction struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	Date            time.Time `json:"date"`
	Pending         bool      `json:"pending"`
	MerchantName    string    `json:"merchant_name,omitempty"`
	Name            string    `json:"name"`
	CategoryID      *string   `json:"category_id,omitempty"`
	SubcategoryID   *string   `json:"subcategory_id,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	ReceiptID       *string   `json:"receipt_id,omitempty"`
	IsSplit         bool      `json:"is_split"`
	ParentID        *string   `json:"parent_id,omitempty"`
	OriginalID      *string   `json:"original_id,omitempty"`
	ManuallyCreated bool      `json:"manually_created"`
}

// Category is a top-level classification. Subcategories always belong
// to exactly one category.
type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Subcategories []Subcategory `json:"subcategories,omitempty"`
}

// Subcategory is a second-level classification under a category.
type Subcategory struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

// AnalysisRun is a logged call to the vision/analysis backend.
// Kept for auditing and for debugging bad model proposals.
type AnalysisRun struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	Model         string `json:"model"`
	RequestJSON   string `json:"request_json,omitempty"`
	ResponseJSON  string `json:"response_json,omitempty"`
	Error         string `json:"error,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
	Timestamp     string `json:"timestamp,omitempty"`
}

// Stats contains aggregate ledger statistics.
type Stats struct {
	TotalTransactions int     `json:"total_transactions"`
	SplitParents      int     `json:"split_parents"`
	SplitChildren     int     `json:"split_children"`
	PendingCount      int     `json:"pending_count"`
	TotalExpenses     float64 `json:"total_expenses"`
	TotalIncome       float64 `json:"total_income"`
	AnalysisRuns      int     `json:"analysis_runs"`
}
