package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a healthy response with the current time.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID              string  `json:"id"`
	AccountID       string  `json:"account_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Date            string  `json:"date"`
	Pending         bool    `json:"pending"`
	MerchantName    string  `json:"merchant_name,omitempty"`
	Name            string  `json:"name"`
	CategoryID      *string `json:"category_id,omitempty"`
	SubcategoryID   *string `json:"subcategory_id,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	ReceiptID       *string `json:"receipt_id,omitempty"`
	IsSplit         bool    `json:"is_split"`
	ParentID        *string `json:"parent_id,omitempty"`
	ManuallyCreated bool    `json:"manually_created"`
}

// TransactionDetailResponse is a transaction with its split children.
type TransactionDetailResponse struct {
	TransactionResponse
	Children []TransactionResponse `json:"children,omitempty"`
}

// TransactionListResponse is returned when listing transactions.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalCount   int                   `json:"total_count"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// CandidateResponse is one scored match for a receipt.
type CandidateResponse struct {
	Transaction  TransactionResponse `json:"transaction"`
	Score        float64             `json:"score"`
	AmountDiff   float64             `json:"amount_diff"`
	DateDiff     float64             `json:"date_diff"`
	MatchReasons []string            `json:"match_reasons"`
}

// MatchReceiptResponse is returned when matching a receipt.
type MatchReceiptResponse struct {
	Candidates []CandidateResponse `json:"candidates"`
}

// ProposedSplitResponse is one split suggested by receipt analysis.
type ProposedSplitResponse struct {
	CategoryName    string  `json:"category_name"`
	SubcategoryName string  `json:"subcategory_name,omitempty"`
	Amount          float64 `json:"amount"`
	ItemsSummary    string  `json:"items_summary,omitempty"`
}

// AnalyzeReceiptResponse is returned when analyzing receipt images.
// An empty splits list means no usable suggestions were produced.
type AnalyzeReceiptResponse struct {
	TransactionID string                  `json:"transaction_id"`
	Splits        []ProposedSplitResponse `json:"splits"`
}

// SplitTransactionResponse is returned after a split is applied.
type SplitTransactionResponse struct {
	Success  bool     `json:"success"`
	ParentID string   `json:"parent_id"`
	ChildIDs []string `json:"child_ids"`
	Message  string   `json:"message,omitempty"`
}

// SubcategoryResponse represents a subcategory in API responses.
type SubcategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoryResponse represents a category with its subcategories.
type CategoryResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Subcategories []SubcategoryResponse `json:"subcategories"`
}

// CategoryListResponse is returned when listing the taxonomy.
type CategoryListResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	TotalTransactions int     `json:"total_transactions"`
	SplitParents      int     `json:"split_parents"`
	SplitChildren     int     `json:"split_children"`
	PendingCount      int     `json:"pending_count"`
	TotalExpenses     float64 `json:"total_expenses"`
	TotalIncome       float64 `json:"total_income"`
	AnalysisRuns      int     `json:"analysis_runs"`
}
