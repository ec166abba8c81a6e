package dto

import "errors"

// MatchReceiptRequest asks for transactions matching a scanned receipt.
type MatchReceiptRequest struct {
	MerchantName string  `json:"merchant_name"`
	TotalAmount  float64 `json:"total_amount"`
	Date         string  `json:"date,omitempty"` // YYYY-MM-DD, optional
}

// Validate checks that the match request is usable.
func (r *MatchReceiptRequest) Validate() error {
	if r.TotalAmount <= 0 {
		return errors.New("total_amount must be positive")
	}
	return nil
}

// AnalyzeReceiptRequest asks for split suggestions for a transaction
// from its receipt images.
type AnalyzeReceiptRequest struct {
	TransactionID string   `json:"transaction_id"`
	ImageURLs     []string `json:"image_urls"`
}

// Validate checks that the analyze request is usable.
func (r *AnalyzeReceiptRequest) Validate() error {
	if r.TransactionID == "" {
		return errors.New("transaction_id is required")
	}
	if len(r.ImageURLs) == 0 {
		return errors.New("at least one image URL is required")
	}
	return nil
}

// LinkReceiptRequest confirms which transaction a receipt belongs to.
type LinkReceiptRequest struct {
	TransactionID string `json:"transaction_id"`
	ReceiptID     string `json:"receipt_id"`
}

// Validate checks that the link request is usable.
func (r *LinkReceiptRequest) Validate() error {
	if r.TransactionID == "" {
		return errors.New("transaction_id is required")
	}
	if r.ReceiptID == "" {
		return errors.New("receipt_id is required")
	}
	return nil
}

// LineItemRequest is one categorized line of a split request. Either a
// category ID or a category name must be set; IDs win when both are.
type LineItemRequest struct {
	Description     string  `json:"description,omitempty"`
	Amount          float64 `json:"amount"`
	CategoryID      *string `json:"category_id,omitempty"`
	CategoryName    string  `json:"category_name,omitempty"`
	SubcategoryID   *string `json:"subcategory_id,omitempty"`
	SubcategoryName string  `json:"subcategory_name,omitempty"`
}

// SplitTransactionRequest asks to split a transaction into the given
// line items.
type SplitTransactionRequest struct {
	LineItems []LineItemRequest `json:"line_items"`
}

// Validate checks that the split request is structurally usable.
// Amount reconciliation and category resolution happen downstream.
func (r *SplitTransactionRequest) Validate() error {
	if len(r.LineItems) == 0 {
		return errors.New("line_items is required")
	}
	for _, item := range r.LineItems {
		if item.Amount <= 0 {
			return errors.New("line item amounts must be positive")
		}
		if item.CategoryID == nil && item.CategoryName == "" {
			return errors.New("each line item needs a category_id or category_name")
		}
	}
	return nil
}
