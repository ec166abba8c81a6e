package storage

import (
	"sort"
	"strings"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	transactions map[string]*Transaction
	categories   map[string]*Category // keyed by name
	runs         []AnalysisRun

	// Hooks for test assertions
	ApplySplitCalled     bool
	LastAppliedParentID  string
	LastAppliedChildren  []*Transaction
	LogAnalysisRunCalled bool
	LastAnalysisRun      *AnalysisRun

	// Error injection for testing error paths
	GetTransactionErr error
	ListCandidatesErr error
	ApplySplitErr     error
	LogAnalysisRunErr error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		transactions: make(map[string]*Transaction),
		categories:   make(map[string]*Category),
		runs:         make([]AnalysisRun, 0),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveTransaction stores a transaction in the in-memory map
func (m *MockRepository) SaveTransaction(txn *Transaction) error {
	copied := *txn
	m.transactions[txn.ID] = &copied
	return nil
}

// GetTransaction retrieves a transaction from the in-memory map
func (m *MockRepository) GetTransaction(id string) (*Transaction, error) {
	if m.GetTransactionErr != nil {
		return nil, m.GetTransactionErr
	}
	txn, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *txn
	return &copied, nil
}

// ListTransactions returns all stored transactions matching the filters
func (m *MockRepository) ListTransactions(filters TransactionFilters) (*TransactionListResult, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	matched := make([]*Transaction, 0)
	for _, txn := range m.transactions {
		if filters.AccountID != "" && txn.AccountID != filters.AccountID {
			continue
		}
		if filters.PendingOnly && !txn.Pending {
			continue
		}
		if filters.DaysBack > 0 {
			cutoff := time.Now().AddDate(0, 0, -filters.DaysBack)
			if txn.Date.Before(cutoff) {
				continue
			}
		}
		if filters.Search != "" {
			search := strings.ToLower(filters.Search)
			if !strings.Contains(strings.ToLower(txn.Name), search) &&
				!strings.Contains(strings.ToLower(txn.MerchantName), search) {
				continue
			}
		}
		copied := *txn
		matched = append(matched, &copied)
	}

	sortTransactions(matched)

	result := &TransactionListResult{
		Transactions: matched,
		TotalCount:   len(matched),
		Limit:        limit,
		Offset:       filters.Offset,
	}

	if filters.Offset < len(matched) {
		end := filters.Offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		result.Transactions = matched[filters.Offset:end]
	} else {
		result.Transactions = []*Transaction{}
	}

	return result, nil
}

// ListChildren returns the child transactions of a split parent
func (m *MockRepository) ListChildren(parentID string) ([]*Transaction, error) {
	var children []*Transaction
	for _, txn := range m.transactions {
		if txn.ParentID != nil && *txn.ParentID == parentID {
			copied := *txn
			children = append(children, &copied)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children, nil
}

// ListSplitCandidates returns transactions eligible for receipt matching
func (m *MockRepository) ListSplitCandidates(daysBack int) ([]*Transaction, error) {
	if m.ListCandidatesErr != nil {
		return nil, m.ListCandidatesErr
	}
	if daysBack <= 0 {
		daysBack = 30
	}
	cutoff := time.Now().AddDate(0, 0, -daysBack)

	var candidates []*Transaction
	for _, txn := range m.transactions {
		if txn.IsSplit || txn.ParentID != nil || txn.ReceiptID != nil {
			continue
		}
		if txn.Date.Before(cutoff) {
			continue
		}
		copied := *txn
		candidates = append(candidates, &copied)
	}

	sortTransactions(candidates)
	return candidates, nil
}

// ApplySplit mimics the atomic split application. Error injection leaves
// the store untouched, matching the rollback behavior of the real store.
func (m *MockRepository) ApplySplit(parentID string, children []*Transaction) error {
	m.ApplySplitCalled = true
	m.LastAppliedParentID = parentID
	m.LastAppliedChildren = children

	if m.ApplySplitErr != nil {
		return m.ApplySplitErr
	}

	parent, ok := m.transactions[parentID]
	if !ok {
		return ErrNotFound
	}
	if parent.IsSplit {
		return ErrAlreadySplit
	}

	for _, child := range children {
		copied := *child
		m.transactions[child.ID] = &copied
	}
	parent.IsSplit = true

	return nil
}

// LinkReceipt associates a receipt with a transaction
func (m *MockRepository) LinkReceipt(transactionID, receiptID string) error {
	txn, ok := m.transactions[transactionID]
	if !ok {
		return ErrNotFound
	}
	txn.ReceiptID = &receiptID
	return nil
}

// GetStats returns statistics over the in-memory data
func (m *MockRepository) GetStats() (*Stats, error) {
	stats := &Stats{AnalysisRuns: len(m.runs)}
	for _, txn := range m.transactions {
		stats.TotalTransactions++
		if txn.IsSplit {
			stats.SplitParents++
		}
		if txn.ParentID != nil {
			stats.SplitChildren++
		}
		if txn.Pending {
			stats.PendingCount++
		}
		if !txn.IsSplit {
			if txn.Amount < 0 {
				stats.TotalExpenses += -txn.Amount
			} else {
				stats.TotalIncome += txn.Amount
			}
		}
	}
	return stats, nil
}

// ListCategories returns all stored categories
func (m *MockRepository) ListCategories() ([]*Category, error) {
	categories := make([]*Category, 0, len(m.categories))
	for _, cat := range m.categories {
		copied := *cat
		categories = append(categories, &copied)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// GetCategoryByName retrieves a category by exact name
func (m *MockRepository) GetCategoryByName(name string) (*Category, error) {
	cat, ok := m.categories[name]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *cat
	return &copied, nil
}

// SaveCategory stores a category
func (m *MockRepository) SaveCategory(cat *Category) error {
	copied := *cat
	m.categories[cat.Name] = &copied
	return nil
}

// SaveSubcategory attaches a subcategory to its category
func (m *MockRepository) SaveSubcategory(sub *Subcategory) error {
	for _, cat := range m.categories {
		if cat.ID == sub.CategoryID {
			cat.Subcategories = append(cat.Subcategories, *sub)
			return nil
		}
	}
	return ErrNotFound
}

// LogAnalysisRun records an analysis run in memory
func (m *MockRepository) LogAnalysisRun(run *AnalysisRun) error {
	m.LogAnalysisRunCalled = true
	m.LastAnalysisRun = run
	if m.LogAnalysisRunErr != nil {
		return m.LogAnalysisRunErr
	}
	m.runs = append(m.runs, *run)
	return nil
}

// GetAnalysisRunsByTransaction retrieves logged runs for a transaction
func (m *MockRepository) GetAnalysisRunsByTransaction(transactionID string) ([]AnalysisRun, error) {
	var runs []AnalysisRun
	for _, run := range m.runs {
		if run.TransactionID == transactionID {
			runs = append(runs, run)
		}
	}
	return runs, nil
}

// sortTransactions orders by date descending, then ID for determinism
func sortTransactions(txns []*Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
}
