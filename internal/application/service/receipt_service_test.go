package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpenarrieta/personal-finance-backend/internal/domain/analyzer"
	"github.com/cpenarrieta/personal-finance-backend/internal/domain/matcher"
	"github.com/cpenarrieta/personal-finance-backend/internal/domain/validator"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// fakeVisionClient returns a canned chat-completion response
type fakeVisionClient struct {
	content string
	err     error
}

func (f *fakeVisionClient) CreateChatCompletion(_ context.Context, _ analyzer.ChatCompletionRequest) (*analyzer.ChatCompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp := &analyzer.ChatCompletionResponse{Choices: []analyzer.Choice{{}}}
	resp.Choices[0].Message.Content = f.content
	return resp, nil
}

// Helper to build a service over a seeded mock store
func makeService(t *testing.T, store *storage.MockRepository, visionClient analyzer.VisionClient) *ReceiptService {
	t.Helper()

	var a *analyzer.Analyzer
	if visionClient != nil {
		a = analyzer.NewAnalyzer(visionClient, "gpt-4o")
	}

	return NewReceiptService(
		store,
		matcher.NewMatcher(matcher.DefaultConfig()),
		validator.NewValidator(validator.DefaultConfig()),
		a,
		30,
		nil,
	)
}

func seedStore(t *testing.T) *storage.MockRepository {
	t.Helper()
	store := storage.NewMockRepository()

	require.NoError(t, store.SaveCategory(&storage.Category{ID: "cat-g", Name: "Groceries"}))
	require.NoError(t, store.SaveCategory(&storage.Category{ID: "cat-h", Name: "Household"}))

	require.NoError(t, store.SaveTransaction(&storage.Transaction{
		ID:           "tx1",
		AccountID:    "acct-1",
		Amount:       -42.00,
		Currency:     "USD",
		Date:         time.Now().UTC().AddDate(0, 0, -2),
		MerchantName: "Costco",
		Name:         "Costco Wholesale",
	}))

	return store
}

func TestSplitTransaction_Success(t *testing.T) {
	// Arrange
	store := seedStore(t)
	svc := makeService(t, store, nil)

	items := []LineItem{
		{Description: "milk", Amount: 20.00, CategoryName: "Groceries"},
		{Description: "detergent", Amount: 22.00, CategoryName: "Household"},
	}

	// Act
	result, err := svc.SplitTransaction(context.Background(), "tx1", items)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "tx1", result.ParentID)
	assert.Equal(t, []string{"tx1-split-1", "tx1-split-2"}, result.ChildIDs)

	parent, err := store.GetTransaction("tx1")
	require.NoError(t, err)
	assert.True(t, parent.IsSplit)

	children, err := store.ListChildren("tx1")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, -20.00, children[0].Amount)
	assert.Equal(t, -22.00, children[1].Amount)
	require.NotNil(t, children[0].CategoryID)
	assert.Equal(t, "cat-g", *children[0].CategoryID)
}

func TestSplitTransaction_GroupsItemsByCategory(t *testing.T) {
	// Arrange
	store := seedStore(t)
	svc := makeService(t, store, nil)

	items := []LineItem{
		{Description: "milk", Amount: 12.00, CategoryName: "Groceries"},
		{Description: "eggs", Amount: 8.00, CategoryName: "Groceries"},
		{Description: "detergent", Amount: 22.00, CategoryName: "Household"},
	}

	// Act
	result, err := svc.SplitTransaction(context.Background(), "tx1", items)

	// Assert: the two grocery items collapse into one child
	require.NoError(t, err)
	require.Len(t, result.ChildIDs, 2)

	children, err := store.ListChildren("tx1")
	require.NoError(t, err)
	assert.Equal(t, -20.00, children[0].Amount)
	assert.Contains(t, children[0].Name, "milk, eggs")
}

func TestSplitTransaction_ResolvesCategoryIDs(t *testing.T) {
	// Arrange
	store := seedStore(t)
	svc := makeService(t, store, nil)

	catG := "cat-g"
	items := []LineItem{
		{Amount: 20.00, CategoryID: &catG},
		{Amount: 22.00, CategoryName: "Household"},
	}

	// Act
	_, err := svc.SplitTransaction(context.Background(), "tx1", items)

	// Assert
	require.NoError(t, err)
	children, err := store.ListChildren("tx1")
	require.NoError(t, err)
	require.NotNil(t, children[0].CategoryID)
	assert.Equal(t, "cat-g", *children[0].CategoryID)
}

func TestSplitTransaction_AmountMismatch(t *testing.T) {
	// Arrange
	store := seedStore(t)
	svc := makeService(t, store, nil)

	items := []LineItem{
		{Amount: 20.00, CategoryName: "Groceries"},
		{Amount: 20.00, CategoryName: "Household"},
	}

	// Act
	_, err := svc.SplitTransaction(context.Background(), "tx1", items)

	// Assert
	var reconcileErr *ReconciliationError
	require.ErrorAs(t, err, &reconcileErr)
	assert.InDelta(t, 42.00, reconcileErr.Expected, 0.001)
	assert.InDelta(t, 40.00, reconcileErr.Actual, 0.001)
	assert.InDelta(t, 2.00, reconcileErr.Discrepancy, 0.001)

	// Nothing was written
	parent, getErr := store.GetTransaction("tx1")
	require.NoError(t, getErr)
	assert.False(t, parent.IsSplit)
	assert.False(t, store.ApplySplitCalled)
}

func TestSplitTransaction_UnknownCategoryIsAllOrNothing(t *testing.T) {
	// Arrange
	store := seedStore(t)
	svc := makeService(t, store, nil)

	items := []LineItem{
		{Amount: 20.00, CategoryName: "Groceries"},
		{Amount: 22.00, CategoryName: "Housing"},
	}

	// Act
	_, err := svc.SplitTransaction(context.Background(), "tx1", items)

	// Assert
	var categoryErr *UnknownCategoryError
	require.ErrorAs(t, err, &categoryErr)
	assert.Equal(t, "Housing", categoryErr.Name)
	assert.False(t, store.ApplySplitCalled)
}

func TestSplitTransaction_RejectsNegativeLineItem(t *testing.T) {
	// A negative item can cancel against another category and still
	// reconcile (50 - 8 = 42); the ledger would end up with children
	// summing to -58 against a -42 parent
	// Arrange
	store := seedStore(t)
	svc := makeService(t, store, nil)

	items := []LineItem{
		{Description: "groceries", Amount: 50.00, CategoryName: "Groceries"},
		{Description: "refund", Amount: -8.00, CategoryName: "Household"},
	}

	// Act
	_, err := svc.SplitTransaction(context.Background(), "tx1", items)

	// Assert
	require.ErrorIs(t, err, ErrInvalidSplitAmount)
	parent, getErr := store.GetTransaction("tx1")
	require.NoError(t, getErr)
	assert.False(t, parent.IsSplit)
	assert.False(t, store.ApplySplitCalled)
}

func TestSplitTransaction_SingleCategoryNeedsNoSplit(t *testing.T) {
	// Arrange
	store := seedStore(t)
	svc := makeService(t, store, nil)

	items := []LineItem{
		{Description: "milk", Amount: 30.00, CategoryName: "Groceries"},
		{Description: "eggs", Amount: 12.00, CategoryName: "Groceries"},
	}

	// Act
	_, err := svc.SplitTransaction(context.Background(), "tx1", items)

	// Assert
	assert.ErrorIs(t, err, ErrNoSplitNeeded)
	assert.False(t, store.ApplySplitCalled)
}

func TestSplitTransaction_ParentNotFound(t *testing.T) {
	// Arrange
	svc := makeService(t, seedStore(t), nil)

	// Act
	_, err := svc.SplitTransaction(context.Background(), "missing", []LineItem{
		{Amount: 20.00, CategoryName: "Groceries"},
		{Amount: 22.00, CategoryName: "Household"},
	})

	// Assert
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSplitTransaction_AlreadySplit(t *testing.T) {
	// Arrange
	store := seedStore(t)
	require.NoError(t, store.SaveTransaction(&storage.Transaction{
		ID:      "tx-split",
		Amount:  -10.00,
		Date:    time.Now().UTC(),
		Name:    "Already split",
		IsSplit: true,
	}))
	svc := makeService(t, store, nil)

	// Act
	_, err := svc.SplitTransaction(context.Background(), "tx-split", []LineItem{
		{Amount: 5.00, CategoryName: "Groceries"},
		{Amount: 5.00, CategoryName: "Household"},
	})

	// Assert
	assert.ErrorIs(t, err, storage.ErrAlreadySplit)
}

func TestSplitTransaction_StorageFailureSurfaces(t *testing.T) {
	// Arrange
	store := seedStore(t)
	store.ApplySplitErr = errors.New("disk full")
	svc := makeService(t, store, nil)

	// Act
	_, err := svc.SplitTransaction(context.Background(), "tx1", []LineItem{
		{Amount: 20.00, CategoryName: "Groceries"},
		{Amount: 22.00, CategoryName: "Household"},
	})

	// Assert: the error surfaces and the parent stays unsplit
	require.Error(t, err)
	parent, getErr := store.GetTransaction("tx1")
	require.NoError(t, getErr)
	assert.False(t, parent.IsSplit)
}

func TestMatchReceipt_ReturnsScoredCandidates(t *testing.T) {
	// Arrange
	store := seedStore(t)
	svc := makeService(t, store, nil)

	receipt := matcher.Receipt{
		MerchantName: "Costco",
		TotalAmount:  42.00,
	}

	// Act
	candidates, err := svc.MatchReceipt(context.Background(), receipt)

	// Assert
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "tx1", candidates[0].Transaction.ID)
	assert.Contains(t, candidates[0].MatchReasons, "Exact amount match")
}

func TestAnalyzeTransaction_ReturnsSuggestionsAndLogsRun(t *testing.T) {
	// Arrange
	store := seedStore(t)
	client := &fakeVisionClient{content: `{"splits":[
		{"category_name":"Groceries","amount":20.00},
		{"category_name":"Household","amount":22.00}
	]}`}
	svc := makeService(t, store, client)

	// Act
	splits, err := svc.AnalyzeTransaction(context.Background(), "tx1", []string{"https://example.com/r.jpg"})

	// Assert
	require.NoError(t, err)
	require.Len(t, splits, 2)
	assert.Equal(t, "Groceries", splits[0].CategoryName)

	require.True(t, store.LogAnalysisRunCalled)
	assert.Equal(t, "tx1", store.LastAnalysisRun.TransactionID)
	assert.Equal(t, "gpt-4o", store.LastAnalysisRun.Model)
	assert.Empty(t, store.LastAnalysisRun.Error)
}

func TestAnalyzeTransaction_BackendFailureMeansNoSuggestions(t *testing.T) {
	// Arrange
	store := seedStore(t)
	client := &fakeVisionClient{err: errors.New("upstream timeout")}
	svc := makeService(t, store, client)

	// Act
	splits, err := svc.AnalyzeTransaction(context.Background(), "tx1", []string{"https://example.com/r.jpg"})

	// Assert: a failed analysis is "no suggestions", not an error
	require.NoError(t, err)
	assert.Nil(t, splits)

	// The failure still lands in the audit trail
	require.True(t, store.LogAnalysisRunCalled)
	assert.Contains(t, store.LastAnalysisRun.Error, "upstream timeout")
}

func TestAnalyzeTransaction_UnknownTransaction(t *testing.T) {
	// Arrange
	svc := makeService(t, seedStore(t), &fakeVisionClient{content: `{"splits":[]}`})

	// Act
	_, err := svc.AnalyzeTransaction(context.Background(), "missing", []string{"https://example.com/r.jpg"})

	// Assert
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAnalyzeTransaction_NoAnalyzerConfigured(t *testing.T) {
	// Arrange
	svc := makeService(t, seedStore(t), nil)

	// Act
	splits, err := svc.AnalyzeTransaction(context.Background(), "tx1", []string{"https://example.com/r.jpg"})

	// Assert
	require.NoError(t, err)
	assert.Nil(t, splits)
}

func TestAnalyzeBatch_ReturnsResultsInRequestOrder(t *testing.T) {
	// Arrange
	store := seedStore(t)
	require.NoError(t, store.SaveTransaction(&storage.Transaction{
		ID:     "tx2",
		Amount: -10.00,
		Date:   time.Now().UTC(),
		Name:   "Second",
	}))
	client := &fakeVisionClient{content: `{"splits":[
		{"category_name":"Groceries","amount":5.00},
		{"category_name":"Household","amount":5.00}
	]}`}
	svc := makeService(t, store, client)

	requests := []AnalyzeRequest{
		{TransactionID: "tx1", ImageURLs: []string{"https://example.com/a.jpg"}},
		{TransactionID: "tx2", ImageURLs: []string{"https://example.com/b.jpg"}},
	}

	// Act
	results, err := svc.AnalyzeBatch(context.Background(), requests)

	// Assert
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0], 2)
	assert.Len(t, results[1], 2)
}

func TestConfirmMatch_LinksReceipt(t *testing.T) {
	// Arrange
	store := seedStore(t)
	svc := makeService(t, store, nil)

	// Act
	err := svc.ConfirmMatch(context.Background(), "tx1", "rcpt-1")

	// Assert
	require.NoError(t, err)
	txn, err := store.GetTransaction("tx1")
	require.NoError(t, err)
	require.NotNil(t, txn.ReceiptID)
	assert.Equal(t, "rcpt-1", *txn.ReceiptID)
}

func TestConfirmMatch_RejectsSplitParent(t *testing.T) {
	// Arrange
	store := seedStore(t)
	require.NoError(t, store.SaveTransaction(&storage.Transaction{
		ID:      "tx-split",
		Amount:  -10.00,
		Date:    time.Now().UTC(),
		Name:    "Already split",
		IsSplit: true,
	}))
	svc := makeService(t, store, nil)

	// Act
	err := svc.ConfirmMatch(context.Background(), "tx-split", "rcpt-1")

	// Assert
	assert.ErrorIs(t, err, storage.ErrAlreadySplit)
}
