// Package service orchestrates the receipt workflow: match a receipt to
// a transaction, analyze its images into proposed splits, validate the
// proposal and apply it atomically.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/cpenarrieta/personal-finance-backend/internal/cache"
	"github.com/cpenarrieta/personal-finance-backend/internal/domain/analyzer"
	"github.com/cpenarrieta/personal-finance-backend/internal/domain/matcher"
	"github.com/cpenarrieta/personal-finance-backend/internal/domain/splitter"
	"github.com/cpenarrieta/personal-finance-backend/internal/domain/validator"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// taxonomyCacheKey is the single key under which the category taxonomy
// is cached
const taxonomyCacheKey = "taxonomy"

// LineItem is one categorized line of a split request
type LineItem struct {
	Description     string
	Amount          float64
	CategoryID      *string
	CategoryName    string
	SubcategoryID   *string
	SubcategoryName string
}

// SplitResult reports a successfully applied split
type SplitResult struct {
	ParentID string
	ChildIDs []string
}

// AnalyzeRequest asks for split suggestions for one transaction
type AnalyzeRequest struct {
	TransactionID string
	ImageURLs     []string
}

// ReceiptService coordinates matcher, analyzer, validator and applier
// against the transaction store.
type ReceiptService struct {
	store        storage.Repository
	matcher      *matcher.Matcher
	validator    *validator.Validator
	analyzer     *analyzer.Analyzer
	logger       *slog.Logger
	lookbackDays int
	taxonomy     *cache.LRUCache[[]*storage.Category]
}

// NewReceiptService creates a new receipt service.
// If analyzer is nil, analysis endpoints report no suggestions.
func NewReceiptService(
	store storage.Repository,
	m *matcher.Matcher,
	v *validator.Validator,
	a *analyzer.Analyzer,
	lookbackDays int,
	logger *slog.Logger,
) *ReceiptService {
	if logger == nil {
		logger = slog.Default()
	}
	if lookbackDays <= 0 {
		lookbackDays = 30
	}

	return &ReceiptService{
		store:        store,
		matcher:      m,
		validator:    v,
		analyzer:     a,
		logger:       logger,
		lookbackDays: lookbackDays,
		taxonomy:     cache.NewLRUCache[[]*storage.Category](1, 5*time.Minute),
	}
}

// MatchReceipt returns the transactions most likely to correspond to
// the given receipt, best first.
func (s *ReceiptService) MatchReceipt(ctx context.Context, receipt matcher.Receipt) ([]matcher.Candidate, error) {
	pool, err := s.store.ListSplitCandidates(s.lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate transactions: %w", err)
	}

	candidates := s.matcher.Match(receipt, pool)

	s.logger.Debug("matched receipt against candidate pool",
		"merchant", receipt.MerchantName,
		"pool_size", len(pool),
		"candidates", len(candidates))

	return candidates, nil
}

// ConfirmMatch links a receipt to the transaction the user picked from
// the candidates. Split parents and split children cannot hold a
// receipt link.
func (s *ReceiptService) ConfirmMatch(ctx context.Context, transactionID, receiptID string) error {
	txn, err := s.store.GetTransaction(transactionID)
	if err != nil {
		return err
	}
	if txn.IsSplit {
		return storage.ErrAlreadySplit
	}
	if txn.ParentID != nil {
		return fmt.Errorf("cannot link a receipt to a split child")
	}

	if err := s.store.LinkReceipt(transactionID, receiptID); err != nil {
		return fmt.Errorf("failed to link receipt: %w", err)
	}

	s.logger.Info("linked receipt to transaction",
		"transaction_id", transactionID,
		"receipt_id", receiptID)

	return nil
}

// AnalyzeTransaction sends the receipt images to the vision backend and
// returns proposed splits for the given transaction.
//
// A backend failure or an empty proposal both yield no suggestions, not
// an error; every call is logged to the analysis_runs audit trail.
func (s *ReceiptService) AnalyzeTransaction(ctx context.Context, transactionID string, imageURLs []string) ([]validator.ProposedSplit, error) {
	parent, err := s.store.GetTransaction(transactionID)
	if err != nil {
		return nil, err
	}

	if s.analyzer == nil {
		return nil, nil
	}

	categories, err := s.categories()
	if err != nil {
		return nil, err
	}

	originalAmount := math.Abs(parent.Amount)

	start := time.Now()
	splits, analyzeErr := s.analyzer.AnalyzeReceipt(ctx, imageURLs, originalAmount, categories)
	duration := time.Since(start)

	s.logAnalysisRun(transactionID, imageURLs, originalAmount, splits, analyzeErr, duration)

	if analyzeErr != nil {
		// Treated as "no suggestions available"; the caller may prompt
		// the user for manual entry instead.
		s.logger.Warn("receipt analysis failed",
			"transaction_id", transactionID,
			"error", analyzeErr)
		return nil, nil
	}

	return splits, nil
}

// AnalyzeBatch runs independent analyses concurrently. Analyses share
// no mutable state, so ordering between them does not matter; results
// are returned in request order.
func (s *ReceiptService) AnalyzeBatch(ctx context.Context, requests []AnalyzeRequest) ([][]validator.ProposedSplit, error) {
	results := make([][]validator.ProposedSplit, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			splits, err := s.AnalyzeTransaction(gctx, req.TransactionID, req.ImageURLs)
			if err != nil {
				return err
			}
			results[i] = splits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// SplitTransaction validates the given line items against the parent
// transaction and, if they reconcile, applies the split atomically.
//
// Failure modes map onto the error taxonomy: storage.ErrNotFound,
// storage.ErrAlreadySplit, ErrNoSplitNeeded, ErrInvalidSplitAmount,
// *ReconciliationError and *UnknownCategoryError all leave the ledger
// untouched.
func (s *ReceiptService) SplitTransaction(ctx context.Context, parentID string, items []LineItem) (*SplitResult, error) {
	parent, err := s.store.GetTransaction(parentID)
	if err != nil {
		return nil, err
	}
	if parent.IsSplit {
		return nil, storage.ErrAlreadySplit
	}

	categories, err := s.categories()
	if err != nil {
		return nil, err
	}
	taxonomy := validator.NewTaxonomy(categories)

	groups, err := groupLineItems(items, taxonomy)
	if err != nil {
		return nil, err
	}

	result := s.validator.Validate(math.Abs(parent.Amount), groups, taxonomy)
	switch result.Outcome {
	case validator.OutcomeNoSplit:
		return nil, fmt.Errorf("%w: %s", ErrNoSplitNeeded, result.Reason)
	case validator.OutcomeInvalidAmount:
		return nil, fmt.Errorf("%w: %s", ErrInvalidSplitAmount, result.Reason)
	case validator.OutcomeAmountMismatch:
		return nil, &ReconciliationError{
			Expected:    result.Expected,
			Actual:      result.Actual,
			Discrepancy: result.Discrepancy,
		}
	case validator.OutcomeUnknownCategory:
		return nil, &UnknownCategoryError{Name: result.UnknownCategory}
	}

	for _, name := range result.DowngradedSubcategories {
		s.logger.Warn("unknown subcategory downgraded to none",
			"transaction_id", parentID,
			"subcategory", name)
	}

	children := splitter.BuildChildren(parent, result.Splits)

	if err := s.store.ApplySplit(parent.ID, children); err != nil {
		return nil, fmt.Errorf("failed to apply split: %w", err)
	}

	childIDs := make([]string, len(children))
	for i, child := range children {
		childIDs[i] = child.ID
	}

	s.logger.Info("applied transaction split",
		"parent_id", parent.ID,
		"children", len(childIDs))

	return &SplitResult{
		ParentID: parent.ID,
		ChildIDs: childIDs,
	}, nil
}

// groupLineItems groups line items by resolved category/subcategory and
// sums their amounts into split proposals.
func groupLineItems(items []LineItem, taxonomy validator.Taxonomy) ([]validator.ProposedSplit, error) {
	type group struct {
		split validator.ProposedSplit
		sum   decimal.Decimal
		descs []string
	}

	groups := make(map[string]*group)
	order := []string{}

	for _, item := range items {
		categoryName := item.CategoryName

		// A category ID takes precedence over a name; an unknown ID is
		// the same data error as an unknown name.
		if item.CategoryID != nil {
			cat, ok := taxonomy.CategoryByID(*item.CategoryID)
			if !ok {
				return nil, &UnknownCategoryError{Name: *item.CategoryID}
			}
			categoryName = cat.Name
		}

		subcategoryName := item.SubcategoryName
		if item.SubcategoryID != nil {
			if cat, ok := taxonomy.Category(categoryName); ok {
				for _, sub := range cat.Subcategories {
					if sub.ID == *item.SubcategoryID {
						subcategoryName = sub.Name
						break
					}
				}
			}
		}

		key := categoryName + "\x00" + subcategoryName
		g, exists := groups[key]
		if !exists {
			g = &group{
				split: validator.ProposedSplit{
					CategoryName:    categoryName,
					SubcategoryName: subcategoryName,
				},
			}
			groups[key] = g
			order = append(order, key)
		}

		g.sum = g.sum.Add(decimal.NewFromFloat(item.Amount))
		if item.Description != "" {
			g.descs = append(g.descs, item.Description)
		}
	}

	splits := make([]validator.ProposedSplit, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.split.Amount = g.sum.Round(2).InexactFloat64()
		g.split.ItemsSummary = summarize(g.descs)
		splits = append(splits, g.split)
	}

	return splits, nil
}

// summarize joins item descriptions, prefixing the count for long lists
func summarize(descs []string) string {
	if len(descs) == 0 {
		return ""
	}
	joined := strings.Join(descs, ", ")
	if len(descs) > 3 {
		return fmt.Sprintf("(%d items) %s", len(descs), joined)
	}
	return joined
}

// categories returns the taxonomy, cached briefly to keep analyze and
// split requests from hammering the store
func (s *ReceiptService) categories() ([]*storage.Category, error) {
	if cats, found := s.taxonomy.Get(taxonomyCacheKey); found {
		return cats, nil
	}

	cats, err := s.store.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	s.taxonomy.Set(taxonomyCacheKey, cats)
	return cats, nil
}

// logAnalysisRun records the vision call in the audit trail. Logging
// failures are reported but never fail the request.
func (s *ReceiptService) logAnalysisRun(
	transactionID string,
	imageURLs []string,
	originalAmount float64,
	splits []validator.ProposedSplit,
	analyzeErr error,
	duration time.Duration,
) {
	requestJSON, _ := json.Marshal(map[string]interface{}{
		"image_count":     len(imageURLs),
		"original_amount": originalAmount,
	})
	responseJSON, _ := json.Marshal(splits)

	run := &storage.AnalysisRun{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		Model:         s.analyzer.Model(),
		RequestJSON:   string(requestJSON),
		ResponseJSON:  string(responseJSON),
		DurationMs:    duration.Milliseconds(),
	}
	if analyzeErr != nil {
		run.Error = analyzeErr.Error()
	}

	if err := s.store.LogAnalysisRun(run); err != nil {
		s.logger.Warn("failed to log analysis run",
			"transaction_id", transactionID,
			"error", err)
	}
}
