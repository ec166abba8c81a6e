package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for the ledger.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

const transactionColumns = `id, account_id, amount, currency, date, pending,
	merchant_name, name, category_id, subcategory_id, notes, receipt_id,
	is_split, parent_id, original_id, manually_created`

// SaveTransaction inserts or updates a transaction
func (s *Storage) SaveTransaction(txn *Transaction) error {
	query := `
	INSERT OR REPLACE INTO transactions
	(` + transactionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query, transactionArgs(txn)...)
	return err
}

// transactionArgs flattens a transaction into exec arguments in
// transactionColumns order
func transactionArgs(txn *Transaction) []interface{} {
	return []interface{}{
		txn.ID,
		txn.AccountID,
		txn.Amount,
		txn.Currency,
		txn.Date,
		txn.Pending,
		nullString(txn.MerchantName),
		txn.Name,
		txn.CategoryID,
		txn.SubcategoryID,
		txn.Notes,
		txn.ReceiptID,
		txn.IsSplit,
		txn.ParentID,
		txn.OriginalID,
		txn.ManuallyCreated,
	}
}

// GetTransaction retrieves a transaction by ID
func (s *Storage) GetTransaction(id string) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

	txn, err := scanTransaction(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	txn := &Transaction{}
	var merchantName sql.NullString

	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.Amount,
		&txn.Currency,
		&txn.Date,
		&txn.Pending,
		&merchantName,
		&txn.Name,
		&txn.CategoryID,
		&txn.SubcategoryID,
		&txn.Notes,
		&txn.ReceiptID,
		&txn.IsSplit,
		&txn.ParentID,
		&txn.OriginalID,
		&txn.ManuallyCreated,
	)
	if err != nil {
		return nil, err
	}

	if merchantName.Valid {
		txn.MerchantName = merchantName.String
	}

	return txn, nil
}

// ListTransactions returns transactions matching the given filters
func (s *Storage) ListTransactions(filters TransactionFilters) (*TransactionListResult, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	where := []string{"1=1"}
	args := []interface{}{}

	if filters.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, filters.AccountID)
	}
	if filters.DaysBack > 0 {
		where = append(where, "date > datetime('now', ?)")
		args = append(args, fmt.Sprintf("-%d days", filters.DaysBack))
	}
	if filters.PendingOnly {
		where = append(where, "pending = 1")
	}
	if filters.Search != "" {
		where = append(where, "(name LIKE ? OR merchant_name LIKE ?)")
		pattern := "%" + filters.Search + "%"
		args = append(args, pattern, pattern)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM transactions WHERE ` + whereClause
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE ` + whereClause + `
		ORDER BY date DESC, id ASC
		LIMIT ? OFFSET ?`
	args = append(args, limit, filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := &TransactionListResult{
		Transactions: make([]*Transaction, 0),
		TotalCount:   total,
		Limit:        limit,
		Offset:       filters.Offset,
	}

	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result.Transactions = append(result.Transactions, txn)
	}

	return result, rows.Err()
}

// ListChildren returns the child transactions of a split parent
func (s *Storage) ListChildren(parentID string) ([]*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE parent_id = ? ORDER BY id ASC`

	rows, err := s.db.Query(query, parentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var children []*Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, txn)
	}

	return children, rows.Err()
}

// ListSplitCandidates returns transactions eligible for receipt matching
func (s *Storage) ListSplitCandidates(daysBack int) ([]*Transaction, error) {
	if daysBack <= 0 {
		daysBack = 30
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE date > datetime('now', ?)
		  AND is_split = 0
		  AND parent_id IS NULL
		  AND receipt_id IS NULL
		ORDER BY date DESC, id ASC`

	rows, err := s.db.Query(query, fmt.Sprintf("-%d days", daysBack))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var candidates []*Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, txn)
	}

	return candidates, rows.Err()
}

// ApplySplit atomically creates all child transactions and flags the parent.
// The whole batch runs in one SQL transaction so a mid-batch failure
// leaves the parent in its original unsplit state.
func (s *Storage) ApplySplit(parentID string, children []*Transaction) error {
	if len(children) == 0 {
		return fmt.Errorf("no children to apply")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin split transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Re-check the parent inside the transaction to guard against a
	// concurrent split of the same parent.
	var isSplit bool
	err = tx.QueryRow(`SELECT is_split FROM transactions WHERE id = ?`, parentID).Scan(&isSplit)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if isSplit {
		return ErrAlreadySplit
	}

	insert := `
	INSERT INTO transactions
	(` + transactionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, child := range children {
		if _, err := tx.Exec(insert, transactionArgs(child)...); err != nil {
			return fmt.Errorf("failed to insert child %s: %w", child.ID, err)
		}
	}

	if _, err := tx.Exec(`UPDATE transactions SET is_split = 1 WHERE id = ?`, parentID); err != nil {
		return fmt.Errorf("failed to flag parent %s: %w", parentID, err)
	}

	return tx.Commit()
}

// LinkReceipt associates a receipt with a transaction
func (s *Storage) LinkReceipt(transactionID, receiptID string) error {
	result, err := s.db.Exec(`UPDATE transactions SET receipt_id = ? WHERE id = ?`,
		receiptID, transactionID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetStats returns aggregate ledger statistics
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{}

	query := `
	SELECT
		COUNT(*) as total,
		COUNT(CASE WHEN is_split = 1 THEN 1 END) as split_parents,
		COUNT(CASE WHEN parent_id IS NOT NULL THEN 1 END) as split_children,
		COUNT(CASE WHEN pending = 1 THEN 1 END) as pending,
		COALESCE(SUM(CASE WHEN amount < 0 AND is_split = 0 THEN -amount ELSE 0 END), 0) as expenses,
		COALESCE(SUM(CASE WHEN amount > 0 AND is_split = 0 THEN amount ELSE 0 END), 0) as income
	FROM transactions
	`

	err := s.db.QueryRow(query).Scan(
		&stats.TotalTransactions,
		&stats.SplitParents,
		&stats.SplitChildren,
		&stats.PendingCount,
		&stats.TotalExpenses,
		&stats.TotalIncome,
	)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`SELECT COUNT(*) FROM analysis_runs`).Scan(&stats.AnalysisRuns)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// ListCategories returns all categories with their subcategories
func (s *Storage) ListCategories() ([]*Category, error) {
	rows, err := s.db.Query(`SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var categories []*Category
	byID := make(map[string]*Category)
	for rows.Next() {
		cat := &Category{}
		if err := rows.Scan(&cat.ID, &cat.Name); err != nil {
			return nil, err
		}
		categories = append(categories, cat)
		byID[cat.ID] = cat
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subRows, err := s.db.Query(`SELECT id, category_id, name FROM subcategories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = subRows.Close() }()

	for subRows.Next() {
		var sub Subcategory
		if err := subRows.Scan(&sub.ID, &sub.CategoryID, &sub.Name); err != nil {
			return nil, err
		}
		if cat, ok := byID[sub.CategoryID]; ok {
			cat.Subcategories = append(cat.Subcategories, sub)
		}
	}

	return categories, subRows.Err()
}

// GetCategoryByName retrieves a category with subcategories by exact name
func (s *Storage) GetCategoryByName(name string) (*Category, error) {
	cat := &Category{}
	err := s.db.QueryRow(`SELECT id, name FROM categories WHERE name = ?`, name).
		Scan(&cat.ID, &cat.Name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT id, category_id, name FROM subcategories
		WHERE category_id = ? ORDER BY name ASC`, cat.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var sub Subcategory
		if err := rows.Scan(&sub.ID, &sub.CategoryID, &sub.Name); err != nil {
			return nil, err
		}
		cat.Subcategories = append(cat.Subcategories, sub)
	}

	return cat, rows.Err()
}

// SaveCategory inserts or updates a category
func (s *Storage) SaveCategory(cat *Category) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO categories (id, name) VALUES (?, ?)`,
		cat.ID, cat.Name)
	return err
}

// SaveSubcategory inserts or updates a subcategory
func (s *Storage) SaveSubcategory(sub *Subcategory) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO subcategories (id, category_id, name) VALUES (?, ?, ?)`,
		sub.ID, sub.CategoryID, sub.Name)
	return err
}

// LogAnalysisRun logs a vision-model call to the database
func (s *Storage) LogAnalysisRun(run *AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs
		(id, transaction_id, model, request_json, response_json, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.ID,
		run.TransactionID,
		run.Model,
		run.RequestJSON,
		run.ResponseJSON,
		run.Error,
		run.DurationMs,
	)

	return err
}

// GetAnalysisRunsByTransaction retrieves all analysis runs for a transaction
func (s *Storage) GetAnalysisRunsByTransaction(transactionID string) ([]AnalysisRun, error) {
	query := `
		SELECT id, transaction_id, model, request_json, response_json, error, duration_ms, timestamp
		FROM analysis_runs
		WHERE transaction_id = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.db.Query(query, transactionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []AnalysisRun
	for rows.Next() {
		var run AnalysisRun
		err := rows.Scan(
			&run.ID,
			&run.TransactionID,
			&run.Model,
			&run.RequestJSON,
			&run.ResponseJSON,
			&run.Error,
			&run.DurationMs,
			&run.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// nullString converts an empty string to a NULL database value
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
