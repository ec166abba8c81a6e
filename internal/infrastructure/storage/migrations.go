package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_analysis_runs_table",
		Up:      migration002AddAnalysisRunsTable,
	},
	{
		Version: 3,
		Name:    "add_receipt_link",
		Up:      migration003AddReceiptLink,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	// Ensure migrations table exists
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get applied migrations
	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	// Run pending migrations
	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		// Run migration in transaction
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		// Execute migration
		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		// Record migration
		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		// Commit
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		log.Printf("Migration %d complete", migration.Version)
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// ================================================================
// MIGRATION FUNCTIONS
// ================================================================

// migration001InitialSchema creates the transactions and taxonomy tables
func migration001InitialSchema(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS subcategories (
			id TEXT PRIMARY KEY,
			category_id TEXT NOT NULL,
			name TEXT NOT NULL,
			UNIQUE(category_id, name),
			FOREIGN KEY (category_id) REFERENCES categories(id)
		)`,

		// Main ledger table. parent_id references the split parent;
		// children are never themselves split.
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			amount REAL NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USD',
			date TIMESTAMP NOT NULL,
			pending BOOLEAN DEFAULT 0,
			merchant_name TEXT,
			name TEXT NOT NULL DEFAULT '',
			category_id TEXT,
			subcategory_id TEXT,
			notes TEXT NOT NULL DEFAULT '',
			is_split BOOLEAN DEFAULT 0,
			parent_id TEXT,
			original_id TEXT,
			manually_created BOOLEAN DEFAULT 0,
			FOREIGN KEY (category_id) REFERENCES categories(id),
			FOREIGN KEY (subcategory_id) REFERENCES subcategories(id),
			FOREIGN KEY (parent_id) REFERENCES transactions(id)
		)`,

		// Indexes for common queries
		`CREATE INDEX IF NOT EXISTS idx_transactions_account
		 ON transactions(account_id)`,

		`CREATE INDEX IF NOT EXISTS idx_transactions_date
		 ON transactions(date DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_transactions_parent
		 ON transactions(parent_id)`,

		`CREATE INDEX IF NOT EXISTS idx_subcategories_category
		 ON subcategories(category_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// migration002AddAnalysisRunsTable creates the analysis_runs table for
// logging vision-model calls
func migration002AddAnalysisRunsTable(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id TEXT PRIMARY KEY,
			transaction_id TEXT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			model TEXT NOT NULL,
			request_json TEXT,
			response_json TEXT,
			error TEXT,
			duration_ms INTEGER,
			FOREIGN KEY (transaction_id) REFERENCES transactions(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_analysis_runs_transaction
		 ON analysis_runs(transaction_id)`,

		`CREATE INDEX IF NOT EXISTS idx_analysis_runs_timestamp
		 ON analysis_runs(timestamp DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// migration003AddReceiptLink adds the receipt_id column to transactions.
// A non-NULL receipt_id excludes the transaction from match candidates.
func migration003AddReceiptLink(db *sql.Tx) error {
	query := `ALTER TABLE transactions ADD COLUMN receipt_id TEXT`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to add receipt_id column: %w", err)
	}

	return nil
}
