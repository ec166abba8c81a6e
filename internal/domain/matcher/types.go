package matcher

import (
	"time"

	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// Config holds matcher configuration
type Config struct {
	AmountWeight   float64 // Weight of the amount signal (default: 0.5)
	MerchantWeight float64 // Weight of the merchant-name signal (default: 0.3)
	DateWeight     float64 // Weight of the date signal (default: 0.2)

	AmountTolerance   float64 // Exact-match tolerance in dollars (default: 0.01)
	AmountSlack       float64 // Relative difference where the amount score reaches zero (default: 0.05)
	DateToleranceDays int     // Days where the date score reaches zero (default: 7)

	MinScore   float64 // Candidates below this composite score are dropped (default: 0.4)
	MaxResults int     // Top-K cutoff (default: 5)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		AmountWeight:      0.5,
		MerchantWeight:    0.3,
		DateWeight:        0.2,
		AmountTolerance:   0.01,
		AmountSlack:       0.05,
		DateToleranceDays: 7,
		MinScore:          0.4,
		MaxResults:        5,
	}
}

// Receipt holds the fields extracted from an uploaded receipt.
// Date is nil when the receipt carries no readable date.
type Receipt struct {
	MerchantName string
	TotalAmount  float64
	Date         *time.Time
}

// Candidate is a scored match against an existing transaction
type Candidate struct {
	Transaction  *storage.Transaction
	Score        float64  // Composite weighted score, 0-1
	AmountDiff   float64  // Absolute amount difference in dollars
	DateDiff     float64  // Days difference (0 when the receipt has no date)
	MatchReasons []string // Human-readable reasons, for transparency
}
