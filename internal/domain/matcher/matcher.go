// Package matcher scores existing transactions against an uploaded
// receipt so the caller can link the receipt to the right ledger entry.
//
// Three weighted signals feed a composite score:
//   - Amount closeness (exact within 1 cent scores highest, linear
//     decay up to a relative slack, zero beyond)
//   - Merchant-name similarity (case-insensitive exact, containment or
//     token overlap)
//   - Date proximity (same day scores highest, zero beyond tolerance)
//
// Candidates below a minimum score are dropped and the rest are
// returned best-first with human-readable match reasons.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	candidates := m.Match(receipt, transactions)
package matcher

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// Matcher matches receipts with existing transactions
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config,
	}
}

// Match scores the candidate pool against the receipt and returns the
// top candidates, best first. An empty pool yields an empty slice.
//
// Matching is pure: identical inputs always produce the same ordered
// result.
func (m *Matcher) Match(receipt Receipt, transactions []*storage.Transaction) []Candidate {
	amountWeight := m.config.AmountWeight
	merchantWeight := m.config.MerchantWeight
	dateWeight := m.config.DateWeight

	// Without a receipt date the date signal contributes nothing, so
	// renormalize the remaining weights to keep a perfect
	// amount+merchant match at score 1.0.
	if receipt.Date == nil {
		remaining := amountWeight + merchantWeight
		if remaining > 0 {
			amountWeight /= remaining
			merchantWeight /= remaining
		}
		dateWeight = 0
	}

	candidates := make([]Candidate, 0, len(transactions))

	for _, txn := range transactions {
		// Defensive: the store query already excludes these, but a
		// caller-supplied pool may not.
		if txn.IsSplit || txn.ParentID != nil || txn.ReceiptID != nil {
			continue
		}

		amountScore, amountDiff := m.scoreAmount(receipt.TotalAmount, math.Abs(txn.Amount))
		merchantScore := m.scoreMerchant(receipt.MerchantName, txn)

		var dateScore, dateDiff float64
		if receipt.Date != nil {
			dateDiff = math.Abs(txn.Date.Sub(*receipt.Date).Hours() / 24)
			dateScore = m.scoreDate(dateDiff)
		}

		score := amountWeight*amountScore + merchantWeight*merchantScore + dateWeight*dateScore
		if score < m.config.MinScore {
			continue
		}

		candidate := Candidate{
			Transaction:  txn,
			Score:        score,
			AmountDiff:   amountDiff,
			DateDiff:     dateDiff,
			MatchReasons: m.buildReasons(receipt, amountScore, amountDiff, merchantScore, dateScore, dateDiff),
		}

		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].DateDiff != candidates[j].DateDiff {
			return candidates[i].DateDiff < candidates[j].DateDiff
		}
		if candidates[i].AmountDiff != candidates[j].AmountDiff {
			return candidates[i].AmountDiff < candidates[j].AmountDiff
		}
		return candidates[i].Transaction.ID < candidates[j].Transaction.ID
	})

	if m.config.MaxResults > 0 && len(candidates) > m.config.MaxResults {
		candidates = candidates[:m.config.MaxResults]
	}

	return candidates
}

// scoreAmount returns the amount signal (0-1) and the absolute difference
func (m *Matcher) scoreAmount(receiptAmount, txnAmount float64) (float64, float64) {
	diff := math.Abs(receiptAmount - txnAmount)

	// Small epsilon to handle floating point precision issues
	const epsilon = 0.0000001
	if diff <= m.config.AmountTolerance+epsilon {
		return 1.0, diff
	}

	if receiptAmount <= 0 {
		return 0, diff
	}

	rel := diff / receiptAmount
	if rel >= m.config.AmountSlack {
		return 0, diff
	}

	return 1.0 - rel/m.config.AmountSlack, diff
}

// scoreMerchant returns the merchant signal (0-1) comparing the receipt
// merchant against both the transaction's merchant name and display name
func (m *Matcher) scoreMerchant(receiptMerchant string, txn *storage.Transaction) float64 {
	receipt := normalizeMerchant(receiptMerchant)
	if receipt == "" {
		return 0
	}

	best := 0.0
	for _, name := range []string{txn.MerchantName, txn.Name} {
		candidate := normalizeMerchant(name)
		if candidate == "" {
			continue
		}

		var score float64
		switch {
		case candidate == receipt:
			score = 1.0
		case strings.Contains(receipt, candidate) || strings.Contains(candidate, receipt):
			score = 0.6
		case tokenOverlap(receipt, candidate):
			score = 0.3
		}

		if score > best {
			best = score
		}
	}

	return best
}

// scoreDate returns the date signal (0-1) given a day difference
func (m *Matcher) scoreDate(dateDiff float64) float64 {
	tolerance := float64(m.config.DateToleranceDays)
	if tolerance <= 0 || dateDiff >= tolerance {
		return 0
	}
	return 1.0 - dateDiff/tolerance
}

// buildReasons assembles the human-readable explanation for a candidate
func (m *Matcher) buildReasons(receipt Receipt, amountScore, amountDiff, merchantScore, dateScore, dateDiff float64) []string {
	reasons := []string{}

	if amountScore >= 1.0 {
		reasons = append(reasons, "Exact amount match")
	} else if amountScore > 0 {
		reasons = append(reasons, fmt.Sprintf("Amount within $%.2f", amountDiff))
	}

	if merchantScore >= 0.6 {
		reasons = append(reasons, "Merchant name match")
	} else if merchantScore > 0 {
		reasons = append(reasons, "Similar merchant name")
	}

	if receipt.Date != nil && dateScore > 0 {
		if dateDiff < 1 {
			reasons = append(reasons, "Same day")
		} else {
			reasons = append(reasons, fmt.Sprintf("Within %d days", int(math.Ceil(dateDiff))))
		}
	}

	return reasons
}

// normalizeMerchant lowercases and collapses whitespace for comparison
func normalizeMerchant(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// tokenOverlap reports whether the two normalized names share at least
// one token longer than 3 characters (skips noise like "the" or "#12")
func tokenOverlap(a, b string) bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(a) {
		if len(tok) > 3 {
			tokens[tok] = true
		}
	}
	for _, tok := range strings.Fields(b) {
		if len(tok) > 3 && tokens[tok] {
			return true
		}
	}
	return false
}
