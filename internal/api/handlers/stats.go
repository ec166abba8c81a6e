package handlers

import (
	"net/http"

	"github.com/cpenarrieta/personal-finance-backend/internal/api/dto"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// StatsHandler handles stats-related HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/stats - returns aggregate ledger statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.StatsResponse{
		TotalTransactions: stats.TotalTransactions,
		SplitParents:      stats.SplitParents,
		SplitChildren:     stats.SplitChildren,
		PendingCount:      stats.PendingCount,
		TotalExpenses:     stats.TotalExpenses,
		TotalIncome:       stats.TotalIncome,
		AnalysisRuns:      stats.AnalysisRuns,
	}

	h.WriteJSON(w, http.StatusOK, response)
}
