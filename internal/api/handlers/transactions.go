package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cpenarrieta/personal-finance-backend/internal/api/dto"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// TransactionsHandler handles transaction-related HTTP requests.
type TransactionsHandler struct {
	*Base
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo storage.Repository) *TransactionsHandler {
	return &TransactionsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/transactions - returns a paginated transaction list.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.TransactionFilters{
		AccountID:   r.URL.Query().Get("account_id"),
		DaysBack:    ParseIntParam(r, "days_back", 30),
		PendingOnly: ParseBoolParam(r, "pending", false),
		Search:      r.URL.Query().Get("search"),
		Limit:       ParseIntParam(r, "limit", 50),
		Offset:      ParseIntParam(r, "offset", 0),
	}

	result, err := h.repo.ListTransactions(filters)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(result.Transactions)),
		TotalCount:   result.TotalCount,
		Limit:        result.Limit,
		Offset:       result.Offset,
	}
	for _, txn := range result.Transactions {
		response.Transactions = append(response.Transactions, toTransactionResponse(txn))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/transactions/{id} - returns a transaction with
// its split children, if any.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "id")
	if transactionID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("transaction ID is required"))
		return
	}

	txn, err := h.repo.GetTransaction(transactionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("transaction"))
			return
		}
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.TransactionDetailResponse{
		TransactionResponse: toTransactionResponse(txn),
	}

	if txn.IsSplit {
		children, err := h.repo.ListChildren(txn.ID)
		if err != nil {
			h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
			return
		}
		for _, child := range children {
			response.Children = append(response.Children, toTransactionResponse(child))
		}
	}

	h.WriteJSON(w, http.StatusOK, response)
}
