package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cpenarrieta/personal-finance-backend/internal/api/dto"
	"github.com/cpenarrieta/personal-finance-backend/internal/application/service"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// SplitsHandler handles transaction split requests.
type SplitsHandler struct {
	receiptService *service.ReceiptService
}

// NewSplitsHandler creates a new splits handler.
func NewSplitsHandler(receiptService *service.ReceiptService) *SplitsHandler {
	return &SplitsHandler{
		receiptService: receiptService,
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *SplitsHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code.
func (h *SplitsHandler) writeError(w http.ResponseWriter, status int, err dto.APIError) {
	h.writeJSON(w, status, err)
}

// Create handles POST /api/transactions/{id}/split - validates the
// line items against the transaction amount and, if they reconcile,
// splits the transaction atomically.
func (h *SplitsHandler) Create(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "id")
	if transactionID == "" {
		h.writeError(w, http.StatusBadRequest, dto.BadRequestError("transaction ID is required"))
		return
	}

	var req dto.SplitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	items := make([]service.LineItem, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, service.LineItem{
			Description:     li.Description,
			Amount:          li.Amount,
			CategoryID:      li.CategoryID,
			CategoryName:    li.CategoryName,
			SubcategoryID:   li.SubcategoryID,
			SubcategoryName: li.SubcategoryName,
		})
	}

	result, err := h.receiptService.SplitTransaction(r.Context(), transactionID, items)
	if err != nil {
		h.writeSplitError(w, err)
		return
	}

	response := dto.SplitTransactionResponse{
		Success:  true,
		ParentID: result.ParentID,
		ChildIDs: result.ChildIDs,
		Message:  fmt.Sprintf("split into %d transactions", len(result.ChildIDs)),
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeSplitError maps service errors onto the API error taxonomy.
func (h *SplitsHandler) writeSplitError(w http.ResponseWriter, err error) {
	var reconcileErr *service.ReconciliationError
	var categoryErr *service.UnknownCategoryError

	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.writeError(w, http.StatusNotFound, dto.NotFoundError("transaction"))
	case errors.Is(err, storage.ErrAlreadySplit):
		h.writeError(w, http.StatusConflict,
			dto.NewAPIError(dto.ErrCodeAlreadySplit, "transaction is already split"))
	case errors.Is(err, service.ErrNoSplitNeeded):
		h.writeError(w, http.StatusBadRequest,
			dto.NewAPIError(dto.ErrCodeNoSplitNeeded, err.Error()))
	case errors.Is(err, service.ErrInvalidSplitAmount):
		h.writeError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
	case errors.As(err, &reconcileErr):
		h.writeError(w, http.StatusBadRequest,
			dto.ReconciliationError(reconcileErr.Error(),
				reconcileErr.Expected, reconcileErr.Actual, reconcileErr.Discrepancy))
	case errors.As(err, &categoryErr):
		h.writeError(w, http.StatusBadRequest,
			dto.UnknownCategoryError(categoryErr.Error(), categoryErr.Name))
	default:
		h.writeError(w, http.StatusInternalServerError, dto.InternalError())
	}
}
