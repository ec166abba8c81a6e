package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cpenarrieta/personal-finance-backend/internal/api/dto"
	"github.com/cpenarrieta/personal-finance-backend/internal/application/service"
	"github.com/cpenarrieta/personal-finance-backend/internal/domain/matcher"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// ReceiptsHandler handles receipt matching and analysis requests.
type ReceiptsHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptsHandler creates a new receipts handler.
func NewReceiptsHandler(receiptService *service.ReceiptService) *ReceiptsHandler {
	return &ReceiptsHandler{
		receiptService: receiptService,
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *ReceiptsHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code.
func (h *ReceiptsHandler) writeError(w http.ResponseWriter, status int, err dto.APIError) {
	h.writeJSON(w, status, err)
}

// Match handles POST /api/receipts/match - returns the transactions
// most likely to correspond to a scanned receipt, best first.
func (h *ReceiptsHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req dto.MatchReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	receipt := matcher.Receipt{
		MerchantName: req.MerchantName,
		TotalAmount:  req.TotalAmount,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, dto.ValidationError("date must be YYYY-MM-DD"))
			return
		}
		receipt.Date = &date
	}

	candidates, err := h.receiptService.MatchReceipt(r.Context(), receipt)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.MatchReceiptResponse{
		Candidates: make([]dto.CandidateResponse, 0, len(candidates)),
	}
	for _, c := range candidates {
		response.Candidates = append(response.Candidates, dto.CandidateResponse{
			Transaction:  toTransactionResponse(c.Transaction),
			Score:        c.Score,
			AmountDiff:   c.AmountDiff,
			DateDiff:     c.DateDiff,
			MatchReasons: c.MatchReasons,
		})
	}

	h.writeJSON(w, http.StatusOK, response)
}

// Link handles POST /api/receipts/link - records which transaction a
// receipt belongs to.
func (h *ReceiptsHandler) Link(w http.ResponseWriter, r *http.Request) {
	var req dto.LinkReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	if err := h.receiptService.ConfirmMatch(r.Context(), req.TransactionID, req.ReceiptID); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			h.writeError(w, http.StatusNotFound, dto.NotFoundError("transaction"))
		case errors.Is(err, storage.ErrAlreadySplit):
			h.writeError(w, http.StatusConflict,
				dto.NewAPIError(dto.ErrCodeAlreadySplit, "transaction is already split"))
		default:
			h.writeError(w, http.StatusInternalServerError, dto.InternalError())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Analyze handles POST /api/receipts/analyze - returns suggested splits
// for a transaction from its receipt images. An empty list means no
// usable suggestions were produced.
func (h *ReceiptsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req dto.AnalyzeReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	splits, err := h.receiptService.AnalyzeTransaction(r.Context(), req.TransactionID, req.ImageURLs)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, dto.NotFoundError("transaction"))
			return
		}
		h.writeError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.AnalyzeReceiptResponse{
		TransactionID: req.TransactionID,
		Splits:        make([]dto.ProposedSplitResponse, 0, len(splits)),
	}
	for _, s := range splits {
		response.Splits = append(response.Splits, dto.ProposedSplitResponse{
			CategoryName:    s.CategoryName,
			SubcategoryName: s.SubcategoryName,
			Amount:          s.Amount,
			ItemsSummary:    s.ItemsSummary,
		})
	}

	h.writeJSON(w, http.StatusOK, response)
}
