package handlers

import (
	"encoding/json"
	"net/http"

	"settleup/internal/services"

	"github.com/go-chi/chi/v5"
)

// transactionRequest is the wire shape of a create or update. Amounts are
// decimal strings and are parsed into minor units at the boundary.
type transactionRequest struct {
	Amount        string            `json:"amount"`
	Description   string            `json:"description"`
	PaidBy        []string          `json:"paid_by"`
	SplitsTo      []string          `json:"splits_to"`
	TransPerson   string            `json:"trans_person"`
	PaidAmounts   map[string]string `json:"paid_amounts"`
	SplitAmounts  map[string]string `json:"split_amounts"`
	PaidPercents  map[string]string `json:"paid_percents"`
	SplitPercents map[string]string `json:"split_percents"`
	PaidWay       string            `json:"paid_way"`
	SplitsWay     string            `json:"splits_way"`
}

func (req transactionRequest) toService() (services.TransactionRequest, error) {
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		return services.TransactionRequest{}, err
	}
	paidAmounts, err := parseAmountMap(req.PaidAmounts)
	if err != nil {
		return services.TransactionRequest{}, err
	}
	splitAmounts, err := parseAmountMap(req.SplitAmounts)
	if err != nil {
		return services.TransactionRequest{}, err
	}
	return services.TransactionRequest{
		Amount:        amount,
		Description:   req.Description,
		PaidBy:        req.PaidBy,
		SplitsTo:      req.SplitsTo,
		TransPerson:   req.TransPerson,
		PaidAmounts:   paidAmounts,
		SplitAmounts:  splitAmounts,
		PaidPercents:  req.PaidPercents,
		SplitPercents: req.SplitPercents,
		PaidWay:       req.PaidWay,
		SplitsWay:     req.SplitsWay,
	}, nil
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	serviceReq, err := req.toService()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	record, err := h.transactions.Create(r.Context(), chi.URLParam(r, "groupID"), caller, serviceReq)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	serviceReq, err := req.toService()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	record, err := h.transactions.Update(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "transactionID"), caller, serviceReq)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	record, err := h.transactions.Delete(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "transactionID"), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	records, err := h.transactions.List(r.Context(), chi.URLParam(r, "groupID"), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transactions": records})
}

func (h *Handler) ListTransactionEvents(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	events, err := h.transactions.Events(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "transactionID"), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}
