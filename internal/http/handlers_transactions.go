package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type transactionResponse struct {
	ID                 string `json:"id"`
	AccountID          string `json:"account_id"`
	Type               string `json:"type"`
	Description        string `json:"description"`
	Amount             string `json:"amount"`
	Date               string `json:"date"`
	Category           string `json:"category"`
	InstallmentGroupID string `json:"installment_group_id,omitempty"`
	RecurrenceGroupID  string `json:"recurrence_group_id,omitempty"`
	CreatedAt          string `json:"created_at"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                 tx.ID,
		AccountID:          tx.AccountID,
		Type:               string(tx.Type),
		Description:        tx.Description,
		Amount:             tx.Amount.String(),
		Date:               tx.Date.String(),
		Category:           tx.Category,
		InstallmentGroupID: tx.InstallmentGroupID,
		RecurrenceGroupID:  tx.RecurrenceGroupID,
		CreatedAt:          tx.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionResponse(tx)
	}
	return out
}

type createTransactionRequest struct {
	AccountID   string `json:"account_id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`

	IsInstallment      bool   `json:"is_installment,omitempty"`
	Installments       int    `json:"installments,omitempty"`
	InstallmentGroupID string `json:"installment_group_id,omitempty"`

	IsRecurring       bool   `json:"is_recurring,omitempty"`
	RecurrenceGroupID string `json:"recurrence_group_id,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req createTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+req.Amount)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	created, err := s.ledger.CreateTransaction(r.Context(), owner, services.CreateTransactionParams{
		AccountID:          req.AccountID,
		Type:               core.TransactionType(req.Type),
		Description:        req.Description,
		Amount:             amount,
		Date:               date,
		Category:           req.Category,
		IsInstallment:      req.IsInstallment,
		Installments:       req.Installments,
		InstallmentGroupID: req.InstallmentGroupID,
		IsRecurring:        req.IsRecurring,
		RecurrenceGroupID:  req.RecurrenceGroupID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateSummaries(owner)

	if len(created) == 1 {
		writeJSON(w, http.StatusCreated, toTransactionResponse(created[0]))
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponses(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.ledger.ListTransactions(r.Context(), owner, year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	tx, err := s.ledger.GetTransaction(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

type updateTransactionRequest struct {
	AccountID   string `json:"account_id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req updateTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+req.Amount)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	updated, err := s.ledger.UpdateTransaction(r.Context(), owner, r.PathValue("id"), services.UpdateTransactionParams{
		AccountID:   req.AccountID,
		Type:        core.TransactionType(req.Type),
		Description: req.Description,
		Amount:      amount,
		Date:        date,
		Category:    req.Category,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateSummaries(owner)
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	deleted, err := s.ledger.DeleteTransaction(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateSummaries(owner)
	writeJSON(w, http.StatusOK, map[string]int{"deletedCount": deleted})
}
