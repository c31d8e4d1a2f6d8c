package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type accountResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Institution string `json:"institution,omitempty"`
	Kind        string `json:"kind"`
	Balance     string `json:"balance"`
	CreatedAt   string `json:"created_at"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		Name:        a.Name,
		Institution: a.Institution,
		Kind:        string(a.Kind),
		Balance:     a.Balance.String(),
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

type accountRequest struct {
	Name        string `json:"name"`
	Institution string `json:"institution,omitempty"`
	Kind        string `json:"kind"`
}

func (req accountRequest) params() services.CreateAccountParams {
	return services.CreateAccountParams{
		Name:        req.Name,
		Institution: req.Institution,
		Kind:        core.AccountKind(req.Kind),
	}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req accountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	acct, err := s.ledger.CreateAccount(r.Context(), owner, req.params())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(acct))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	accounts, err := s.ledger.ListAccounts(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = toAccountResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	acct, err := s.ledger.GetAccount(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req accountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	acct, err := s.ledger.UpdateAccount(r.Context(), owner, r.PathValue("id"), req.params())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	if err := s.ledger.DeleteAccount(r.Context(), owner, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateSummaries(owner)
	w.WriteHeader(http.StatusNoContent)
}
