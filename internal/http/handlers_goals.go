package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type goalResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Target      string `json:"target"`
	Current     string `json:"current"`
	Deadline    string `json:"deadline,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toGoalResponse(g core.Goal) goalResponse {
	resp := goalResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Target:      g.Target.String(),
		Current:     g.Current.String(),
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
	}
	if !g.Deadline.IsZero() {
		resp.Deadline = g.Deadline.String()
	}
	return resp
}

type goalRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Target      string `json:"target"`
	Deadline    string `json:"deadline,omitempty"`
}

func (s *Server) goalParams(w http.ResponseWriter, req goalRequest) (services.CreateGoalParams, bool) {
	target, err := core.ParseMoney(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target: "+req.Target)
		return services.CreateGoalParams{}, false
	}
	p := services.CreateGoalParams{
		Name:        req.Name,
		Description: req.Description,
		Target:      target,
	}
	if req.Deadline != "" {
		deadline, err := parseDate(req.Deadline)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid deadline, expected YYYY-MM-DD")
			return services.CreateGoalParams{}, false
		}
		p.Deadline = deadline
	}
	return p, true
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req goalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, ok := s.goalParams(w, req)
	if !ok {
		return
	}

	goal, err := s.ledger.CreateGoal(r.Context(), owner, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalResponse(goal))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	goals, err := s.ledger.ListGoals(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]goalResponse, len(goals))
	for i, g := range goals {
		out[i] = toGoalResponse(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req goalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, ok := s.goalParams(w, req)
	if !ok {
		return
	}

	goal, err := s.ledger.UpdateGoal(r.Context(), owner, r.PathValue("id"), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	if err := s.ledger.DeleteGoal(r.Context(), owner, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contributeRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleContributeToGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req contributeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+req.Amount)
		return
	}

	goal, err := s.ledger.ContributeToGoal(r.Context(), owner, r.PathValue("id"), amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(goal))
}
