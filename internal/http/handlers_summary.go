package http

import (
	"net/http"

	"fintrack/internal/core"
)

type categoryAmountResponse struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type summaryResponse struct {
	Year       int                      `json:"year"`
	Month      int                      `json:"month"`
	Income     string                   `json:"income"`
	Expenses   string                   `json:"expenses"`
	Net        string                   `json:"net"`
	ByCategory []categoryAmountResponse `json:"by_category"`
}

func toSummaryResponse(sum core.MonthSummary) summaryResponse {
	resp := summaryResponse{
		Year:       sum.Year,
		Month:      sum.Month,
		Income:     sum.Income.String(),
		Expenses:   sum.Expenses.String(),
		Net:        core.Money{Cents: sum.Net}.String(),
		ByCategory: make([]categoryAmountResponse, len(sum.ByCategory)),
	}
	for i, ca := range sum.ByCategory {
		resp.ByCategory[i] = categoryAmountResponse{
			Category: ca.Category,
			Amount:   ca.Amount.String(),
		}
	}
	return resp
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil || year == 0 {
		writeError(w, http.StatusBadRequest, "year and month query parameters are required")
		return
	}

	key := summaryCacheKey(owner, year, month)
	if cached, hit := s.summaryCache.Get(key); hit {
		writeJSON(w, http.StatusOK, toSummaryResponse(cached))
		return
	}

	sum, err := s.ledger.MonthSummary(r.Context(), owner, year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.summaryCache.Set(key, sum)
	writeJSON(w, http.StatusOK, toSummaryResponse(sum))
}
