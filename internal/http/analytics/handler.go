package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/centsible/centsible/internal/analytics"
	"github.com/centsible/centsible/internal/auth"
)

type Handler struct {
	svc *analytics.Service
}

func NewHandler(svc *analytics.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/summary", h.summary)
}

type categoryTotalResponse struct {
	Category string `json:"category"`
	Spent    int64  `json:"spent"`
	Count    int    `json:"count"`
}

type budgetUtilizationResponse struct {
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	Allocated int64           `json:"allocated"`
	Spent     int64           `json:"spent"`
	Percent   decimal.Decimal `json:"percent"`
	Exceeded  bool            `json:"exceeded"`
}

type summaryResponse struct {
	From       time.Time                   `json:"from"`
	To         time.Time                   `json:"to"`
	TotalSpent int64                       `json:"totalSpent"`
	Count      int                         `json:"count"`
	Categories []categoryTotalResponse     `json:"categories"`
	Budgets    []budgetUtilizationResponse `json:"budgets"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			http.Error(w, "from must be a YYYY-MM-DD date", http.StatusBadRequest)
			return
		}

		from = t
	}

	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			http.Error(w, "to must be a YYYY-MM-DD date", http.StatusBadRequest)
			return
		}

		to = t
	}

	summary, err := h.svc.Summary(r.Context(), auth.UserID(r.Context()), from, to)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(summary)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func toResponse(s *analytics.Summary) summaryResponse {
	resp := summaryResponse{
		From:       s.From,
		To:         s.To,
		TotalSpent: s.TotalSpent,
		Count:      s.Count,
		Categories: make([]categoryTotalResponse, 0, len(s.Categories)),
		Budgets:    make([]budgetUtilizationResponse, 0, len(s.Budgets)),
	}

	for _, c := range s.Categories {
		resp.Categories = append(resp.Categories, categoryTotalResponse{
			Category: c.Category,
			Spent:    c.Spent,
			Count:    c.Count,
		})
	}

	for _, b := range s.Budgets {
		resp.Budgets = append(resp.Budgets, budgetUtilizationResponse{
			Name:      b.Name,
			Category:  b.Category,
			Allocated: b.Allocated,
			Spent:     b.Spent,
			Percent:   b.Percent,
			Exceeded:  b.Exceeded,
		})
	}

	return resp
}
