package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/centsible/centsible/internal/auth"
	"github.com/centsible/centsible/internal/expense"
	"github.com/centsible/centsible/internal/export"
)

type Handler struct {
	svc *export.Service
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/csv", h.csv)
	r.Get("/json", h.json)
}

func (h *Handler) csv(w http.ResponseWriter, r *http.Request) {
	filter := listFilter(r)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"expenses_%s.csv\"", time.Now().Format("20060102")))

	if err := h.svc.WriteCSV(r.Context(), w, auth.UserID(r.Context()), filter); err != nil {
		slog.Error("failed to write csv export", "error", err)
	}
}

func (h *Handler) json(w http.ResponseWriter, r *http.Request) {
	filter := listFilter(r)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"expenses_%s.json\"", time.Now().Format("20060102")))

	if err := h.svc.WriteJSON(r.Context(), w, auth.UserID(r.Context()), filter); err != nil {
		slog.Error("failed to write json export", "error", err)
	}
}

func listFilter(r *http.Request) expense.ListFilter {
	filter := expense.ListFilter{}

	if s := r.URL.Query().Get("category"); s != "" {
		filter.Category = &s
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = &t
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = &t
		}
	}

	return filter
}
