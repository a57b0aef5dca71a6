package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/centsible/centsible/internal/auth"
	analyticsHandler "github.com/centsible/centsible/internal/http/analytics"
	budgetHandler "github.com/centsible/centsible/internal/http/budget"
	categoryHandler "github.com/centsible/centsible/internal/http/category"
	expenseHandler "github.com/centsible/centsible/internal/http/expense"
	exportHandler "github.com/centsible/centsible/internal/http/export"
	importHandler "github.com/centsible/centsible/internal/http/importcsv"
	syncHandler "github.com/centsible/centsible/internal/http/syncapi"
)

type Config struct {
	JWTSecret      []byte
	AllowedOrigins []string
}

func New(
	cfg Config,
	expensesV1 *expenseHandler.Handler,
	categoriesV1 *categoryHandler.Handler,
	budgetsV1 *budgetHandler.Handler,
	analyticsV1 *analyticsHandler.Handler,
	importV1 *importHandler.Handler,
	exportV1 *exportHandler.Handler,
	syncV1 *syncHandler.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))

		r.Route("/expenses", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			expensesV1.Routes(r)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			categoriesV1.Routes(r)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			budgetsV1.Routes(r)
		})

		r.Route("/analytics", analyticsV1.Routes)

		r.Route("/import", importV1.Routes)

		r.Route("/export", exportV1.Routes)

		r.Route("/sync", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			syncV1.Routes(r)
		})
	})

	return router
}
