package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/centsible/centsible/internal/analytics"
	"github.com/centsible/centsible/internal/budget"
	"github.com/centsible/centsible/internal/category"
	"github.com/centsible/centsible/internal/config"
	"github.com/centsible/centsible/internal/database"
	deviceStore "github.com/centsible/centsible/internal/device/store"
	"github.com/centsible/centsible/internal/expense"
	"github.com/centsible/centsible/internal/export"
	centsibleHttp "github.com/centsible/centsible/internal/http"
	analyticsHandler "github.com/centsible/centsible/internal/http/analytics"
	budgetHandler "github.com/centsible/centsible/internal/http/budget"
	categoryHandler "github.com/centsible/centsible/internal/http/category"
	expenseHandler "github.com/centsible/centsible/internal/http/expense"
	exportHandler "github.com/centsible/centsible/internal/http/export"
	importHandler "github.com/centsible/centsible/internal/http/importcsv"
	syncHandler "github.com/centsible/centsible/internal/http/syncapi"
	"github.com/centsible/centsible/internal/importer"
	"github.com/centsible/centsible/internal/notify"
	recordStore "github.com/centsible/centsible/internal/record/store"
	"github.com/centsible/centsible/internal/syncer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	var (
		records = recordStore.New(db)
		devices = deviceStore.New(db)
		hub     = notify.NewHub(slog.Default())
	)
	defer hub.Close()

	var (
		expenseService   = expense.NewService(records, nil)
		categoryService  = category.NewService(records, nil)
		budgetService    = budget.NewService(records, nil)
		analyticsService = analytics.NewService(expenseService, budgetService)
		importService    = importer.NewService()
		exportService    = export.NewService(expenseService)
		syncService      = syncer.NewService(records, devices, hub, nil, slog.Default())
	)

	var (
		expenseH   = expenseHandler.NewHandler(expenseService)
		categoryH  = categoryHandler.NewHandler(categoryService)
		budgetH    = budgetHandler.NewHandler(budgetService)
		analyticsH = analyticsHandler.NewHandler(analyticsService)
		importH    = importHandler.NewHandler(importService, expenseService)
		exportH    = exportHandler.NewHandler(exportService)
		syncH      = syncHandler.NewHandler(syncService, hub)
	)

	router := centsibleHttp.New(centsibleHttp.Config{
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, expenseH, categoryH, budgetH, analyticsH, importH, exportH, syncH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "app", cfg.App.Name, "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
