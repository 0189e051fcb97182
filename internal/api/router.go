package api

import (
	"log/slog"
	"net/http"
	"time"

	"fiado-ledger/internal/api/handler"
	mw "fiado-ledger/internal/api/middleware"
	"fiado-ledger/internal/config"
	"fiado-ledger/internal/domain/backup"
	"fiado-ledger/internal/domain/customer"
	"fiado-ledger/internal/domain/ledger"
	"fiado-ledger/internal/domain/report"

	_ "fiado-ledger/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func SetupRouter(customerService customer.CustomerService, ledgerService ledger.LedgerService,
	backupService backup.BackupService, reportService report.ReportService,
	cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupAuthRoutes(router, cfg, logger)
	setupCustomerRoutes(router, cfg, customerService, ledgerService, logger)
	setupBackupRoutes(router, cfg, backupService, logger)
	setupReportRoutes(router, cfg, reportService, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(*cfg, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

func setupCustomerRoutes(router *chi.Mux, cfg *config.Config, customerSvc customer.CustomerService,
	ledgerSvc ledger.LedgerService, logger *slog.Logger) {
	customerHandler := handler.NewCustomerHandler(customerSvc, logger)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc, logger)

	router.Route("/customers", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", customerHandler.CreateCustomer)
		r.Get("/", customerHandler.ListCustomers)
		r.Route("/{customerID}", func(r chi.Router) {
			r.Get("/", customerHandler.GetCustomer)
			r.Delete("/", customerHandler.DeleteCustomer)
			r.Put("/notes", customerHandler.UpdateNotes)
			r.Post("/purchases", ledgerHandler.AddPurchase)
			r.Delete("/purchases/{purchaseID}", ledgerHandler.RemovePurchase)
			r.Get("/totals", ledgerHandler.GetTotals)
			r.Post("/payments", ledgerHandler.RegisterPayment)
			r.Post("/liquidation", ledgerHandler.LiquidateDebt)
		})
	})
}

func setupBackupRoutes(router *chi.Mux, cfg *config.Config, svc backup.BackupService, logger *slog.Logger) {
	h := handler.NewBackupHandler(svc, logger)

	router.Route("/backup", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/import", h.Import)
		r.Get("/export", h.Export)
	})
}

func setupReportRoutes(router *chi.Mux, cfg *config.Config, svc report.ReportService, logger *slog.Logger) {
	h := handler.NewReportHandler(svc, logger)

	router.Route("/reports", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/statistics", h.GetStatistics)
	})
}
