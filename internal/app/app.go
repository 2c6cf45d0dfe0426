package app

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/config"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/delivery/httpd"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/ledger"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/middleware"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/service"
	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/service/integration"
)

type App struct {
	server    *http.Server
	logger    zerolog.Logger
	config    *config.Config
	backend   *backend
	publisher integration.EventPublisher
}

func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	b, err := newBackend(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	objects, err := newObjectStorage(cfg.Storage, log)
	if err != nil {
		b.Close()
		return nil, err
	}

	publisher := newPublisher(cfg.RabbitMQ, log)

	l := ledger.New(b.store, log)
	pager := service.Pager{
		DefaultLimit: cfg.Pagination.DefaultLimit,
		MaxLimit:     cfg.Pagination.MaxLimit,
	}

	studentService := service.NewStudentService(l, b.students, b.assignments, publisher, pager, log)
	requestService := service.NewRequestService(l, b.requests, b.assignments, publisher, pager, log)
	assignmentService := service.NewAssignmentService(l, b.assignments, publisher, pager, log)
	reportService := service.NewReportService(b.students, b.requests, b.assignments, objects, pager, log)

	handler := httpd.NewHandler(
		studentService,
		requestService,
		assignmentService,
		reportService,
		b.pinger,
		log,
	)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      newRouter(cfg, handler, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:    server,
		logger:    log,
		config:    cfg,
		backend:   b,
		publisher: publisher,
	}, nil
}

func newRouter(cfg *config.Config, handler *httpd.Handler, log zerolog.Logger) http.Handler {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))
	if cfg.Server.RequestTimeout > 0 {
		router.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	}
	router.Use(middleware.NewCORS(cfg.CORS))

	handler.RegisterRoutes(router)
	return router
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Run() error {
	a.logger.Info().Msgf("Starting service tracker on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down service tracker...")

	err := a.server.Shutdown(ctx)

	if err := a.publisher.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close event publisher")
	}

	if err := a.backend.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close database connection")
	}

	return err
}
