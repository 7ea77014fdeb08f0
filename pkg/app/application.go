package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"

	"medportal/internal/health/handler"
	"medportal/internal/sweeper"
	"medportal/pkg/config"
	"medportal/pkg/contracts"
	"medportal/pkg/events"
	"medportal/pkg/middleware"
)

type Application struct {
	cfg           *config.Config
	server        *http.Server
	rateLimiter   *middleware.ClientRateLimiter
	runner        *sweeper.Runner
	publisher     events.Publisher
	healthHandler *http.Handler
	apiHandler    *http.Handler
	wsHandler     *http.Handler
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

// SetWorkers hands the application the background workers it must stop
// before the HTTP server drains.
func (a *Application) SetWorkers(runner *sweeper.Runner, publisher events.Publisher) {
	a.runner = runner
	a.publisher = publisher
}

func (a *Application) SetApp(apiHandlers []contracts.Handler, registerWS func(*httprouter.Router)) {
	a.setHealthHandler()
	a.setAPIHandler(apiHandlers)
	a.setWSHandler(registerWS)
	a.setAppServer()
}

func (a *Application) setHealthHandler() {
	healthRouter := httprouter.New()
	healthHandler := handler.NewHealthHandler(a.cfg.Client.Mongo, a.cfg.Log)
	healthHandler.RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = &healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAPIHandler(apiHandlers []contracts.Handler) {
	apiRouter := httprouter.New()
	for _, h := range apiHandlers {
		h.RegisterRoutes(apiRouter)
	}

	a.rateLimiter = middleware.NewClientRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		a.cfg.Log,
	)

	var apiHTTPHandler http.Handler = apiRouter
	apiHTTPHandler = middleware.Auth(a.cfg.JWTSecret, a.cfg.Log)(apiHTTPHandler)
	apiHTTPHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(apiHTTPHandler)
	apiHTTPHandler = middleware.RateLimit(a.rateLimiter)(apiHTTPHandler)
	apiHTTPHandler = middleware.ContentTypeValidation(a.cfg.Log)(apiHTTPHandler)
	apiHTTPHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(apiHTTPHandler)
	apiHTTPHandler = middleware.RequestLogging(a.cfg.Log)(apiHTTPHandler)
	apiHTTPHandler = middleware.Recovery(a.cfg.Log)(apiHTTPHandler)
	a.apiHandler = &apiHTTPHandler
	a.cfg.Log.Info("API endpoints configured with full security middleware stack")
}

// WebSocket routes skip the timeout, size and content-type middleware:
// persistent connections have neither a JSON body nor a bounded lifetime.
func (a *Application) setWSHandler(registerWS func(*httprouter.Router)) {
	wsRouter := httprouter.New()
	registerWS(wsRouter)

	var wsHTTPHandler http.Handler = wsRouter
	wsHTTPHandler = middleware.RequestLogging(a.cfg.Log)(wsHTTPHandler)
	wsHTTPHandler = middleware.Recovery(a.cfg.Log)(wsHTTPHandler)
	a.wsHandler = &wsHTTPHandler
	a.cfg.Log.Info("WebSocket endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", *a.healthHandler)
	mux.Handle("/ready", *a.healthHandler)
	mux.Handle("/ws/", *a.wsHandler)
	mux.Handle("/", *a.apiHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	a.cfg.Log.Info("Stopping background workers...")
	a.rateLimiter.Stop()
	if a.runner != nil {
		a.runner.Stop()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.cfg.Log.Error("Event publisher close failed", "error", err)
		}
	}
	a.cfg.Log.Info("Background workers stopped")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Server stopped gracefully")
}
