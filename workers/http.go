package workers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorecovery/logger"
	"gorecovery/metrics"
	"gorecovery/workers/handlers"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type ServerConfig struct {
	Port     int
	UseSSL   bool
	CertFile string
	KeyFile  string
	// should cover the poller timeout so in-flight awaits can finish
	ShutdownTimeout time.Duration
}

func NewRouter(s *handlers.Service) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Options("/*", CORSHeaders)

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/networks", s.ListNetworks)
	r.Get("/networks/{chainID}/explorer", s.ExplorerURL)
	r.Get("/networks/{chainID}/balance", s.TokenBalance)

	r.Get("/templates", s.ListTemplates)
	r.Get("/templates/{id}", s.GetTemplate)

	r.Post("/transactions/validate", s.ValidateTransaction)
	r.Post("/transactions/preview", s.PreviewTransaction)

	r.Post("/recovery/deploy", s.DeployAccount)
	r.Post("/recovery/deployed", s.AccountDeployed)
	r.Post("/recovery/execute", s.ExecuteTransaction)

	r.Group(func(r chi.Router) {
		r.Use(s.Authenticate)
		r.Post("/validate", s.Validate)
		r.Post("/validate/await", s.ValidateAwait)
		r.Post("/credit", s.Credit)
		r.Get("/credits/{status}", s.ListCredits)
	})

	return r
}

// Worker_HTTP serves handler until SIGINT or SIGTERM, then shuts down
// gracefully.
func Worker_HTTP(cfg ServerConfig, handler http.Handler) error {
	logger.Info("Starting HTTP service", zap.Int("port", cfg.Port), zap.Bool("ssl", cfg.UseSSL))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.UseSSL {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return fmt.Errorf("loading tls certificate: %w", err)
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	serveErr := make(chan error, 1)

	go func() {
		var err error
		if cfg.UseSSL {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()
	logger.Info("HTTP service started")

	select {
	case err := <-serveErr:
		return fmt.Errorf("error listening: %w", err)
	case <-done:
	}
	logger.Info("HTTP service stopped")

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP service shutdown error: %w", err)
	}
	logger.Info("HTTP service shutdown normal")
	return nil
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, Origin, X-Requested-With")
}
