// Package server assembles the gateway: credential pool, router, provider
// adapters, dispatcher, telemetry and the HTTP surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/MiXaiLL76/auto-ai-router/pkg/accounting"
	"github.com/MiXaiLL76/auto-ai-router/pkg/config"
	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers/anthropic"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers/openai"
	"github.com/MiXaiLL76/auto-ai-router/pkg/providers/vertex"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/handlers"
	"github.com/MiXaiLL76/auto-ai-router/pkg/proxy/middleware"
	"github.com/MiXaiLL76/auto-ai-router/pkg/routing"
	"github.com/MiXaiLL76/auto-ai-router/pkg/telemetry/metrics"
)

// Server is the assembled gateway.
type Server struct {
	cfg        *config.Config
	store      *credential.Store
	router     *routing.Router
	dispatcher *proxy.Dispatcher
	sweeper    *credential.Sweeper
	ledger     *accounting.Ledger
	collector  *metrics.Collector
	adapters   map[string]providers.Adapter

	httpServer   *http.Server
	shutdownOnce sync.Once
}

// New assembles a server from configuration.
func New(cfg *config.Config) (*Server, error) {
	store := credential.NewStore(buildCredentials(cfg), banPolicy(cfg))
	router := routing.NewRouter(cfg.Models, store)

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics.RequestDurationBuckets)
		store.SetBanHook(collector.RecordBan)
	}

	var ledger *accounting.Ledger
	if cfg.Accounting.Enabled {
		var err error
		ledger, err = accounting.Open(accounting.Config{
			Path:          cfg.Accounting.SQLitePath,
			BufferSize:    cfg.Accounting.BufferSize,
			RetentionDays: cfg.Accounting.RetentionDays,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open usage ledger: %w", err)
		}
	}

	adapters := buildAdapters(cfg)

	var metricsRecorder proxy.MetricsRecorder
	if collector != nil {
		metricsRecorder = collector
	}
	var usageRecorder proxy.UsageRecorder
	if ledger != nil {
		usageRecorder = &ledgerRecorder{ledger: ledger}
	}

	dispatcher := proxy.NewDispatcher(router, adapters, cfg.Router.MaxAttempts, metricsRecorder, usageRecorder)

	sweeper, err := credential.NewSweeper(store, cfg.Router.UnbanSweepInterval)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		store:      store,
		router:     router,
		dispatcher: dispatcher,
		sweeper:    sweeper,
		ledger:     ledger,
		collector:  collector,
		adapters:   adapters,
	}

	s.httpServer = &http.Server{
		Addr:           cfg.Server.ListenAddress,
		Handler:        s.routes(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s, nil
}

// buildCredentials flattens the configured provider credential lists.
func buildCredentials(cfg *config.Config) []*credential.Credential {
	var creds []*credential.Credential
	for tag, pc := range cfg.Providers {
		for _, cc := range pc.Credentials {
			cred := credential.New(cc.Label, tag, cc.APIKey, cc.Models)
			cred.ProjectID = cc.ProjectID
			cred.Region = cc.Region
			cred.ServiceAccountFile = cc.ServiceAccountFile
			creds = append(creds, cred)
		}
	}
	return creds
}

func banPolicy(cfg *config.Config) credential.BanPolicy {
	policy := credential.DefaultBanPolicy()
	policy.AuthBanDuration = cfg.Router.AuthBanDuration
	policy.RateLimitBackoff = cfg.Router.RateLimitBackoff
	return policy
}

// buildAdapters creates one adapter per configured provider.
func buildAdapters(cfg *config.Config) map[string]providers.Adapter {
	adapters := make(map[string]providers.Adapter, len(cfg.Providers))
	for tag, pc := range cfg.Providers {
		switch tag {
		case "openai":
			adapters[tag] = openai.New(openai.Config{BaseURL: pc.BaseURL, Timeout: pc.Timeout})
		case "anthropic":
			adapters[tag] = anthropic.New(anthropic.Config{BaseURL: pc.BaseURL, Timeout: pc.Timeout})
		case "vertex":
			var imageChat []string
			for _, m := range cfg.Models {
				if m.Provider == "vertex" && m.HasCapability(config.CapImageModality) {
					imageChat = append(imageChat, m.NativeModel())
				}
			}
			adapters[tag] = vertex.New(vertex.Config{
				BaseURL:         pc.BaseURL,
				Timeout:         pc.Timeout,
				ImageChatModels: imageChat,
			})
		}
	}
	return adapters
}

// routes wires the HTTP surface: the authenticated /v1 API plus the open
// operational endpoints.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	auth := middleware.MasterKeyAuth(s.cfg.MasterKey)
	mux.Handle("/v1/chat/completions", auth(handlers.NewChatHandler(s.dispatcher)))
	mux.Handle("/v1/embeddings", auth(handlers.NewEmbeddingsHandler(s.dispatcher)))
	mux.Handle("/v1/images/generations", auth(handlers.NewImagesHandler(s.dispatcher)))
	mux.Handle("/v1/models", auth(handlers.NewModelsHandler(s.router)))

	mux.Handle("/health", handlers.NewHealthHandler(s.store))
	var usage handlers.UsageSource
	if s.ledger != nil {
		usage = s.ledger
	}
	mux.Handle("/vhealth", handlers.NewDashboardHandler(s.store, usage))
	if s.collector != nil {
		mux.Handle("/metrics", s.collector.Handler(s.store))
	}

	var handler http.Handler = mux
	handler = middleware.CORS(s.cfg.Server.CORS)(handler)
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)
	return handler
}

// Reload applies a hot configuration reload: model bindings are swapped
// and the credential pool reconciled. Server and provider endpoint
// settings require a restart and are ignored here.
func (s *Server) Reload(cfg *config.Config) error {
	s.router.SetBindings(cfg.Models)
	s.store.Reconcile(buildCredentials(cfg))
	return nil
}

// Start runs the HTTP server until the context is cancelled or a signal
// arrives, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.sweeper.Start()

	if s.cfg.Watch && s.cfg.ConfigPath() != "" {
		watcher := config.NewWatcher(s.cfg.ConfigPath(), slog.Default())
		go func() {
			if err := watcher.Watch(ctx, s.Reload); err != nil && ctx.Err() == nil {
				slog.Error("configuration watcher stopped", "error", err)
			}
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway",
			"address", s.cfg.Server.ListenAddress,
			"models", len(s.cfg.Models),
			"providers", len(s.cfg.Providers),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		s.cleanup()
		return err
	}

	return s.Shutdown()
}

// Shutdown drains in-flight requests and releases resources.
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
		}
		s.cleanup()
		slog.Info("gateway stopped")
	})
	return err
}

func (s *Server) cleanup() {
	s.sweeper.Stop()
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			slog.Warn("failed to close usage ledger", "error", err)
		}
	}
	for _, a := range s.adapters {
		if closer, ok := a.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

// ledgerRecorder adapts the accounting ledger to the dispatcher's
// UsageRecorder interface.
type ledgerRecorder struct {
	ledger *accounting.Ledger
}

// RecordUsage implements proxy.UsageRecorder.
func (r *ledgerRecorder) RecordUsage(rec proxy.UsageRecord) {
	r.ledger.Record(accounting.Record{
		RequestID:        rec.RequestID,
		Provider:         rec.Provider,
		Model:            rec.Model,
		Credential:       rec.Credential,
		PromptTokens:     rec.Usage.PromptTokens,
		CompletionTokens: rec.Usage.CompletionTokens,
		ReasoningTokens:  rec.Usage.ReasoningTokens,
		TotalTokens:      rec.Usage.TotalTokens,
		Status:           rec.Status,
		LatencyMS:        rec.Latency.Milliseconds(),
	})
}
