package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rs/dnscache"
	"golang.org/x/sync/errgroup"

	"github.com/Bahjat/comply-scanner/internal/api"
	"github.com/Bahjat/comply-scanner/internal/audit"
	"github.com/Bahjat/comply-scanner/internal/cache"
	"github.com/Bahjat/comply-scanner/internal/notify"
	"github.com/Bahjat/comply-scanner/internal/pageinsight"
	"github.com/Bahjat/comply-scanner/internal/pdfcheck"
	"github.com/Bahjat/comply-scanner/internal/platform/config"
	"github.com/Bahjat/comply-scanner/internal/platform/logger"
	"github.com/Bahjat/comply-scanner/internal/platform/metrics"
	"github.com/Bahjat/comply-scanner/internal/platform/middleware"
	"github.com/Bahjat/comply-scanner/internal/quota"
	"github.com/Bahjat/comply-scanner/internal/report"
	"github.com/Bahjat/comply-scanner/internal/scanner"
	"github.com/Bahjat/comply-scanner/internal/store"
)

const shutdownTimeout = 15 * time.Second

func newAuditor(cfg config.Config) audit.Auditor {
	if cfg.AuditEngine == config.EnginePageSpeed {
		return audit.NewPageSpeedAuditor(audit.DefaultPageSpeedBase, cfg.PageSpeedAPIKey)
	}
	return audit.NewLocalAuditor()
}

// newEngine wires the scan pipeline over one SSRF-safe HTTP client.
func newEngine(cfg config.Config, resolver *dnscache.Resolver, log *slog.Logger) *scanner.Engine {
	client := pageinsight.NewHTTPClient(resolver)
	return scanner.NewEngine(
		pageinsight.NewLoader(client),
		newAuditor(cfg),
		pdfcheck.NewInspector(client, log),
		log,
	)
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.LogLevel)
	log.Info("comply-scanner starting", "version", Version, "audit_engine", cfg.AuditEngine, "port", cfg.Port)

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() { _ = st.Close() }()

	resolver := &dnscache.Resolver{}
	svc := api.NewService(api.Deps{
		Scanner:  newEngine(cfg, resolver, log),
		Store:    st,
		Quota:    quota.NewGuard(st, cfg.RateLimitPerHour, log),
		Cache:    cache.New(st, cfg.CacheTTL, log),
		Mailer:   notify.NewResendMailer(notify.DefaultResendBase, cfg.ResendAPIKey, cfg.MailFrom),
		Notifier: notify.NewSlackNotifier(cfg.SlackWebhookURL),
		PDF:      report.NewPDFGenerator(),
	}, int64(cfg.MaxConcurrentScans), log)

	mux := http.NewServeMux()
	api.NewTransport(svc, log).RegisterRoutes(mux)
	handler := middleware.RequestID(middleware.Logging(log)(middleware.CORS(cfg.AllowedOrigins)(mux)))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      70 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		svc.Wait()
		log.Info("api stopped")
		return err
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(gctx, cfg.MetricsAddr, log) })
	}
	g.Go(func() error { return pageinsight.RefreshDNS(gctx, resolver, cfg.DNSCacheTTL, log) })

	return g.Wait()
}
