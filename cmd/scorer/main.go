// Command scorer serves the cricket scoring API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cricketcore/internal/adapters/httpapi"
	"cricketcore/internal/archive"
	"cricketcore/internal/config"
	"cricketcore/internal/core"
	"cricketcore/internal/infra/notify"
	"cricketcore/internal/infra/persistence/sqlite"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var exitFunc = os.Exit

func main() {
	legacy := flag.String("import-legacy", "", "import teams, players and matches from an older scorer database before serving")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *legacy, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "scorer: %v\n", err)
		exitFunc(1)
	}
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// openTracer appends one JSON line per operation span to path. Callers close
// the file with the returned func.
func openTracer(path string) (*core.JSONTraceTracer, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open trace file: %w", err)
	}
	return core.NewJSONTracer(f), f.Close, nil
}

func run(ctx context.Context, legacyPath string, logOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, logOut)
	slog.SetDefault(logger)

	store, err := core.OpenPersistentStore(cfg.StorageOptions(), core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := core.CloseStore(store); err != nil {
			logger.Error("close store", "error", err)
		}
	}()

	if legacyPath == "" {
		legacyPath = cfg.LegacyImport
	}
	if legacyPath != "" {
		report, err := sqlite.ImportLegacy(ctx, legacyPath, store)
		if err != nil {
			return fmt.Errorf("import legacy database: %w", err)
		}
		logger.Info("legacy import complete",
			"teams", report.Teams,
			"players", report.Players,
			"matches", report.Matches,
			"skipped_players", report.SkippedPlayers,
			"skipped_matches", report.SkippedMatches,
		)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promRec, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	notifiers := core.MultiNotifier{core.NewLogNotifier(logger)}
	if cfg.RedisURL != "" {
		client, err := notify.Open(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		notifiers = append(notifiers, notify.NewStreamNotifier(client,
			notify.WithStream(cfg.RedisStream),
			notify.WithMaxLen(cfg.RedisMaxLen),
		))
		logger.Info("notifications forwarded to redis", "stream", cfg.RedisStream)
	}

	opts := append(cfg.ServiceOptions(),
		core.WithLogger(logger),
		core.WithAuditRecorder(core.NewLogAuditRecorder(logger)),
		core.WithMetricsRecorder(core.MultiMetricsRecorder{promRec, core.NewExpvarMetricsRecorder("scorer")}),
		core.WithNotifier(notifiers),
	)
	if cfg.TraceFile != "" {
		tracer, closeTrace, err := openTracer(cfg.TraceFile)
		if err != nil {
			return err
		}
		defer func() { _ = closeTrace() }()
		opts = append(opts, core.WithTracer(tracer))
		logger.Info("operation traces enabled", "file", cfg.TraceFile)
	}

	var archiver *archive.Archiver
	blobStore, err := archive.Open(ctx, cfg.Archive())
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	if blobStore != nil {
		archiver = archive.NewArchiver(blobStore)
		opts = append(opts, core.WithArchiver(archiver))
		logger.Info("scorecard archive enabled", "driver", string(archiver.Driver()))
	}

	svc := core.NewService(store, opts...)
	handler := httpapi.NewHandler(svc,
		httpapi.WithLogger(logger),
		httpapi.WithCORSOrigins(cfg.CORSOrigins),
		httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		httpapi.WithArchiver(archiver),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return serve(ctx, srv, cfg.ShutdownTimeout, logger)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, grace time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "grace", grace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
