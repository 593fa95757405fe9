package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/housemates/internal/auth"
	"github.com/mmynk/housemates/internal/config"
	"github.com/mmynk/housemates/internal/events"
	"github.com/mmynk/housemates/internal/ledger"
	"github.com/mmynk/housemates/internal/membership"
	"github.com/mmynk/housemates/internal/middleware"
	"github.com/mmynk/housemates/internal/receipts"
	"github.com/mmynk/housemates/internal/service"
	"github.com/mmynk/housemates/internal/storage/sqlite"
	"github.com/mmynk/housemates/pkg/api/apiconnect"
	"github.com/mmynk/housemates/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.SetupWithOptions(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	receiptStore, err := receipts.NewFileStore(cfg.ReceiptsDir, cfg.ReceiptsBaseURL, cfg.ReceiptMaxDimension)
	if err != nil {
		return err
	}
	slog.Info("Receipt storage initialized", "path", cfg.ReceiptsDir)

	metrics := middleware.NewMetrics()
	metrics.Registry.MustRegister(collectors.NewDBStatsCollector(store.DB(), "housemates"))

	hub := events.NewHub()
	defer hub.Close()
	publishers := events.Multi{hub}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
		slog.Info("Publishing events to AMQP", "exchange", cfg.AMQPExchange)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)
	manager := membership.NewManager(store, publishers,
		membership.WithMaxAttempts(cfg.MembershipMaxAttempts),
		membership.WithRetryCounter(metrics.ConflictRetries),
	)
	book := ledger.New(store, receiptStore, publishers)

	interceptors := connect.WithInterceptors(
		metrics.Interceptor(),
		middleware.NewAuthInterceptor(jwtManager,
			apiconnect.AuthServiceRegisterProcedure,
			apiconnect.AuthServiceLoginProcedure,
		),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(
		service.NewAuthService(authenticator, jwtManager, store, slog.Default()), interceptors))
	mux.Handle(apiconnect.NewHouseholdServiceHandler(
		service.NewHouseholdService(manager, hub), interceptors))
	mux.Handle(apiconnect.NewLedgerServiceHandler(
		service.NewLedgerService(book), interceptors))
	mux.Handle("/receipts/", receipts.NewHandler(receiptStore, service.ReceiptAuthorizer(jwtManager, store)))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.DB().PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect streaming)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(corsMiddleware(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down server")
		// Close watch streams so Shutdown does not wait on them.
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
