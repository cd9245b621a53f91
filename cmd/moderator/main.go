package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/chat"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/config"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/escalation"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/messaging"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/metrics"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/moderator"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/ratelimit"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/report"
)

const (
	requestTimeout  = 3 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "moderator").Logger()

	cfgPath := "moderator.yaml"
	if v := os.Getenv("MODERATOR_CONFIG"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("failed to load config")
	}
	log = log.Level(cfg.LogLevel())
	log.Info().Msg("starting moderation service")

	// Redis setup. Redis is only required when it backs the escalation store;
	// otherwise an unreachable Redis just turns the rate limits off.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	var limiter *ratelimit.Limiter
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		if cfg.Escalation.Store == config.StoreRedis {
			cancel()
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to Redis")
		}
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, rate limits disabled")
	} else {
		limiter = ratelimit.NewLimiter(rdb, log)
	}
	cancel()

	// Postgres setup.
	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		db, err = openPostgres(cfg.Postgres)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open Postgres")
		}
	}

	var (
		store  escalation.Store
		ledger report.Ledger
		lister moderator.ReportLister
	)
	switch cfg.Escalation.Store {
	case config.StorePostgres:
		pg := report.NewStore(db)
		store, ledger, lister = pg, pg, pg
	case config.StoreRedis:
		store = escalation.NewRedisStore(rdb)
		ledger = report.CounterLedger{Store: store}
	default:
		store = escalation.NewMemoryStore()
		ledger = report.CounterLedger{Store: store}
		log.Warn().Msg("using in-memory escalation store, state is lost on restart")
	}

	// NATS setup.
	natsConfig := messaging.DefaultNATSConfig()
	natsConfig.URL = cfg.NATS.URL
	natsConfig.Name = cfg.NATS.Name

	natsClient, err := messaging.NewNATSClient(natsConfig, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}

	engine := escalation.NewEngine(store, cfg.Escalation.Thresholds,
		escalation.WithHooks(messaging.NewEscalationPublisher(natsClient)),
		escalation.WithLogger(log),
		escalation.WithTimeout(cfg.Escalation.Timeout),
	)
	reportLimits, chatLimits := rateLimitOptions(limiter, cfg)
	recorder := report.NewRecorder(ledger, engine,
		append(reportLimits, report.WithLogger(log))...,
	)
	svcOpts := append(chatLimits,
		moderator.WithChatWindow(chat.NewMessageBuffer(cfg.Chat.WindowSize, chat.WithIdleTTL(cfg.Chat.IdleTTL))),
		moderator.WithSevereSeverity(cfg.Escalation.SevereSeverity),
		moderator.WithLogger(log),
	)
	if lister != nil {
		svcOpts = append(svcOpts, moderator.WithReportLister(lister))
	}
	svc := moderator.NewService(engine, recorder, svcOpts...)

	err = natsClient.ServeModerationRequests(func(data []byte) []byte {
		reqCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return svc.Handle(reqCtx, data)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to moderation requests")
	}

	// Metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	log.Info().
		Str("nats_url", natsConfig.URL).
		Str("redis_addr", cfg.Redis.Addr).
		Str("escalation_store", cfg.Escalation.Store).
		Str("metrics_addr", cfg.Metrics.Addr).
		Msg("moderation service running")

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Stringer("signal", sig).Msg("shutting down")

	// Stop taking requests and let in-flight handlers finish before waiting
	// for the escalations they started; the connection stays open so those
	// escalations can still publish their events.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := natsClient.StopServing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("stop serving")
	}
	engine.Wait()
	if err := natsClient.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("nats close")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown")
	}
	rdb.Close()
	if db != nil {
		db.Close()
	}
}

func openPostgres(cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if cfg.Migrate {
		if err := report.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// rateLimitOptions returns the rate limit options of the recorder and the
// service. A nil limiter yields none, so no request waits on Redis.
func rateLimitOptions(limiter *ratelimit.Limiter, cfg *config.Config) ([]report.RecorderOption, []moderator.Option) {
	if limiter == nil {
		return nil, nil
	}
	return []report.RecorderOption{report.WithRateLimit(limiter, cfg.ReportRule())},
		[]moderator.Option{moderator.WithChatRateLimit(limiter, cfg.ChatRule())}
}
