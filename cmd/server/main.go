// Command server runs the claim eligibility service: the HTTP API, the event
// bus consumers, and their shared stores. main only wires dependencies;
// behavior lives in the internal packages.
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

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"claimcheck/internal/batch/ledger"
	batchStore "claimcheck/internal/batch/store"
	"claimcheck/internal/eligibility"
	eligibilityHandler "claimcheck/internal/eligibility/handler"
	"claimcheck/internal/flightstatus"
	"claimcheck/internal/flightstatus/cache"
	"claimcheck/internal/ingest"
	ingestHandler "claimcheck/internal/ingest/handler"
	"claimcheck/internal/platform/config"
	"claimcheck/internal/platform/httpserver"
	"claimcheck/internal/platform/kafka"
	"claimcheck/internal/platform/kafka/consumer"
	"claimcheck/internal/platform/logger"
	platformredis "claimcheck/internal/platform/redis"
	"claimcheck/internal/stats"
	statsHandler "claimcheck/internal/stats/handler"
	httptransport "claimcheck/internal/transport/http"
	"claimcheck/internal/warehouse"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warehouse: Postgres when configured, in-memory for local development.
	var warehouseStore warehouse.Store
	var warehouseDB *sql.DB
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open warehouse database", "error", err)
			os.Exit(1)
		}
		warehouseDB = db
		warehouseStore = warehouse.NewSQLStore(db)
	} else {
		log.Warn("no postgres configured, using in-memory warehouse")
		warehouseStore = warehouse.NewInMemoryStore()
	}

	// Batch ledger: same database over pgx, or in-memory.
	var ledgerStore ledger.Store
	var ledgerPool *pgxpool.Pool
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open ledger pool", "error", err)
			os.Exit(1)
		}
		ledgerPool = pool
		pgStore := batchStore.NewPostgresStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Error("ledger migration failed", "error", err)
			os.Exit(1)
		}
		ledgerStore = pgStore
	} else {
		ledgerStore = batchStore.NewInMemoryStore()
	}

	lgr, err := ledger.New(ledgerStore, ledger.WithLogger(log))
	if err != nil {
		log.Error("failed to build ledger", "error", err)
		os.Exit(1)
	}

	// Live flight-status cache: Redis for multi-instance deployments,
	// in-process otherwise.
	var liveCache flightstatus.Cache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		liveCache = cache.NewRedisCache(redisClient.Client)
	} else {
		log.Warn("no redis configured, using in-process flight status cache")
		liveCache = cache.NewInMemoryCache()
	}

	aggregator := stats.NewAggregator()

	resolver, err := eligibility.New(warehouseStore, liveCache, aggregator, eligibility.Policy{
		DelayThresholdMinutes: cfg.Policy.DelayThresholdMinutes,
		StreamConfidence:      cfg.Policy.StreamConfidence,
		WarehouseConfidence:   cfg.Policy.WarehouseConfidence,
		ConflictPenalty:       cfg.Policy.ConflictPenalty,
	}, eligibility.WithLogger(log))
	if err != nil {
		log.Error("failed to build eligibility resolver", "error", err)
		os.Exit(1)
	}

	// Event bus. Without brokers the service still serves reads; batch
	// submission fails as unavailable.
	var publisher ingest.Publisher = unavailableBus{}
	var kafkaPublisher *kafka.Publisher
	var busConsumer *consumer.Consumer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err = kafka.NewPublisher(cfg.Kafka, log)
		if err != nil {
			log.Error("failed to create kafka publisher", "error", err)
			os.Exit(1)
		}
		publisher = kafkaPublisher

		router := consumer.NewRouter(log, nil)
		router.Register(cfg.Kafka.TopicProcessingStatus, ingest.NewStatusHandler(lgr, log))
		router.Register(cfg.Kafka.TopicFlightStatus, flightstatus.NewSubscriber(liveCache, log))

		topics := []string{cfg.Kafka.TopicProcessingStatus, cfg.Kafka.TopicFlightStatus}
		busConsumer, err = consumer.New(cfg.Kafka, topics, router, log)
		if err != nil {
			log.Error("failed to create kafka consumer", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("no kafka brokers configured, batch submission disabled")
	}

	coordinator, err := ingest.New(lgr, publisher, cfg.Kafka.TopicIntake,
		ingest.WithLogger(log),
		ingest.WithPublishRetry(cfg.Ingest.PublishMaxAttempts, cfg.Ingest.PublishBaseDelay),
	)
	if err != nil {
		log.Error("failed to build ingestion coordinator", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(
		ingestHandler.New(coordinator, cfg.UploadDir, log),
		eligibilityHandler.New(resolver, log),
		statsHandler.New(aggregator),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting claimcheck server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if busConsumer != nil {
		g.Go(func() error {
			log.Info("starting event bus consumer", "group", cfg.Kafka.GroupID)
			return busConsumer.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		if busConsumer != nil {
			busConsumer.Close()
		}
		if kafkaPublisher != nil {
			kafkaPublisher.Close()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if ledgerPool != nil {
			ledgerPool.Close()
		}
		if warehouseDB != nil {
			_ = warehouseDB.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("service stopped")
}

// unavailableBus stands in when no brokers are configured so the coordinator
// fails submissions instead of panicking.
type unavailableBus struct{}

func (unavailableBus) Publish(context.Context, string, []byte, []byte) error {
	return errors.New("event bus not configured")
}
