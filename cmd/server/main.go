// Command server wires the digital-twin simulation service: stores,
// services, the in-process decryption oracle, audit pipeline, and the HTTP
// surface. Business logic lives in the internal packages; this file only
// composes them.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"velum/internal/admin"
	aggregatehandler "velum/internal/aggregate/handler"
	aggregatemetrics "velum/internal/aggregate/metrics"
	aggregateservice "velum/internal/aggregate/service"
	aggregatestore "velum/internal/aggregate/store"
	coordinatorhandler "velum/internal/coordinator/handler"
	coordinatormetrics "velum/internal/coordinator/metrics"
	"velum/internal/coordinator/predictor"
	coordinatorservice "velum/internal/coordinator/service"
	"velum/internal/oracle"
	"velum/internal/oracle/bgvengine"
	"velum/internal/oracle/local"
	"velum/internal/platform/config"
	"velum/internal/platform/httpserver"
	"velum/internal/platform/kafka"
	kafkaconsumer "velum/internal/platform/kafka/consumer"
	kafkaproducer "velum/internal/platform/kafka/producer"
	"velum/internal/platform/logger"
	"velum/internal/platform/metrics"
	"velum/internal/platform/redis"
	"velum/internal/platform/token"
	trackermetrics "velum/internal/tracker/metrics"
	trackerservice "velum/internal/tracker/service"
	trackerstore "velum/internal/tracker/store"
	twinhandler "velum/internal/twin/handler"
	twinmetrics "velum/internal/twin/metrics"
	twinservice "velum/internal/twin/service"
	twinstore "velum/internal/twin/store"
	audit "velum/pkg/platform/audit"
	auditconsumer "velum/pkg/platform/audit/consumer"
	clinicalpub "velum/pkg/platform/audit/publishers/clinical"
	opspub "velum/pkg/platform/audit/publishers/ops"
	securitypub "velum/pkg/platform/audit/publishers/security"
	auditmemory "velum/pkg/platform/audit/store/memory"
	auditpostgres "velum/pkg/platform/audit/store/postgres"
	auditworker "velum/pkg/platform/audit/worker"
)

const (
	tokenIssuer   = "velum"
	tokenAudience = "velum-api"

	consumerGroup = "velum-audit"

	devSigningKey = "dev-secret-key-change-in-production"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	redisClient, err := redis.New(ctx, cfg.RedisURL, redis.WithPoolSize(cfg.RedisPoolSize))
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis connected")
	}

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres ping: %w", err)
		}
		if err := auditpostgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		log.Info("postgres connected")
	}

	// Audit store: the outbox-backed postgres store when configured, memory
	// otherwise. Clinical emission is fail-closed either way.
	var auditStore audit.Store
	var outbox *auditpostgres.Store
	if db != nil {
		outbox = auditpostgres.New(db)
		auditStore = outbox
	} else {
		auditStore = auditmemory.NewInMemoryStore()
	}

	clinical := clinicalpub.New(auditStore,
		clinicalpub.WithLogger(log),
		clinicalpub.WithMetrics(clinicalpub.NewMetrics()),
	)
	security := securitypub.New(
		securitypub.WithStore(auditStore),
		securitypub.WithLogger(log),
	)
	ops := opspub.New(auditStore,
		opspub.WithLogger(log),
		opspub.WithMetrics(opspub.NewMetrics()),
	)

	engine, decryptor, err := bgvengine.NewSuite()
	if err != nil {
		return fmt.Errorf("bgv suite: %w", err)
	}
	signer, proofVerifier, err := oracle.NewProofKeyPair()
	if err != nil {
		return fmt.Errorf("proof key pair: %w", err)
	}
	runtime := local.New(decryptor, signer, proofVerifier, log,
		local.WithDelay(cfg.OracleDeliveryDelay),
		local.WithWorkers(cfg.OracleWorkers),
	)

	twinStore := twinstore.NewInMemoryStore()
	pendingStore := trackerstore.NewInMemoryStore()
	counterStore := aggregatestore.NewInMemoryCounterStore()

	var snapshotStore aggregateservice.SnapshotStore
	if redisClient != nil {
		snapshotStore = aggregatestore.NewRedisSnapshotStore(redisClient.Client,
			aggregatestore.WithTTL(cfg.SnapshotTTL))
	} else {
		snapshotStore = aggregatestore.NewInMemorySnapshotStore()
	}

	twins := twinservice.New(twinStore,
		twinservice.WithLogger(log),
		twinservice.WithClinicalPublisher(clinical),
		twinservice.WithMetrics(twinmetrics.New()),
	)
	tracker := trackerservice.New(pendingStore,
		trackerservice.WithLogger(log),
		trackerservice.WithOpsTracker(ops),
		trackerservice.WithMetrics(trackermetrics.New()),
	)
	aggregate := aggregateservice.New(counterStore, snapshotStore, tracker, engine, runtime,
		aggregateservice.WithLogger(log),
		aggregateservice.WithClinicalPublisher(clinical),
		aggregateservice.WithSecurityPublisher(security),
		aggregateservice.WithMetrics(aggregatemetrics.New()),
	)
	coordinator := coordinatorservice.New(twinStore, tracker, aggregate, engine, runtime,
		predictor.NewRuleTable(),
		coordinatorservice.WithLogger(log),
		coordinatorservice.WithClinicalPublisher(clinical),
		coordinatorservice.WithSecurityPublisher(security),
		coordinatorservice.WithMetrics(coordinatormetrics.New()),
	)
	runtime.SetDispatcher(coordinator)

	if cfg.JWTSigningKey == devSigningKey {
		log.Warn("running with the development signing key; set JWT_SIGNING_KEY")
	}
	tokens := token.NewService(cfg.JWTSigningKey, tokenIssuer, tokenAudience)

	callbackHash := cfg.CallbackSecretHash
	if callbackHash == "" {
		// Dev fallback: mint a secret so the callback surface is usable
		// locally. Deployments configure CALLBACK_SECRET_HASH.
		secret, err := oracle.GenerateCallbackSecret()
		if err != nil {
			return fmt.Errorf("generate callback secret: %w", err)
		}
		callbackHash, err = oracle.HashCallbackSecret(secret)
		if err != nil {
			return fmt.Errorf("hash callback secret: %w", err)
		}
		log.Warn("CALLBACK_SECRET_HASH not set; generated a dev callback secret",
			"callback_secret", secret)
	}

	router := newRouter(routerDeps{
		logger:           log,
		metrics:          m,
		validator:        token.NewAdapter(tokens),
		callbackVerifier: oracle.NewCredentialVerifier(callbackHash),
		callbackRecorder: security,
		twins:            twinhandler.New(twins, log),
		simulations:      coordinatorhandler.New(coordinator, log),
		categories:       aggregatehandler.New(aggregate, log),
		admin:            admin.New(tracker, security, cfg.PendingMaxAge, log),
		callbacks:        coordinatorhandler.NewCallbackHandler(coordinator, log),
		ready: func(ctx context.Context) error {
			if redisClient != nil {
				if err := redisClient.Health(ctx); err != nil {
					return err
				}
			}
			if db != nil {
				return db.PingContext(ctx)
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return runtime.Run(ctx) })
	g.Go(func() error { return security.Run(ctx) })
	g.Go(func() error { return ops.Run(ctx) })
	g.Go(func() error { return tracker.RunSweeps(ctx, cfg.SweepInterval, cfg.PendingMaxAge) })

	if len(cfg.KafkaBrokers) > 0 && outbox != nil {
		if err := kafka.EnsureTopics(ctx, cfg.KafkaBrokers, audit.Topics(cfg.KafkaTopicPrefix)...); err != nil {
			return fmt.Errorf("ensure audit topics: %w", err)
		}
		producer, err := kafkaproducer.New(cfg.KafkaBrokers)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()

		relay := auditworker.NewRelay(outbox, producer, cfg.KafkaTopicPrefix, log)
		g.Go(func() error { return relay.Run(ctx) })

		topicRouter := auditconsumer.NewRouter(log, nil)
		topicRouter.Register(audit.TopicFor(cfg.KafkaTopicPrefix, audit.CategoryClinical),
			auditconsumer.NewClinicalHandler(outbox, log))
		topicRouter.Register(audit.TopicFor(cfg.KafkaTopicPrefix, audit.CategorySecurity),
			auditconsumer.NewSecurityHandler(outbox, log))
		topicRouter.Register(audit.TopicFor(cfg.KafkaTopicPrefix, audit.CategoryOperations),
			auditconsumer.NewOpsHandler(outbox, log))

		consumer, err := kafkaconsumer.New(cfg.KafkaBrokers, consumerGroup,
			audit.Topics(cfg.KafkaTopicPrefix), topicRouter, log)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		g.Go(func() error { return consumer.Run(ctx) })
		log.Info("audit pipeline started", "brokers", cfg.KafkaBrokers, "prefix", cfg.KafkaTopicPrefix)
	}

	g.Go(func() error {
		log.Info("velum listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down", "grace", cfg.ShutdownGrace)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
