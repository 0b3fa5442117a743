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

	"github.com/go-chi/chi/v5"

	blobstore "docgov/internal/document/content"
	docstore "docgov/internal/document/store"
	jwttoken "docgov/internal/jwt_token"
	"docgov/internal/ledger"
	"docgov/internal/ledger/export"
	ledgerstore "docgov/internal/ledger/store"
	"docgov/internal/platform/config"
	"docgov/internal/platform/httpserver"
	"docgov/internal/platform/logger"
	platformmetrics "docgov/internal/platform/metrics"
	"docgov/internal/platform/postgres"
	platformredis "docgov/internal/platform/redis"
	"docgov/internal/policy"
	policystore "docgov/internal/policy/store"
	"docgov/internal/signature"
	"docgov/internal/signature/keystore"
	"docgov/internal/signature/revocation"
	sigstore "docgov/internal/signature/store"
	"docgov/internal/transition"
	"docgov/internal/transition/handler"
	transitionmetrics "docgov/internal/transition/metrics"
	"docgov/internal/transition/ports"
	txcontext "docgov/pkg/platform/tx"
)

const (
	jwtIssuer   = "docgov"
	jwtAudience = "docgov-api"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
//
// Storage is selected from configuration: with DOCGOV_POSTGRES_URL set the
// durable Postgres stores back everything; otherwise the in-memory stores do,
// which is only suitable for development.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	var (
		documents  ports.DocumentStore
		auditStore ledger.Store
		sigs       interface {
			ports.SignatureStore
			handler.SignatureReader
		}
		grants policy.GrantStore
		runner ports.TxRunner
	)

	var memGrants *policystore.InMemoryGrantStore

	if cfg.Postgres.URL != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			fatal(log, "postgres connection failed", err)
		}
		defer db.Close()

		documents = docstore.NewPostgres(db)
		auditStore = ledgerstore.NewPostgres(db)
		sigs = sigstore.NewPostgres(db)
		grants = policystore.NewPostgres(db)
		runner = newPostgresTxRunner(db)
		log.Info("using postgres storage")
	} else {
		memDocs := docstore.NewMemory()
		memLedger := ledgerstore.NewMemory()
		memSigs := sigstore.NewMemory()

		memGrants = policystore.NewMemory()
		documents = memDocs
		auditStore = memLedger
		sigs = memSigs
		grants = memGrants
		runner = txcontext.NewMemoryRunner(memDocs, memLedger, memSigs)
		log.Warn("using in-memory storage; state is lost on restart")
	}

	var revocations revocation.Store
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		fatal(log, "redis connection failed", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		revocations = revocation.NewRedis(redisClient)
		log.Info("using redis revocation store")
	} else {
		revocations = revocation.NewMemory()
	}

	keys := keystore.NewMemory()

	signer, err := signature.New(keys, revocations,
		signature.WithLogger(log),
		signature.WithSignTimeout(cfg.SigningTimeout),
	)
	if err != nil {
		fatal(log, "signature service init failed", err)
	}

	evaluator, err := policy.New(grants, policy.WithLogger(log))
	if err != nil {
		fatal(log, "policy evaluator init failed", err)
	}

	audit, err := ledger.New(auditStore, ledger.WithLogger(log))
	if err != nil {
		fatal(log, "ledger service init failed", err)
	}

	transitionOpts := []transition.Option{
		transition.WithLogger(log),
		transition.WithMetrics(transitionmetrics.New()),
		transition.WithReviewerDirectory(policystore.NewMemoryReviewerDirectory()),
	}

	var exporter *export.KafkaExporter
	if len(cfg.Kafka.Brokers) > 0 {
		exporter, err = export.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, export.WithLogger(log))
		if err != nil {
			fatal(log, "kafka exporter init failed", err)
		}
		if err := exporter.EnsureTopic(ctx, 1, 1); err != nil {
			fatal(log, "kafka topic creation failed", err)
		}
		transitionOpts = append(transitionOpts, transition.WithExporter(exporter))
		log.Info("audit export enabled", "topic", cfg.Kafka.Topic)
	}

	tables, err := transition.DefaultTables()
	if err != nil {
		fatal(log, "lifecycle table init failed", err)
	}

	transitions, err := transition.New(
		documents,
		blobstore.NewMemory(),
		audit,
		signer,
		sigs,
		evaluator,
		runner,
		tables,
		transitionOpts...,
	)
	if err != nil {
		fatal(log, "transition service init failed", err)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, jwtIssuer, jwtAudience)

	if memGrants != nil {
		if err := seedDevActors(ctx, log, memGrants, keys, jwtService); err != nil {
			fatal(log, "dev actor seeding failed", err)
		}
	}

	router := chi.NewRouter()
	h := handler.New(transitions, audit, sigs, signer, log, jwttoken.NewJWTServiceAdapter(jwtService))
	h.Register(router)
	router.Get("/metrics", platformmetrics.Handler().ServeHTTP)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting docgov", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal(log, "graceful shutdown failed", err)
	}
	if exporter != nil {
		if err := exporter.Close(shutdownCtx); err != nil {
			log.Error("kafka exporter close failed", "error", err)
		}
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
