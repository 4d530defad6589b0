package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"reunion/internal/accounts"
	"reunion/internal/audit"
	"reunion/internal/consent"
	"reunion/internal/directory"
	"reunion/internal/ledger"
	"reunion/internal/notify"
	"reunion/internal/platform/config"
	"reunion/internal/platform/kafka"
	"reunion/internal/platform/logger"
	"reunion/internal/platform/metrics"
	"reunion/internal/platform/redis"
	"reunion/internal/scheduler"
	"reunion/internal/storage"
	"reunion/internal/verification"
	"reunion/internal/verification/handle"
)

// main wires one expiry-sweep invocation. An external timer (cron, systemd
// timer) owns cadence; the process exits non-zero when any sweep fails so
// the timer's failure handling can alert.
func main() {
	if err := run(); err != nil {
		logger.New().Error("sweeper run failed", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.NewWith(cfg.LogLevel, cfg.LogFormat)
	m := metrics.New()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = kafka.NewProducer(cfg.KafkaBrokers, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		for _, topic := range []string{cfg.AuditTopic, cfg.NotifyTopic, cfg.AccountsTopic} {
			if err := producer.EnsureTopic(ctx, topic); err != nil {
				return err
			}
		}
	}

	objects, err := storage.NewFileStore(cfg.ObjectBucket)
	if err != nil {
		return err
	}

	var activator verification.AccountActivator = accounts.NewLogActivator(log)
	if producer != nil {
		if activator, err = accounts.NewKafkaActivator(producer, cfg.AccountsTopic); err != nil {
			return err
		}
	}

	verificationOpts := []verification.Option{
		verification.WithLogger(log),
		verification.WithMetrics(m),
	}
	rdb, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		verificationOpts = append(verificationOpts, verification.WithHandleStore(handle.NewRedis(rdb)))
	}
	consentOpts := []consent.Option{
		consent.WithLogger(log),
		consent.WithMetrics(m),
	}
	if producer != nil {
		notifier, err := notify.NewKafkaNotifier(producer, cfg.NotifyTopic)
		if err != nil {
			return err
		}
		verificationOpts = append(verificationOpts, verification.WithNotifier(notifier))
		consentOpts = append(consentOpts, consent.WithNotifier(notifier))
	}

	documents, err := verification.New(
		verification.NewPostgres(db), objects, activator, verificationOpts...)
	if err != nil {
		return err
	}

	requests, err := consent.New(
		consent.NewPostgres(db), ledger.NewPostgres(db), directory.NewPostgres(db), consentOpts...)
	if err != nil {
		return err
	}

	auditOpts := []audit.Option{
		audit.WithLogger(log),
		audit.WithMetrics(m),
	}
	var (
		fanout     chan *audit.Entry
		workerDone chan error
	)
	if producer != nil {
		publisher, err := audit.NewKafkaPublisher(producer, cfg.AuditTopic)
		if err != nil {
			return err
		}
		fanout = make(chan *audit.Entry, 64)
		auditOpts = append(auditOpts, audit.WithFanout(fanout))
		worker := audit.NewWorker(publisher, fanout, log)
		workerDone = make(chan error, 1)
		go func() { workerDone <- worker.Run(ctx) }()
	}

	auditor, err := audit.New(audit.NewPostgres(db), auditOpts...)
	if err != nil {
		return err
	}

	runner, err := scheduler.NewRunner(auditor, scheduler.WithLogger(log))
	if err != nil {
		return err
	}
	if err := runner.Register("verification_documents", documents); err != nil {
		return err
	}
	if err := runner.Register("contact_access_requests", requests); err != nil {
		return err
	}

	summary, err := runner.Run(ctx)
	for name, count := range summary.Counts {
		log.Info("sweep summary", "sweep", name, "expired", count)
	}

	// No more entries are recorded past this point; closing the fan-out lets
	// the worker publish what is buffered and exit.
	if fanout != nil {
		close(fanout)
		if werr := <-workerDone; werr != nil && !errors.Is(werr, context.Canceled) {
			log.Error("audit publish worker stopped", "error", werr.Error())
		}
	}
	return err
}
