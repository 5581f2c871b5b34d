package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"turnstile/cmd/sweeper/jobs"
	"turnstile/internal/cache"
	"turnstile/internal/config"
	"turnstile/internal/consumers"
	"turnstile/internal/database"
	"turnstile/internal/external"
	"turnstile/internal/ingress"
	"turnstile/internal/logger"
	"turnstile/internal/messaging"
	"turnstile/internal/repository"
	"turnstile/internal/service"
	"turnstile/internal/waitroom"
)

// The sweeper owns the background maintenance of the sale: admission
// advancing, waiting-queue heartbeat eviction, session-expiry reclamation
// and, in distributed mode, ingress draining.
func main() {
	cfg := config.Load()

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	rdb, err := cache.Connect(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to shared store", "error", err)
	}
	defer rdb.Close()

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Get().Warn("NATS unavailable, domain events disabled", "error", err)
		natsClient = nil
	} else {
		defer natsClient.Close()
	}

	paymentClient := external.NewPaymentClient(cfg.Payment)

	repos := repository.NewRepositories(db)
	queue := waitroom.NewWaitingQueue(rdb, cfg.Sale.HeartbeatTTL)
	gate := waitroom.NewAdmissionGate(rdb)
	guard := waitroom.NewDuplicateGuard(rdb)
	sessions := waitroom.NewSessionStore(rdb, cfg.Sale.SessionTTL)
	buffer := ingress.NewRedisBuffer(rdb, cfg.Ingress.Capacity, cfg.Ingress.OfferTimeout)

	services := service.NewServices(repos, queue, gate, guard, sessions, buffer, natsClient, paymentClient, cfg.Sale)

	ctx := context.Background()

	advanceJob := jobs.NewAdmissionAdvanceJob(services.Tickets, services.Waitlist, cfg.Sale.AdmissionInterval)
	advanceJob.Start(ctx)
	defer advanceJob.Stop()

	expiryJob := jobs.NewWaitlistExpiryJob(services.Tickets, services.Waitlist, cfg.Sale.WaitingSweepInterval)
	expiryJob.Start(ctx)
	defer expiryJob.Stop()

	sessionJob := jobs.NewSessionExpiryJob(services.Purchases, cfg.Sale.SessionSweepInterval)
	sessionJob.Start(ctx)
	defer sessionJob.Stop()

	if natsClient != nil {
		audit := consumers.NewEventAuditConsumer(natsClient)
		if err := audit.Start(); err != nil {
			logger.Get().Warn("Event audit consumer disabled", "error", err)
		} else {
			defer audit.Stop()
		}
	}

	var drainJob *jobs.IngressDrainJob
	if cfg.Ingress.Distributed {
		drainJob = jobs.NewIngressDrainJob(services.Waitlist, cfg.Ingress.DrainBatchSize, cfg.Ingress.DrainInterval)
		drainJob.Start(ctx)
		defer drainJob.Stop()
	}

	logger.Get().Info("Sweeper started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info("Sweeper stopping")
}
