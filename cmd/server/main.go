package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"taxtrail/internal/audit"
	auditstore "taxtrail/internal/audit/store"
	clienthandler "taxtrail/internal/client/handler"
	clientservice "taxtrail/internal/client/service"
	clientstore "taxtrail/internal/client/store"
	dochandler "taxtrail/internal/document/handler"
	"taxtrail/internal/document/scan"
	docservice "taxtrail/internal/document/service"
	docstore "taxtrail/internal/document/store"
	"taxtrail/internal/escalation"
	escstore "taxtrail/internal/escalation/store"
	fuhandler "taxtrail/internal/followup/handler"
	fumodels "taxtrail/internal/followup/models"
	"taxtrail/internal/followup/notify"
	fuservice "taxtrail/internal/followup/service"
	fustore "taxtrail/internal/followup/store"
	"taxtrail/internal/jwttoken"
	"taxtrail/internal/platform/config"
	"taxtrail/internal/platform/httpserver"
	"taxtrail/internal/platform/logger"
	"taxtrail/internal/platform/postgres"
	platformredis "taxtrail/internal/platform/redis"
	"taxtrail/internal/status"
	statushandler "taxtrail/internal/status/handler"
	httptransport "taxtrail/internal/transport/http"
	"taxtrail/internal/uploadlink"
	uploadlinkhandler "taxtrail/internal/uploadlink/handler"
)

// clientPersistence is everything the client service and the sweep worker
// need from one backing store.
type clientPersistence interface {
	clientservice.Store
	status.SweepClientStore
}

// main wires dependencies and runs the HTTP server, the sweep worker, and
// the audit worker under one lifecycle.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: Postgres when configured, in-memory otherwise.
	var (
		clients      clientPersistence
		requirements docservice.RequirementStore
		ledger       fuservice.LedgerStore
		escalations  status.EscalationRecorder
		settings     escalation.SettingsStore
		links        uploadlink.Store
	)
	escalationDefaults := escalation.Config{
		Threshold: cfg.ReminderThreshold,
		GraceDays: cfg.GraceDays,
	}
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		clients = clientstore.NewPostgres(db)
		requirements = docstore.NewPostgres(db)
		ledger = fustore.NewPostgres(db)
		escalations = escstore.NewPostgres(db)
		settings = escstore.NewPostgresSettings(db, escalationDefaults)
		links = uploadlink.NewPostgresStore(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		clients = clientstore.NewInMemory()
		requirements = docstore.NewInMemory()
		ledger = fustore.NewInMemory()
		escalations = escstore.NewInMemory()
		settings = escalation.NewInMemorySettings(escalationDefaults)
		links = uploadlink.NewInMemoryStore()
	}

	// Report cache, optional.
	var cache status.Cache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache = status.NewRedisCache(redisClient.Client, cfg.ReportCacheTTL)
	}

	// Audit pipeline: emitters enqueue, the worker drains into the sink.
	var auditSink audit.Store = auditstore.NewInMemory()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := auditstore.NewKafkaClient(cfg.Kafka.Brokers)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		kafkaStore := auditstore.NewKafka(kafkaClient, cfg.Kafka.AuditTopic)
		defer kafkaStore.Close()
		auditSink = kafkaStore
	}
	auditInbox := make(chan audit.Event, 256)
	auditor := audit.NewPublisher(audit.NewChannelStore(auditInbox))
	auditWorker := audit.NewWorker(auditSink, auditInbox, log)

	registry := prometheus.NewRegistry()
	statusMetrics := status.NewMetrics(registry)

	// Services.
	statusOpts := []status.Option{status.WithMetrics(statusMetrics)}
	invalidator := status.Cache(nil)
	if cache != nil {
		statusOpts = append(statusOpts, status.WithCache(cache))
		invalidator = cache
	}
	statusService := status.New(clients, requirements, ledger, settings, log, statusOpts...)

	clientOpts := []clientservice.Option{}
	docOpts := []docservice.Option{}
	fuOpts := []fuservice.Option{
		fuservice.WithSchedule(fumodels.NewSchedule(cfg.ScheduleOffsets)),
		fuservice.WithSenderProfile(fuservice.SenderProfile{
			Name:  cfg.Sender.Name,
			Firm:  cfg.Sender.Firm,
			Phone: cfg.Sender.Phone,
		}),
	}
	if invalidator != nil {
		clientOpts = append(clientOpts, clientservice.WithInvalidator(invalidator))
		docOpts = append(docOpts, docservice.WithInvalidator(invalidator))
		fuOpts = append(fuOpts, fuservice.WithInvalidator(invalidator))
	}

	clientService := clientservice.New(clients, settings, auditor, log, clientOpts...)
	// TODO: replace the in-memory scan source with the object-storage
	// integration once the upload pipeline lands.
	scanSource := scan.NewInMemorySource()
	documentService := docservice.New(requirements, clients, scanSource, auditor, log, docOpts...)
	followupService := fuservice.New(ledger, clients, requirements, notify.NewLogNotifier(log), auditor, log, fuOpts...)
	uploadlinkService := uploadlink.New(links, clients,
		cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, auditor, log)

	sweepOpts := []status.SweepOption{
		status.SweepWithMetrics(statusMetrics),
		status.SweepWithInterval(cfg.SweepInterval),
	}
	if cache != nil {
		sweepOpts = append(sweepOpts, status.SweepWithCache(cache))
	}
	sweep := status.NewSweep(clients, statusService, settings, escalations, auditor, log, sweepOpts...)

	tokens := jwttoken.NewService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	uploadlinkHandler := uploadlinkhandler.New(uploadlinkService, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Auth:     tokens,
		Registry: registry,
		Authenticated: []httptransport.Registrar{
			clienthandler.New(clientService, log),
			dochandler.New(documentService, log),
			fuhandler.New(followupService, log),
			statushandler.New(statusService, log),
			uploadlinkHandler,
		},
		Public: []httptransport.PublicRegistrar{uploadlinkHandler},
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting taxtrail", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := sweep.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		err := auditWorker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
