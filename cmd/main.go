package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	_ "github.com/joho/godotenv/autoload"

	"lead-automation-service/internal/analytics"
	"lead-automation-service/internal/campaign"
	"lead-automation-service/internal/config"
	"lead-automation-service/internal/controller"
	"lead-automation-service/internal/db"
	"lead-automation-service/internal/dispatch"
	httpserver "lead-automation-service/internal/http"
	"lead-automation-service/internal/repository"
	"lead-automation-service/internal/rules"
	"lead-automation-service/internal/scheduler"
	"lead-automation-service/internal/service"
	"lead-automation-service/internal/textgen"
	"lead-automation-service/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	events := repository.NewEventRepository(pool)
	ruleStore := repository.NewRuleRepository(pool)
	campaigns := repository.NewCampaignRepository(pool)
	enrollments := repository.NewEnrollmentRepository(pool)
	messages := repository.NewMessageRepository(pool)
	subjects := repository.NewSubjectRepository(pool)
	alerts := repository.NewAlertRepository(pool)

	// Analytics mirror is optional. Without it, ingestion still works and
	// GET /metrics reports the store as unavailable.
	var sink analytics.Sink
	var metrics analytics.Repository
	if cfg.ClickHouseAddr != "" {
		conn, chErr := db.NewClickHouseConn(ctx, cfg)
		if chErr != nil {
			log.Fatalf("connect clickhouse: %v", chErr)
		}
		defer conn.Close()

		if chErr := db.RunClickHouseMigrations(ctx, conn); chErr != nil {
			log.Fatalf("migrate clickhouse: %v", chErr)
		}

		metrics = analytics.NewRepository(conn)
		batchSink := analytics.NewBatchSink(metrics, cfg.SinkBufferSize, cfg.SinkBatchSize, cfg.SinkFlushEvery)
		defer batchSink.Shutdown()
		sink = batchSink
	} else {
		log.Println("[INFO] analytics store not configured, mirror disabled")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	email, err := transport.NewSESSender(awsCfg, cfg.SESFromEmail)
	if err != nil {
		log.Fatalf("build email sender: %v", err)
	}
	sms := transport.NewSNSSender(awsCfg)

	var generator textgen.Generator
	if cfg.GenAPIURL != "" {
		generator = textgen.NewHTTPGenerator(cfg.GenAPIURL, cfg.GenAPIKey, cfg.GenModel)
	}

	campaignEngine := campaign.NewEngine(campaigns, enrollments, messages, subjects)
	ruleEngine := rules.NewEngine(ruleStore, events, cfg.DefaultCooldown)

	applier := service.NewActionApplier(campaignEngine, campaigns, enrollments, messages, subjects)
	evalPool := service.NewEvalPool(ruleEngine, applier, cfg.EvalWorkers, cfg.EvalBufferSize)
	defer evalPool.Shutdown()

	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		MaxAttempts:       cfg.MaxSendAttempts,
		BackoffBase:       cfg.RetryBackoffBase,
		GenerationTimeout: cfg.GenerationTimeout,
	}, messages, enrollments, campaigns, subjects, alerts, campaignEngine, email, sms, generator)

	sched := scheduler.New(scheduler.Config{
		InstanceID:     cfg.InstanceID,
		Interval:       cfg.SchedulerInterval,
		BatchSize:      cfg.SchedulerBatchSize,
		Workers:        cfg.DispatchWorkers,
		EventRetention: cfg.EventRetention,
	}, messages, events, dispatcher)
	sched.Start(ctx)
	defer sched.Stop()

	eventService := service.NewEventService(events, subjects, campaignEngine, evalPool, sink, metrics, cfg.FutureTolerance)
	eventController := controller.NewEventController(eventService, ruleStore, campaigns, enrollments, alerts, campaignEngine)

	server := httpserver.NewServer(cfg, eventController)

	go func() {
		<-ctx.Done()
		log.Println("shutting down")
		if shutdownErr := server.Shutdown(); shutdownErr != nil {
			log.Printf("[ERROR] server shutdown: %v", shutdownErr)
		}
	}()

	log.Printf("starting server on %s", cfg.HTTPPort)
	if err := server.Listen(cfg.HTTPPort); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
