package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/cropwatch/internal/services/alerting"
	"github.com/LeonardoBeccarini/cropwatch/internal/services/notifier"
	"github.com/LeonardoBeccarini/cropwatch/internal/services/orchestrator"
	"github.com/LeonardoBeccarini/cropwatch/internal/services/providers"
	"github.com/LeonardoBeccarini/cropwatch/internal/storage/influx"
	"github.com/LeonardoBeccarini/cropwatch/internal/storage/mongostore"
	"github.com/LeonardoBeccarini/cropwatch/internal/storage/objectstore"
	"github.com/LeonardoBeccarini/cropwatch/pkg/rabbitmq"
	"github.com/LeonardoBeccarini/cropwatch/pkg/telemetry"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Service:  "analysis-orchestrator",
		Exporter: cfg.OtelExporter,
		Endpoint: cfg.OtelEndpoint,
		Insecure: true,
	})
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	// ---- storage ----
	store, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.MongoURI, Database: cfg.MongoDB})
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer store.Close(context.Background())

	var series *influx.Writer
	if cfg.InfluxToken != "" {
		series = influx.New(influx.Config{URL: cfg.InfluxURL, Token: cfg.InfluxToken, Org: cfg.InfluxOrg, Bucket: cfg.InfluxBucket})
		defer series.Close()
	} else {
		log.Printf("INFLUX_TOKEN not set, index time series disabled")
	}

	var artifacts orchestrator.ArtifactStore
	if cfg.MinioEndpoint != "" {
		objs, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Printf("objectstore disabled: %v", err)
		} else {
			artifacts = objs
		}
	}

	// ---- broker ----
	client, err := rabbitmq.NewRabbitMQConn(ctx, &cfg.Rabbit)
	if err != nil {
		log.Fatalf("MQTT connect error: %v", err)
	}
	dispatcher := notifier.New(rabbitmq.NewPublisher(client), notifier.Config{TopicTemplate: cfg.NotifyTopicTmpl})

	// ---- providers ----
	breaker := providers.BreakerConfig{
		Failures: cfg.BreakerFailures,
		OpenFor:  time.Duration(cfg.BreakerOpenMs) * time.Millisecond,
	}
	bands := providers.NewBandClient(cfg.BandsURL, cfg.callTimeout(), breaker)
	vision := providers.NewVisionClient(cfg.VisionURL, cfg.callTimeout(), breaker)

	// ---- orchestrator ----
	metrics := orchestrator.NewMetrics()
	healthRep := orchestrator.NewHealthReporter()

	deps := orchestrator.Deps{
		Farms:     store,
		Analyses:  store,
		Reports:   store,
		Bands:     bands,
		Vision:    vision,
		Alerts:    alerting.NewAggregator(store, dispatcher, alerting.Config{}),
		Admin:     dispatcher,
		Artifacts: artifacts,
	}
	if series != nil {
		deps.Series = series
	}
	orch, err := orchestrator.New(deps, orchestrator.Config{
		BatchSize:          cfg.BatchSize,
		InterBatchDelay:    cfg.interBatchDelay(),
		FreshnessWindow:    cfg.freshnessWindow(),
		Thresholds:         cfg.Thresholds,
		MaxImageAgeDays:    cfg.MaxImageAgeDays,
		CallTimeout:        cfg.callTimeout(),
		AdminNotifications: cfg.AdminNotifications,
		AdminContacts:      cfg.AdminContacts,
		Hooks:              metrics.Hooks().Merge(healthRep.Hooks()),
	})
	if err != nil {
		log.Fatalf("orchestrator: %v", err)
	}

	schedule, err := orchestrator.ParseSchedule(cfg.RunAt, cfg.TimeZone)
	if err != nil {
		log.Fatalf("schedule: %v", err)
	}
	go orchestrator.RunScheduler(ctx, orch, schedule, nil)

	consumer := rabbitmq.NewConsumer(client, cfg.RunCommandTopic, 1, orchestrator.CommandHandler(ctx, orch))
	go consumer.ConsumeMessage(ctx)

	go func() {
		if err := healthRep.Serve(ctx, fmt.Sprintf(":%d", cfg.GRPCPort)); err != nil {
			log.Printf("gRPC health stopped: %v", err)
		}
	}()

	// ---- HTTP ----
	ready := map[string]orchestrator.ReadyCheck{
		"mongo": store.Ping,
		"mqtt": func(context.Context) error {
			if !client.IsConnectionOpen() {
				return errors.New("mqtt not connected")
			}
			return nil
		},
	}
	if series != nil {
		ready["influx"] = func(context.Context) error {
			if series.LastErrorAge() < 30*time.Second {
				return errors.New("recent influx write error")
			}
			return nil
		}
	}
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: orchestrator.NewRouter(orch, orchestrator.APIConfig{
			BaseContext: ctx,
			Ready:       ready,
			Breakers: map[string]func() string{
				"bands":  bands.BreakerState,
				"vision": vision.BreakerState,
			},
			Metrics: metrics.Handler(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("analysis orchestrator HTTP on %s, nightly run at %s %s", srv.Addr, cfg.RunAt, cfg.TimeZone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP serve error: %v", err)
		}
	}()

	// ---- graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	log.Println("shutting down...")
	orch.Stop()

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	_ = shutdownTracing(sctx)
	cancel()
	rabbitmq.CloseRabbitMQConn(client)
}
