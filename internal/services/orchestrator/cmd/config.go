package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/cropwatch/internal/services/vegetation"
	"github.com/LeonardoBeccarini/cropwatch/pkg/rabbitmq"
)

// Config of the orchestrator service. Defaults, then CONFIG_PATH (YAML),
// then environment variables.
type Config struct {
	BatchSize          int                   `yaml:"batch_size"`
	InterBatchDelaySec int                   `yaml:"inter_batch_delay_seconds"`
	FreshnessHours     int                   `yaml:"freshness_window_hours"`
	Thresholds         vegetation.Thresholds `yaml:"ndvi_thresholds"`
	AdminNotifications bool                  `yaml:"admin_notifications"`
	AdminContacts      []string              `yaml:"admin_contacts"`
	MaxImageAgeDays    int                   `yaml:"max_image_age_days"`
	CallTimeoutSec     int                   `yaml:"call_timeout_seconds"`

	RunAt    string `yaml:"run_at"`
	TimeZone string `yaml:"tz"`

	HTTPPort int `yaml:"http_port"`
	GRPCPort int `yaml:"grpc_port"`

	MongoURI string `yaml:"mongo_uri"`
	MongoDB  string `yaml:"mongo_db"`

	InfluxURL    string `yaml:"influx_url"`
	InfluxToken  string `yaml:"-"`
	InfluxOrg    string `yaml:"influx_org"`
	InfluxBucket string `yaml:"influx_bucket"`

	Rabbit          rabbitmq.RabbitMQConfig `yaml:"-"`
	RabbitHost      string                  `yaml:"rabbitmq_host"`
	RabbitPort      int                     `yaml:"rabbitmq_port"`
	NotifyTopicTmpl string                  `yaml:"notify_topic_tmpl"`
	RunCommandTopic string                  `yaml:"run_command_topic"`

	BandsURL        string `yaml:"bands_url"`
	VisionURL       string `yaml:"vision_url"`
	BreakerFailures int    `yaml:"breaker_failures"`
	BreakerOpenMs   int    `yaml:"breaker_open_ms"`

	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"-"`
	MinioSecretKey string `yaml:"-"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`

	OtelExporter string `yaml:"otel_exporter"`
	OtelEndpoint string `yaml:"otel_endpoint"`
}

func defaultConfig() Config {
	return Config{
		BatchSize:          5,
		InterBatchDelaySec: 30,
		FreshnessHours:     24,
		Thresholds:         vegetation.DefaultThresholds(),
		MaxImageAgeDays:    10,
		CallTimeoutSec:     60,
		RunAt:              "02:00",
		TimeZone:           "Europe/Rome",
		HTTPPort:           8080,
		GRPCPort:           9090,
		MongoURI:           "mongodb://localhost:27017",
		MongoDB:            "cropwatch",
		InfluxURL:          "http://localhost:8086",
		InfluxOrg:          "cropwatch",
		InfluxBucket:       "vegetation",
		RabbitHost:         "localhost",
		RabbitPort:         1883,
		NotifyTopicTmpl:    "notify/{recipient}",
		RunCommandTopic:    "cmd/analysis/run",
		BreakerFailures:    5,
		BreakerOpenMs:      30000,
		MinioBucket:        "cropwatch-visualizations",
		OtelExporter:       "none",
	}
}

func loadConfig() (Config, error) {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.BatchSize = envInt("BATCH_SIZE", cfg.BatchSize)
	cfg.InterBatchDelaySec = envInt("INTER_BATCH_DELAY_SECONDS", cfg.InterBatchDelaySec)
	cfg.FreshnessHours = envInt("FRESHNESS_WINDOW_HOURS", cfg.FreshnessHours)
	cfg.Thresholds.Low = envFloat("NDVI_LOW", cfg.Thresholds.Low)
	cfg.Thresholds.Normal = envFloat("NDVI_NORMAL", cfg.Thresholds.Normal)
	cfg.Thresholds.High = envFloat("NDVI_HIGH", cfg.Thresholds.High)
	cfg.AdminNotifications = envBool("ADMIN_NOTIFICATIONS", cfg.AdminNotifications)
	cfg.AdminContacts = envList("ADMIN_CONTACTS", cfg.AdminContacts)
	cfg.MaxImageAgeDays = envInt("MAX_IMAGE_AGE_DAYS", cfg.MaxImageAgeDays)
	cfg.CallTimeoutSec = envInt("CALL_TIMEOUT_SECONDS", cfg.CallTimeoutSec)

	cfg.RunAt = envStr("RUN_AT", cfg.RunAt)
	cfg.TimeZone = envStr("TZ", cfg.TimeZone)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)

	cfg.MongoURI = envStr("MONGO_URI", cfg.MongoURI)
	cfg.MongoDB = envStr("MONGO_DB", cfg.MongoDB)

	cfg.InfluxURL = envStr("INFLUX_URL", cfg.InfluxURL)
	cfg.InfluxToken = os.Getenv("INFLUX_TOKEN")
	cfg.InfluxOrg = envStr("INFLUX_ORG", cfg.InfluxOrg)
	cfg.InfluxBucket = envStr("INFLUX_BUCKET", cfg.InfluxBucket)

	cfg.Rabbit = rabbitmq.RabbitMQConfig{
		Host:     envStr("RABBITMQ_HOST", cfg.RabbitHost),
		Port:     envInt("RABBITMQ_PORT", cfg.RabbitPort),
		User:     envStr("RABBITMQ_USER", "guest"),
		Password: envStr("RABBITMQ_PASSWORD", "guest"),
		ClientID: envStr("HOSTNAME", "analysis-orchestrator"),
	}
	cfg.NotifyTopicTmpl = envStr("NOTIFY_TOPIC_TMPL", cfg.NotifyTopicTmpl)
	cfg.RunCommandTopic = envStr("RUN_COMMAND_TOPIC", cfg.RunCommandTopic)

	cfg.BandsURL = envStr("BANDS_URL", cfg.BandsURL)
	cfg.VisionURL = envStr("VISION_URL", cfg.VisionURL)
	cfg.BreakerFailures = envInt("BREAKER_FAILURES", cfg.BreakerFailures)
	cfg.BreakerOpenMs = envInt("BREAKER_OPEN_MS", cfg.BreakerOpenMs)

	cfg.MinioEndpoint = envStr("MINIO_ENDPOINT", cfg.MinioEndpoint)
	cfg.MinioAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.MinioSecretKey = os.Getenv("MINIO_SECRET_KEY")
	cfg.MinioBucket = envStr("MINIO_BUCKET", cfg.MinioBucket)
	cfg.MinioUseSSL = envBool("MINIO_USE_SSL", cfg.MinioUseSSL)

	cfg.OtelExporter = envStr("OTEL_EXPORTER", cfg.OtelExporter)
	cfg.OtelEndpoint = envStr("OTEL_ENDPOINT", cfg.OtelEndpoint)

	if err := cfg.Thresholds.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) interBatchDelay() time.Duration {
	return time.Duration(c.InterBatchDelaySec) * time.Second
}

func (c Config) freshnessWindow() time.Duration {
	return time.Duration(c.FreshnessHours) * time.Hour
}

func (c Config) callTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSec) * time.Second
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
