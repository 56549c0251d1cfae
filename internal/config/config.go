package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type APIConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	Port      string `envconfig:"PORT" default:"3000"`
	Env       string `envconfig:"APP_ENV" default:"production"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// pool
	DBMaxConns          int32  `envconfig:"DB_POOL_MAX_CONNS" default:"10"`
	DBMinConns          int32  `envconfig:"DB_POOL_MIN_CONNS" default:"0"`
	DBMaxConnLifetime   string `envconfig:"DB_POOL_MAX_CONN_LIFETIME" default:"1h"`
	DBMaxConnIdleTime   string `envconfig:"DB_POOL_MAX_CONN_IDLE_TIME" default:"30m"`
	DBHealthCheckPeriod string `envconfig:"DB_POOL_HEALTH_CHECK_PERIOD" default:"1m"`
	SeedDemoData        bool   `envconfig:"SEED_DEMO_DATA" default:"true"`

	// edge
	APIKey             string        `envconfig:"API_KEY"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RateLimitRequests  int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100"`
	RateLimitWindow    time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`
	RateLimitMaxKeys   int           `envconfig:"RATE_LIMIT_MAX_CLIENTS" default:"10000"`
	RateLimitSweep     time.Duration `envconfig:"RATE_LIMIT_SWEEP_INTERVAL" default:"1m"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// dispatch stub
	DispatchSuccessRate float64       `envconfig:"DISPATCH_SUCCESS_RATE" default:"0.9"`
	DispatchLatency     time.Duration `envconfig:"DISPATCH_LATENCY" default:"500ms"`
	DispatchRPS         float64       `envconfig:"DISPATCH_RPS" default:"0"`
	DispatchBurst       int           `envconfig:"DISPATCH_BURST" default:"10"`
	BreakerFailures     uint32        `envconfig:"DISPATCH_BREAKER_FAILURES" default:"10"`
	BreakerOpenTimeout  time.Duration `envconfig:"DISPATCH_BREAKER_TIMEOUT" default:"20s"`

	MaxRecipients int `envconfig:"MAX_RECIPIENTS_PER_REQUEST" default:"100"`

	// AWS / SQS history events, disabled when the queue URL is empty
	AWSRegion          string `envconfig:"AWS_REGION" default:"us-east-1"`
	SQSQueueURL        string `envconfig:"SQS_QUEUE_URL"`
	SQSFifo            bool   `envconfig:"SQS_FIFO" default:"false"`
	LocalstackEndpoint string `envconfig:"LOCALSTACK_ENDPOINT"`
}

func (c APIConfig) Development() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}

// Load reads an optional .env file and then the process environment.
func Load() (APIConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return APIConfig{}, err
	}
	var cfg APIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return APIConfig{}, err
	}
	if strings.TrimSpace(cfg.DBDSN) == "" {
		return APIConfig{}, errors.New("DB_DSN must not be empty")
	}
	if cfg.RateLimitRequests <= 0 {
		return APIConfig{}, errors.New("RATE_LIMIT_REQUESTS must be positive")
	}
	if cfg.RateLimitWindow <= 0 {
		return APIConfig{}, errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	if cfg.DispatchSuccessRate < 0 || cfg.DispatchSuccessRate > 1 {
		return APIConfig{}, errors.New("DISPATCH_SUCCESS_RATE must be within [0,1]")
	}
	return cfg, nil
}
