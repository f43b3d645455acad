package config

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/pkg/configparser"
)

// Flags
var (
	modeFlag       = flag.String("mode", "", "application mode: delivery-service, driver-agent, tracking-viewer, set-status, issue-token")
	deliveryIDFlag = flag.String("delivery-id", "", "delivery to track or update")
	statusFlag     = flag.String("status", "", "target status for set-status")
	subjectFlag    = flag.String("subject", "", "token subject for issue-token")
	roleFlag       = flag.String("role", string(types.RoleDriver), "token role for issue-token: DRIVER, CUSTOMER, DISPATCHER")
)

// Errors
var (
	ErrModeNotProvided       = errors.New("mode flag not provided")
	ErrDeliveryIDNotProvided = errors.New("delivery-id flag not provided")
	ErrStatusNotProvided     = errors.New("status flag not provided")
	ErrSubjectNotProvided    = errors.New("subject flag not provided")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode       types.ServiceMode
		DeliveryID string
		Status     string
		Subject    string
		Role       types.Role

		LogLevel string `env:"LOG_LEVEL, default=INFO"`

		Database DatabaseConfig
		Redis    RedisConfig
		RabbitMQ RabbitMQConfig
		Services ServicesConfig
		Auth     AuthConfig
		Tracking TrackingConfig
		Agent    AgentConfig
		Viewer   ViewerConfig
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST, default=localhost"`
		Port     string `env:"DATABASE_PORT, default=5432"`
		User     string `env:"DATABASE_USER, default=delivery_user"`
		Password string `env:"DATABASE_PASSWORD, default=delivery_pass"`
		Database string `env:"DATABASE_DATABASE, default=delivery_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS, default=20"`
		MinConns        int32         `env:"DATABASE_MINCONNS, default=2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME, default=30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME, default=5m"`
	}

	RedisConfig struct {
		Addr        string        `env:"REDIS_ADDR, default=localhost:6379"`
		Password    string        `env:"REDIS_PASSWORD"`
		DB          int           `env:"REDIS_DB, default=0"`
		LocationTTL time.Duration `env:"REDIS_LOCATION_TTL, default=30m"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST, default=localhost"`
		Port     string `env:"RABBITMQ_PORT, default=5672"`
		User     string `env:"RABBITMQ_USER, default=guest"`
		Password string `env:"RABBITMQ_PASSWORD, default=guest"`
	}

	ServicesConfig struct {
		DeliveryService string `env:"SERVICES_DELIVERY_SERVICE, default=3000"`
		DriverAgent     string `env:"SERVICES_DRIVER_AGENT, default=3001"`
	}

	AuthConfig struct {
		JWTSecret      string        `env:"AUTH_JWT_SECRET, default=supersecretkey"`
		AccessTokenTTL time.Duration `env:"AUTH_ACCESS_TOKEN_TTL, default=8h"`
	}

	TrackingConfig struct {
		UpgradeAfter   time.Duration `env:"TRACKING_UPGRADE_AFTER, default=60s"`
		TimeoutBackoff time.Duration `env:"TRACKING_TIMEOUT_BACKOFF, default=5s"`
		MaxRetries     int           `env:"TRACKING_MAX_RETRIES, default=2"`

		PublishWindow time.Duration `env:"TRACKING_PUBLISH_WINDOW, default=10s"`
		LeadingSend   bool          `env:"TRACKING_LEADING_SEND, default=true"`

		HighTimeout        time.Duration `env:"TRACKING_HIGH_TIMEOUT, default=30s"`
		HighMaximumAge     time.Duration `env:"TRACKING_HIGH_MAXIMUM_AGE, default=0s"`
		MediumTimeout      time.Duration `env:"TRACKING_MEDIUM_TIMEOUT, default=20s"`
		MediumMaximumAge   time.Duration `env:"TRACKING_MEDIUM_MAXIMUM_AGE, default=60s"`
		LowTimeout         time.Duration `env:"TRACKING_LOW_TIMEOUT, default=15s"`
		LowMaximumAge      time.Duration `env:"TRACKING_LOW_MAXIMUM_AGE, default=300s"`
		FallbackTimeout    time.Duration `env:"TRACKING_FALLBACK_TIMEOUT, default=10s"`
		FallbackMaximumAge time.Duration `env:"TRACKING_FALLBACK_MAXIMUM_AGE, default=600s"`
	}

	AgentConfig struct {
		RemoteURL string `env:"AGENT_REMOTE_URL, default=http://localhost:3000"`
		Token     string `env:"AGENT_TOKEN"`
		TrackFile string `env:"AGENT_TRACK_FILE, default=tracks/sample.json"`
	}

	ViewerConfig struct {
		Transport string `env:"VIEWER_TRANSPORT, default=websocket"`
		BaseURL   string `env:"VIEWER_BASE_URL, default=http://localhost:3000"`
		Token     string `env:"VIEWER_TOKEN"`
	}
)

// GetDSN also carries the pool settings, which pgxpool reads from the connection string.
func (c DatabaseConfig) GetDSN() string {
	q := url.Values{}
	q.Set("sslmode", "disable")
	q.Set("pool_max_conns", fmt.Sprint(c.MaxConns))
	q.Set("pool_min_conns", fmt.Sprint(c.MinConns))
	q.Set("pool_max_conn_lifetime", c.MaxConnLifetime.String())
	q.Set("pool_max_conn_idle_time", c.MaxConnIdleTime.String())

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (c RabbitMQConfig) GetDSN() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/",
	}
	return u.String()
}

func (c RedisConfig) GetAddr() string     { return c.Addr }
func (c RedisConfig) GetPassword() string { return c.Password }
func (c RedisConfig) GetDB() int          { return c.DB }

// NewConfig loads .env (optional), then the YAML file, then processes the
// environment into the config. Already set variables take precedence at every step.
func NewConfig(filepath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := configparser.LoadYamlFile(filepath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	return cfg, nil
}

func parseFlags(cfg *Config) error {
	if modeFlag == nil || *modeFlag == "" {
		return ErrModeNotProvided
	}

	cfg.Mode = types.ServiceMode(*modeFlag)
	if !cfg.Mode.IsValid() {
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	cfg.DeliveryID = *deliveryIDFlag
	cfg.Status = *statusFlag
	cfg.Subject = *subjectFlag
	cfg.Role = types.Role(*roleFlag)

	return cfg.validate()
}

func (c *Config) validate() error {
	switch c.Mode {
	case types.DriverAgent, types.TrackingViewer:
		if c.DeliveryID == "" {
			return ErrDeliveryIDNotProvided
		}
	case types.SetStatus:
		if c.DeliveryID == "" {
			return ErrDeliveryIDNotProvided
		}
		if c.Status == "" {
			return ErrStatusNotProvided
		}
	case types.IssueToken:
		if c.Subject == "" {
			return ErrSubjectNotProvided
		}
		if !c.Role.IsValid() {
			return fmt.Errorf("%w: %q", types.ErrInvalidRole, c.Role)
		}
	}
	return nil
}
