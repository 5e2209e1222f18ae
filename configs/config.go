package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "POSAPI_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
		Timezone string `koanf:"timezone"`
		Locale   string `koanf:"locale"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Storage struct {
		Driver string `koanf:"driver"`
	} `koanf:"storage"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
		Migrate         bool          `koanf:"migrate"`
	} `koanf:"mysql"`

	// An empty Addr keeps idempotency and the order cache in process.
	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Cache struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"cache"`

	// An empty URL disables the invoice job queue.
	Rabbit struct {
		URL        string `koanf:"url"`
		Exchange   string `koanf:"exchange"`
		RoutingKey string `koanf:"routing_key"`
		Queue      string `koanf:"queue"`
		Prefetch   int    `koanf:"prefetch"`
	} `koanf:"rabbitmq"`

	// No brokers disables the outbox relay and the invoice backfill consumer.
	Kafka struct {
		Brokers       []string `koanf:"brokers"`
		TopicEvents   string   `koanf:"topic_events"`
		ConsumerGroup string   `koanf:"consumer_group"`
		ClientID      string   `koanf:"client_id"`
	} `koanf:"kafka"`

	Outbox struct {
		PollInterval time.Duration `koanf:"poll_interval"`
		BatchSize    int           `koanf:"batch_size"`
		Lease        time.Duration `koanf:"lease"`
	} `koanf:"outbox"`

	Security struct {
		JWTSecret string `koanf:"jwt_secret"`
		Issuer    string `koanf:"issuer"`
		Audience  string `koanf:"audience"`
	} `koanf:"security"`

	Invoice struct {
		Dir      string `koanf:"dir"`
		Currency string `koanf:"currency"`
		FontPath string `koanf:"font_path"`
	} `koanf:"invoice"`

	Checkout struct {
		InventoryMode string        `koanf:"inventory_mode"`
		Timeout       time.Duration `koanf:"timeout"`
	} `koanf:"checkout"`
}

// Load layers <dir>/base.yaml, <dir>/<envName>.yaml and POSAPI_* variables.
// A .env file in the working directory is read first when present.
func Load(pathDir, envName string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(filepath.Join(pathDir, "base.yaml")), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// env override (dev/staging/prod); missing is fine for local runs
	_ = k.Load(file.Provider(filepath.Join(pathDir, envName+".yaml")), yaml.Parser())

	// e.g. POSAPI_MYSQL__DSN, POSAPI_SECURITY__JWT_SECRET
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	// POSAPI_KAFKA__BROKERS arrives as one comma separated string
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	switch c.Storage.Driver {
	case "mysql":
		if c.MySQL.DSN == "" {
			return fmt.Errorf("mysql.dsn required for storage.driver=mysql")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver %q: want mysql or memory", c.Storage.Driver)
	}
	switch c.Checkout.InventoryMode {
	case "", "transactional", "post_commit":
	default:
		return fmt.Errorf("checkout.inventory_mode %q: want transactional or post_commit", c.Checkout.InventoryMode)
	}
	if c.Invoice.Dir == "" {
		return fmt.Errorf("invoice.dir required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.TopicEvents == "" {
		return fmt.Errorf("kafka.topic_events required when brokers are set")
	}
	if c.Rabbit.URL != "" && c.Rabbit.Queue == "" {
		return fmt.Errorf("rabbitmq.queue required when url is set")
	}
	return nil
}

// Location resolves app.timezone; empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.App.Timezone)
}
