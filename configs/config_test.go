package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = `
app:
  http_addr: ":9090"
  timezone: Asia/Ho_Chi_Minh
  locale: vi
storage:
  driver: memory
invoice:
  dir: /tmp/invoices
security:
  jwt_secret: base-secret
checkout:
  inventory_mode: transactional
  timeout: 5s
`

func writeConfigDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestLoad_LayersEnvFileAndVariables(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"base.yaml": testBase,
		"prod.yaml": "checkout:\n  inventory_mode: post_commit\n",
	})
	t.Setenv("POSAPI_SECURITY__JWT_SECRET", "from-env")
	t.Setenv("POSAPI_KAFKA__BROKERS", "k1:9092,k2:9092")
	t.Setenv("POSAPI_KAFKA__TOPIC_EVENTS", "events")

	cfg, err := Load(dir, "prod")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.App.HTTPAddr)
	assert.Equal(t, "post_commit", cfg.Checkout.InventoryMode)
	assert.Equal(t, 5*time.Second, cfg.Checkout.Timeout)
	assert.Equal(t, "from-env", cfg.Security.JWTSecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Ho_Chi_Minh", loc.String())
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{"base.yaml": testBase})
	cfg, err := Load(dir, "staging")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestLoad_MissingBase(t *testing.T) {
	_, err := Load(t.TempDir(), "dev")
	assert.Error(t, err)
}

func validConfig() Config {
	var c Config
	c.App.HTTPAddr = ":8080"
	c.Storage.Driver = "memory"
	c.Invoice.Dir = "/tmp/inv"
	c.Security.JWTSecret = "s"
	return c
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no http addr":      func(c *Config) { c.App.HTTPAddr = "" },
		"mysql without dsn": func(c *Config) { c.Storage.Driver = "mysql" },
		"unknown driver":    func(c *Config) { c.Storage.Driver = "sqlite" },
		"unknown mode":      func(c *Config) { c.Checkout.InventoryMode = "eventually" },
		"no invoice dir":    func(c *Config) { c.Invoice.Dir = "" },
		"bad timezone":      func(c *Config) { c.App.Timezone = "Mars/Olympus" },
		"no jwt secret":     func(c *Config) { c.Security.JWTSecret = "" },
		"kafka no topic":    func(c *Config) { c.Kafka.Brokers = []string{"k:9092"} },
		"rabbit no queue":   func(c *Config) { c.Rabbit.URL = "amqp://x" },
	}
	require.NoError(t, validConfig().Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
