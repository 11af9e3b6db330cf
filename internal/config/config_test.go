package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/config"
)

type fakeEnv map[string]string

func (f fakeEnv) Lookup(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func (f fakeEnv) GetString(key string) string { return f[key] }
func (f fakeEnv) GetInt(key string) int       { return 0 }
func (f fakeEnv) GetBool(key string) bool     { return false }

func TestParse(t *testing.T) {
	raw := []byte(`
service:
  environment: staging
stripe:
  secret_key: sk_from_file
guard:
  window: 5s
retry:
  gateway:
    max_attempts: 4
`)

	cfg, err := config.Parse(raw, fakeEnv{"stripe.webhook_secret": "whsec_env", "stripe.secret_key": "sk_env"})
	require.NoError(t, err)

	assert.Equal(t, "sk_env", cfg.Stripe.SecretKey)
	assert.Equal(t, "whsec_env", cfg.Stripe.WebhookSecret)
	assert.Equal(t, 5*time.Second, cfg.Guard.Window)
	assert.Equal(t, 4, cfg.Retry.Gateway.MaxAttempts)
	assert.Equal(t, 3, cfg.Retry.Receipt.MaxAttempts)
	assert.Equal(t, config.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "usd", cfg.Service.DefaultCurrency)
	assert.Equal(t, "payment-events", cfg.Kafka.Topic)
	assert.Equal(t, 30*time.Second, cfg.SMTP.SendTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg, err := config.Parse([]byte("service:\n  environment: production\n"), nil)
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	dev, err := config.Parse([]byte("{}"), nil)
	require.NoError(t, err)
	assert.NoError(t, dev.Validate())
	assert.Equal(t, 10*time.Second, dev.Guard.Window)
}

func TestPolicyConfig(t *testing.T) {
	p := config.PolicyConfig{MaxAttempts: 2, InitialBackoff: time.Second, MaxBackoff: 3 * time.Second}.Policy()
	assert.Equal(t, 2, p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 3*time.Second, p.Backoff(5))
}

func TestDatabaseDSN(t *testing.T) {
	cfg, err := config.Parse([]byte("database:\n  host: ledger\n  name: flushjohn\n  user: payments\n  password: secret\n"), nil)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Database.StatementTimeout)
	assert.Equal(t,
		"host=ledger port=5432 user=payments password=secret dbname=flushjohn sslmode=disable application_name=flushjohn-payments statement_timeout=5000",
		cfg.Database.DSN())

	bare := config.DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=require", bare.DSN())
}
