package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nishant-k1/flushjohn-api-sub000/pkg/config"
	"github.com/nishant-k1/flushjohn-api-sub000/pkg/logger"
)

// EnvPrefix prefixes environment overrides, e.g. PAYMENT_STRIPE_SECRET_KEY.
const EnvPrefix = "payment"

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      logger.Config  `yaml:"log"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Retry    RetryConfig    `yaml:"retry"`
	Guard    GuardConfig    `yaml:"guard"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

// LoadConfig reads the YAML file at CONFIG_PATH (default ./configs/payment.yaml)
// and applies environment overrides.
func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/payment.yaml"
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, config.NewEnv(EnvPrefix))
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML, overlays env and fills defaults.
func Parse(data []byte, env config.Env) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if env != nil {
		cfg.applyEnv(env)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv(env config.Env) {
	overrides := map[string]*string{
		"service.environment":   &c.Service.Environment,
		"database.host":         &c.Database.Host,
		"database.password":     &c.Database.Password,
		"stripe.secret_key":     &c.Stripe.SecretKey,
		"stripe.webhook_secret": &c.Stripe.WebhookSecret,
		"redis.addr":            &c.Redis.Addr,
		"redis.password":        &c.Redis.Password,
		"smtp.host":             &c.SMTP.Host,
		"smtp.username":         &c.SMTP.Username,
		"smtp.password":         &c.SMTP.Password,
	}
	for key, target := range overrides {
		if value, ok := env.Lookup(key); ok {
			*target = value
		}
	}
}

func (c *Config) applyDefaults() {
	c.Service.applyDefaults()
	c.Database.applyDefaults()
	c.Server.applyDefaults()
	c.Stripe.applyDefaults()
	c.Retry.applyDefaults()
	c.Guard.applyDefaults()
	c.Redis.applyDefaults()
	c.Kafka.applyDefaults()
	c.SMTP.applyDefaults()

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects configurations that cannot reach the gateway.
func (c *Config) Validate() error {
	if c.Service.Environment == EnvironmentDevelopment {
		return nil
	}
	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("stripe.secret_key is required in %s", c.Service.Environment)
	}
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe.webhook_secret is required in %s", c.Service.Environment)
	}
	if c.Database.Driver == DriverMemory && c.Service.Environment == EnvironmentProduction {
		return fmt.Errorf("database.driver %q is not allowed in production", DriverMemory)
	}
	return nil
}
