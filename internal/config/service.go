package config

import (
	"time"

	"github.com/nishant-k1/flushjohn-api-sub000/pkg/retry"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

type ServiceConfig struct {
	Name            string `yaml:"name"`
	Environment     string `yaml:"environment"`
	DefaultCurrency string `yaml:"default_currency"`
	// ClientURL is the default redirect after a payment link is paid
	ClientURL    string `yaml:"client_url"`
	BusinessName string `yaml:"business_name"`
}

func (c *ServiceConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "payment"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = "usd"
	}
	if c.BusinessName == "" {
		c.BusinessName = "FlushJohn"
	}
}

type StripeConfig struct {
	SecretKey     string        `yaml:"secret_key"`
	WebhookSecret string        `yaml:"webhook_secret"`
	Timeout       time.Duration `yaml:"timeout"`
	// APIURL overrides the Stripe API base URL, used against stripe-mock
	APIURL string `yaml:"api_url"`
}

func (c *StripeConfig) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 20 * time.Second
	}
}

// PolicyConfig is the YAML form of a retry.Policy
type PolicyConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// Policy builds an exponential retry policy.
func (c PolicyConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		Backoff:     retry.Exponential(c.InitialBackoff, c.MaxBackoff),
	}
}

type RetryConfig struct {
	Gateway PolicyConfig `yaml:"gateway"`
	Receipt PolicyConfig `yaml:"receipt"`
}

func (c *RetryConfig) applyDefaults() {
	for _, p := range []*PolicyConfig{&c.Gateway, &c.Receipt} {
		if p.MaxAttempts == 0 {
			p.MaxAttempts = 3
		}
		if p.InitialBackoff == 0 {
			p.InitialBackoff = 200 * time.Millisecond
		}
		if p.MaxBackoff == 0 {
			p.MaxBackoff = 2 * time.Second
		}
	}
}

type GuardConfig struct {
	// Window is how long a recent pending or succeeded payment blocks a new charge
	Window time.Duration `yaml:"window"`
}

func (c *GuardConfig) applyDefaults() {
	if c.Window == 0 {
		c.Window = 10 * time.Second
	}
}

type RedisConfig struct {
	// Addr empty disables Redis; broadcasts are dropped and receipt locks stay in-process
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	ChannelPrefix  string        `yaml:"channel_prefix"`
	ReceiptLockTTL time.Duration `yaml:"receipt_lock_ttl"`
}

func (c *RedisConfig) applyDefaults() {
	if c.ChannelPrefix == "" {
		c.ChannelPrefix = "payments"
	}
	if c.ReceiptLockTTL == 0 {
		c.ReceiptLockTTL = 30 * time.Second
	}
}

type KafkaConfig struct {
	// Brokers empty disables the event stream
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func (c *KafkaConfig) applyDefaults() {
	if c.Topic == "" {
		c.Topic = "payment-events"
	}
}

type SMTPConfig struct {
	// Host empty disables receipt email; receipts are logged instead
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// SendTimeout bounds one receipt send attempt
	SendTimeout time.Duration `yaml:"send_timeout"`
}

func (c *SMTPConfig) applyDefaults() {
	if c.SendTimeout == 0 {
		c.SendTimeout = 30 * time.Second
	}
}
