// Package config exposes environment overrides backed by viper.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Env reads configuration keys from prefixed environment variables.
// Key "stripe.secret_key" with prefix "payment" maps to PAYMENT_STRIPE_SECRET_KEY.
type Env interface {
	Lookup(key string) (string, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
}

type viperEnv struct {
	v *viper.Viper
}

// NewEnv creates an environment reader for prefix.
func NewEnv(prefix string) Env {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(prefix))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &viperEnv{v: v}
}

func (e *viperEnv) Lookup(key string) (string, bool) {
	if !e.v.IsSet(key) {
		return "", false
	}
	return e.v.GetString(key), true
}

func (e *viperEnv) GetString(key string) string {
	return e.v.GetString(key)
}

func (e *viperEnv) GetInt(key string) int {
	return e.v.GetInt(key)
}

func (e *viperEnv) GetBool(key string) bool {
	return e.v.GetBool(key)
}
