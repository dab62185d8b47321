// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the deployment-level configuration, parsed from the
// environment. Timer durations are configurable per deployment but keep the
// defaults the gameplay was tuned against.
type Config struct {
	Port     string `env:"MAHJONG_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// GracePeriod is how long a dropped connection may reattach before its
	// seat is marked disconnected and the table pauses.
	GracePeriod time.Duration `env:"GRACE_PERIOD" envDefault:"5s"`

	// ClaimWindow bounds how long other seats may claim a fresh discard.
	ClaimWindow time.Duration `env:"CLAIM_WINDOW" envDefault:"3s"`

	// TableRetention is how long an abandoned table stays joinable by
	// invite code before it is torn down.
	TableRetention time.Duration `env:"TABLE_RETENTION" envDefault:"2m"`

	// BlindPassAll extends Charleston blind-pass eligibility to every pass
	// phase instead of the two traditional ones.
	BlindPassAll bool `env:"BLIND_PASS_ALL" envDefault:"false"`

	// RedisAddr and PostgresDSN enable the optional audit sinks when set.
	RedisAddr   string `env:"REDIS_ADDR"`
	PostgresDSN string `env:"DATABASE_URL"`

	// SessionPrivateKeyPath and SessionPublicKeyPath load a persistent
	// ed25519 session-signing key pair, letting tokens survive a rolling
	// restart. Unset, a fresh pair is generated at startup.
	SessionPrivateKeyPath string `env:"SESSION_PRIVATE_KEY_PATH"`
	SessionPublicKeyPath  string `env:"SESSION_PUBLIC_KEY_PATH"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
