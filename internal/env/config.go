package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Host              string        `env:"HEOS_HOST"`
	Port              int           `env:"HEOS_PORT,default=1255"`
	HeartbeatInterval time.Duration `env:"HEOS_HEARTBEAT,default=80s"`
	RetryInterval     time.Duration `env:"HEOS_RETRY_INTERVAL,default=5s"`
	InitialDelay      time.Duration `env:"HEOS_INITIAL_DELAY,default=10s"`
	DialTimeout       time.Duration `env:"HEOS_DIAL_TIMEOUT,default=5s"`

	Username string `env:"HEOS_USERNAME"`
	Password string `env:"HEOS_PASSWORD"`

	HTTPAddr  string `env:"HEOS_HTTP_ADDR,default=0.0.0.0:7362"`
	DebugHTTP bool   `env:"HEOS_DEBUG_HTTP"`

	// The relay is off unless RedisAddr is set
	RedisAddr     string `env:"HEOS_REDIS_ADDR"`
	RedisPassword string `env:"HEOS_REDIS_PASSWORD"`
	RedisDB       int    `env:"HEOS_REDIS_DB,default=0"`
	RedisPrefix   string `env:"HEOS_REDIS_PREFIX,default=heos"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return ProcessConfig(ctx, envconfig.OsLookuper())
}

// ProcessConfig reads the configuration from l.
func ProcessConfig(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := envconfig.ProcessWith(ctx, &config, l); err != nil {
		return nil, err
	}

	return &config, nil
}
