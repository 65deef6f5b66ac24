package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Password        string        `env:"PADDOCK_PASSWORD"`
	CommandPassword string        `env:"PADDOCK_COMMAND_PASSWORD"`
	DisplayName     string        `env:"PADDOCK_DISPLAY_NAME,default=paddock"`
	UpdateInterval  time.Duration `env:"PADDOCK_UPDATE_INTERVAL,default=250ms"`
	ReadTimeout     time.Duration `env:"PADDOCK_READ_TIMEOUT,default=1s"`
	LogLevel        string        `env:"PADDOCK_LOG_LEVEL,default=info"`
	DebugHTTP       bool          `env:"PADDOCK_DEBUG_HTTP"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
