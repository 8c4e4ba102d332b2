package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justinabrahms/atchess3d/internal/session"
	"github.com/spf13/viper"
)

const EnvPrefix = "ATCHESS3D"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Game        GameConfig        `mapstructure:"game"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Development DevelopmentConfig `mapstructure:"development"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// GameConfig holds the defaults applied to newly created games.
type GameConfig struct {
	SelfCheckFiltering bool `mapstructure:"self_check_filtering"`
	DaysPerMove        int  `mapstructure:"days_per_move"`
}

// AuthConfig configures seat tokens. An empty secret disables them.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type DevelopmentConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads config.yaml from the working directory or ./config. A missing
// file is not an error; defaults and ATCHESS3D_* variables still apply.
func Load() (*Config, error) {
	return LoadFrom(".", "./config")
}

func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Enable environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("game.self_check_filtering", false)
	v.SetDefault("game.days_per_move", 0)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", "720h")
	v.SetDefault("development.debug", false)
	v.SetDefault("development.log_level", "info")
}

func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Game.DaysPerMove < 0 || c.Game.DaysPerMove > session.MaxDaysPerMove {
		return fmt.Errorf("invalid game.days_per_move %d", c.Game.DaysPerMove)
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("invalid auth.token_ttl %s", c.Auth.TokenTTL)
	}
	return nil
}
