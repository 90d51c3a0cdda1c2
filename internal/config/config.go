package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	IsDev        bool
	Addr         string
	Port         string
	SignKey      []byte
	DBPath       string
	MediaDir     string
	PostsPerPage int
	LogLevel     string
	Location     *time.Location
}

// ListenAddr is the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.Addr, c.Port)
}

func defaults(v *viper.Viper) {
	v.SetDefault("GO_ENV", "production")
	v.SetDefault("SERVER_ADDR", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DB_PATH", "./db.sqlite")
	v.SetDefault("MEDIA_DIR", "./media")
	v.SetDefault("POSTS_PER_PAGE", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TIME_ZONE", "UTC")
}

// Load reads the optional .env file and the process environment.
func Load() (*Config, error) {
	// a missing .env is fine, the environment may carry everything
	_ = godotenv.Load()

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		IsDev:        v.GetString("GO_ENV") == "development",
		Addr:         v.GetString("SERVER_ADDR"),
		Port:         v.GetString("SERVER_PORT"),
		SignKey:      []byte(v.GetString("SIGN_KEY")),
		DBPath:       v.GetString("DB_PATH"),
		MediaDir:     v.GetString("MEDIA_DIR"),
		PostsPerPage: v.GetInt("POSTS_PER_PAGE"),
		LogLevel:     v.GetString("LOG_LEVEL"),
	}

	if len(cfg.SignKey) == 0 {
		if !cfg.IsDev {
			return nil, errors.New("SIGN_KEY must be set outside development")
		}
		cfg.SignKey = []byte("development-only-sign-key")
	}
	if cfg.PostsPerPage < 1 {
		return nil, errors.Errorf("POSTS_PER_PAGE must be positive, got %d", cfg.PostsPerPage)
	}

	loc, err := time.LoadLocation(v.GetString("TIME_ZONE"))
	if err != nil {
		return nil, errors.Wrap(err, "TIME_ZONE")
	}
	cfg.Location = loc
	return cfg, nil
}
