// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the whole service configuration. It is read from defaults, then an
// optional YAML file named by CONFIG_FILE, then the environment.
type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		// URL overrides the fields above when set.
		URL string `yaml:"url"`
	} `yaml:"postgres"`

	Redis struct {
		Addr          string        `yaml:"addr"`
		Password      string        `yaml:"password"`
		DB            int           `yaml:"db"`
		Queue         string        `yaml:"queue"`
		TrackCacheTTL time.Duration `yaml:"track_cache_ttl"`
	} `yaml:"redis"`

	Spotify struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		TokenURL     string `yaml:"token_url"`
		APIURL       string `yaml:"api_url"`
		Market       string `yaml:"market"`
	} `yaml:"spotify"`

	Auth struct {
		TokenExpireTime string `yaml:"token_expire_time"`
	} `yaml:"auth"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Historian struct {
		BatchSize     int           `yaml:"batch_size"`
		FlushInterval time.Duration `yaml:"flush_interval"`
	} `yaml:"historian"`

	Game struct {
		RoomExpiry   time.Duration `yaml:"room_expiry"`
		Intermission time.Duration `yaml:"intermission"`
		Modes        []string      `yaml:"modes"`
	} `yaml:"game"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	c := &Config{}
	c.Server.Port = "8080"
	c.Postgres.Host = "localhost"
	c.Postgres.Port = "5432"
	c.Postgres.User = "postgres"
	c.Postgres.Database = "songquiz"
	c.Redis.Addr = "localhost:6379"
	c.Redis.Queue = "songquiz_actions"
	c.Redis.TrackCacheTTL = 24 * time.Hour
	c.Spotify.Market = "US"
	c.Log.Level = "debug"
	c.Log.Format = "text"
	c.Historian.BatchSize = 20
	c.Historian.FlushInterval = 500 * time.Millisecond
	c.Game.RoomExpiry = 5 * time.Minute
	c.Game.Intermission = 10 * time.Second
	c.Game.Modes = []string{"Classic", "OneRoom"}
	return c
}

// Load builds the configuration for this process.
func Load() (*Config, error) {
	c := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.loadEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Postgres.User = getEnv("POSTGRES_USER", c.Postgres.User)
	c.Postgres.Password = getEnv("POSTGRES_PASSWORD", c.Postgres.Password)
	c.Postgres.Host = getEnv("PG_HOST", c.Postgres.Host)
	c.Postgres.Port = getEnv("PG_PORT", c.Postgres.Port)
	c.Postgres.Database = getEnv("PG_DATABASE", c.Postgres.Database)
	c.Postgres.URL = getEnv("DATABASE_URL", c.Postgres.URL)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.Queue = getEnv("HISTORIAN_QUEUE_NAME", c.Redis.Queue)

	c.Spotify.ClientID = getEnv("SPOTIFY_CLIENT_ID", c.Spotify.ClientID)
	c.Spotify.ClientSecret = getEnv("SPOTIFY_CLIENT_SECRET", c.Spotify.ClientSecret)
	c.Spotify.TokenURL = getEnv("SPOTIFY_TOKEN_URL", c.Spotify.TokenURL)
	c.Spotify.APIURL = getEnv("SPOTIFY_API_URL", c.Spotify.APIURL)
	c.Spotify.Market = getEnv("SPOTIFY_MARKET", c.Spotify.Market)

	c.Auth.TokenExpireTime = getEnv("TOKEN_EXPIRE_TIME", c.Auth.TokenExpireTime)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Game.Modes = getEnvList("AVAILABLE_GAMEMODES", c.Game.Modes)

	var err error
	if c.Redis.DB, err = getEnvInt("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.Redis.TrackCacheTTL, err = getEnvDuration("TRACK_CACHE_TTL", c.Redis.TrackCacheTTL); err != nil {
		return err
	}
	if c.Historian.BatchSize, err = getEnvInt("HISTORIAN_BATCH_SIZE", c.Historian.BatchSize); err != nil {
		return err
	}
	flushMs, err := getEnvInt("HISTORIAN_FLUSH_MS", int(c.Historian.FlushInterval/time.Millisecond))
	if err != nil {
		return err
	}
	c.Historian.FlushInterval = time.Duration(flushMs) * time.Millisecond
	if c.Game.RoomExpiry, err = getEnvDuration("ROOM_EXPIRY", c.Game.RoomExpiry); err != nil {
		return err
	}
	if c.Game.Intermission, err = getEnvDuration("INTERMISSION", c.Game.Intermission); err != nil {
		return err
	}
	return nil
}

// PostgresURL is the pgx connection URL.
func (c *Config) PostgresURL() string {
	if c.Postgres.URL != "" {
		return c.Postgres.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.Postgres.Host + ":" + c.Postgres.Port,
		Path:   "/" + c.Postgres.Database,
	}
	if c.Postgres.Password != "" {
		u.User = url.UserPassword(c.Postgres.User, c.Postgres.Password)
	} else if c.Postgres.User != "" {
		u.User = url.User(c.Postgres.User)
	}
	return u.String()
}

// SpotifyEnabled reports whether catalog credentials are configured.
func (c *Config) SpotifyEnabled() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// NewLogger builds the process logger from the log section.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	logger.SetLevel(level)
	switch c.Log.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return logger, nil
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

func getEnvInt(key string, defVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string, defVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
