package server

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by [ConfigFromEnv].
const (
	EnvAddr           = "TRANSITMAP_ADDR"
	EnvCacheURL       = "TRANSITMAP_CACHE_URL"
	EnvLayerURL       = "TRANSITMAP_LAYER_URL"
	EnvRedisURL       = "TRANSITMAP_REDIS_URL"
	EnvMongoURI       = "TRANSITMAP_MONGO_URI"
	EnvAllowedOrigins = "TRANSITMAP_ALLOWED_ORIGINS"
	EnvRequestTimeout = "TRANSITMAP_REQUEST_TIMEOUT"
)

// Defaults.
const (
	DefaultAddr           = ":8080"
	DefaultRequestTimeout = 2 * time.Minute
	DefaultMaxBodyBytes   = 32 << 20
	DefaultMemoryCache    = 256
)

// Config holds server settings.
type Config struct {
	Addr string

	// CacheURL selects the result cache (see cache.Open). Empty falls back to
	// RedisURL, then to an in-memory cache.
	CacheURL string

	// LayerURL selects the layer store (see layer.Open). Empty falls back to
	// MongoURI, then RedisURL, then an in-memory store.
	LayerURL string

	RedisURL string
	MongoURI string

	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// ConfigFromEnv loads .env files when present and reads the TRANSITMAP_*
// variables. Values already set in the environment win over .env entries.
func ConfigFromEnv(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	cfg := Config{
		Addr:     os.Getenv(EnvAddr),
		CacheURL: os.Getenv(EnvCacheURL),
		LayerURL: os.Getenv(EnvLayerURL),
		RedisURL: os.Getenv(EnvRedisURL),
		MongoURI: os.Getenv(EnvMongoURI),
	}
	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	if v := os.Getenv(EnvRequestTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

func (c Config) cacheURL() string {
	switch {
	case c.CacheURL != "":
		return c.CacheURL
	case c.RedisURL != "":
		return c.RedisURL
	}
	return ""
}

func (c Config) layerURL() string {
	switch {
	case c.LayerURL != "":
		return c.LayerURL
	case c.MongoURI != "":
		return c.MongoURI
	case c.RedisURL != "":
		return c.RedisURL
	}
	return "mem://"
}
