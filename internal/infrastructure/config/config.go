package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWTSecret        string `env:"JWT_SECRET"`
	JWTRefreshSecret string `env:"JWT_REFRESH_SECRET"`

	// ClientURL is the frontend origin used to build registration links.
	ClientURL string `env:"CLIENT_URL, default=http://localhost:3000"`

	// PublicRegistration permits token-less self-service signup.
	PublicRegistration bool   `env:"PUBLIC_REGISTRATION, default=false"`
	DefaultRole        string `env:"DEFAULT_ROLE,        default=house_owner"`

	// CacheBackend selects the permission cache: "memory" or "redis".
	CacheBackend string        `env:"CACHE_BACKEND, default=memory"`
	CacheTTL     time.Duration `env:"CACHE_TTL,     default=5m"`

	// AdminEmail/AdminPassword seed the bootstrap owner account when set.
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=property_system"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
