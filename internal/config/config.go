package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"production"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL"`
	HTTPServer `yaml:"http_server"`
	Database   `yaml:"database"`
	Redis      `yaml:"redis"`
	NATS       `yaml:"nats"`
	Links      `yaml:"links"`
	Quota      `yaml:"quota"`
	Clicks     `yaml:"clicks"`
	GeoIP      `yaml:"geoip"`
	Domains    `yaml:"domains"`
	Analytics  `yaml:"analytics"`
	Auth       `yaml:"auth"`
	RateLimit  `yaml:"rate_limit"`
	Metrics    `yaml:"metrics"`
}

// HTTPServer holds HTTP listener settings.
type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"30s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
	// TrustedProxies lists the addresses or CIDRs whose forwarding headers are believed.
	// Empty means the peer address is always the client.
	TrustedProxies []string `yaml:"trusted_proxies" env:"HTTP_TRUSTED_PROXIES"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string `yaml:"password" env:"DB_PASSWORD"`
	DBName          string `yaml:"dbname" env:"DB_NAME" env-default:"taglink"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"50"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// Redis holds settings for the redirect read-through cache.
type Redis struct {
	Enabled  bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Address  string        `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"60s"`
}

// NATS holds settings for the optional click event stream.
type NATS struct {
	Enabled bool   `yaml:"enabled" env:"NATS_ENABLED" env-default:"false"`
	URL     string `yaml:"url" env:"NATS_URL" env-default:"nats://localhost:4222"`
	Stream  string `yaml:"stream" env:"NATS_STREAM" env-default:"CLICKS"`
	Subject string `yaml:"subject" env:"NATS_SUBJECT" env-default:"clicks.recorded"`
	Durable string `yaml:"durable" env:"NATS_DURABLE" env-default:"click-writer"`
	// Consume runs the stream consumer in this process.
	Consume bool `yaml:"consume" env:"NATS_CONSUME" env-default:"true"`
}

// Links holds link and short code settings.
type Links struct {
	DefaultDomain    string `yaml:"default_domain" env:"LINKS_DEFAULT_DOMAIN" env-default:"localhost:8080"`
	Scheme           string `yaml:"scheme" env:"LINKS_SCHEME" env-default:"http"`
	CodeLength       int    `yaml:"code_length" env:"LINKS_CODE_LENGTH" env-default:"8"`
	MaxAllocAttempts int    `yaml:"max_alloc_attempts" env:"LINKS_MAX_ALLOC_ATTEMPTS" env-default:"5"`
}

// Quota holds plan limits. Paid tiers are unlimited.
type Quota struct {
	FreeLimit int64 `yaml:"free_limit" env:"QUOTA_FREE_LIMIT" env-default:"50"`
}

// Clicks holds click pipeline settings.
type Clicks struct {
	Workers         int           `yaml:"workers" env:"CLICKS_WORKERS" env-default:"4"`
	BufferSize      int           `yaml:"buffer_size" env:"CLICKS_BUFFER_SIZE" env-default:"1024"`
	RecordTimeout   time.Duration `yaml:"record_timeout" env:"CLICKS_RECORD_TIMEOUT" env-default:"2s"`
	GeoTimeout      time.Duration `yaml:"geo_timeout" env:"CLICKS_GEO_TIMEOUT" env-default:"500ms"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"CLICKS_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// GeoIP holds geo lookup provider settings.
type GeoIP struct {
	Provider          string        `yaml:"provider" env:"GEOIP_PROVIDER" env-default:"ipapi"`
	MaxMindAccountID  string        `yaml:"maxmind_account_id" env:"GEOIP_MAXMIND_ACCOUNT_ID"`
	MaxMindLicenseKey string        `yaml:"maxmind_license_key" env:"GEOIP_MAXMIND_LICENSE_KEY"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"GEOIP_REQUESTS_PER_MINUTE" env-default:"45"`
	BreakerFailures   uint32        `yaml:"breaker_failures" env:"GEOIP_BREAKER_FAILURES" env-default:"5"`
	BreakerTimeout    time.Duration `yaml:"breaker_timeout" env:"GEOIP_BREAKER_TIMEOUT" env-default:"30s"`
}

// Domains holds custom domain verification settings.
type Domains struct {
	CNAMETarget   string        `yaml:"cname_target" env:"DOMAINS_CNAME_TARGET" env-default:"redirect.taglink.local"`
	TXTPrefix     string        `yaml:"txt_prefix" env:"DOMAINS_TXT_PREFIX" env-default:"_taglink-verify"`
	VerifyTimeout time.Duration `yaml:"verify_timeout" env:"DOMAINS_VERIFY_TIMEOUT" env-default:"5s"`
	TokenSecret   string        `yaml:"token_secret" env:"DOMAINS_TOKEN_SECRET" env-required:"true"`
}

// Analytics holds aggregation query limits.
type Analytics struct {
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"ANALYTICS_DEFAULT_TIMEOUT" env-default:"5s"`
	MaxTimeout     time.Duration `yaml:"max_timeout" env:"ANALYTICS_MAX_TIMEOUT" env-default:"30s"`
}

// Auth holds bearer token verification settings.
type Auth struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	Issuer    string `yaml:"issuer" env:"AUTH_ISSUER" env-default:"taglink"`
}

// RateLimit holds API rate limiting settings.
type RateLimit struct {
	RequestsPerMinute int `yaml:"requests_per_minute" env:"RATE_LIMIT_RPM" env-default:"120"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load reads the config file at path, falling back to the environment alone when the file
// does not exist.
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	log.Println("Config file not found, using environment variables only")
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
