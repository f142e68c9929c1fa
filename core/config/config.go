package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Secret   SecretConfig   `mapstructure:"secret"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Calendar CalendarConfig `mapstructure:"calendar"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	PublicURL       string        `mapstructure:"public_url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SecretConfig struct {
	// Hex-encoded 32-byte key used to seal OAuth tokens at rest.
	TokenKey string `mapstructure:"token_key"`
}

type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// ProviderConfig holds the OAuth client and API endpoints of one calendar provider.
type ProviderConfig struct {
	ClientID      string   `mapstructure:"client_id"`
	ClientSecret  string   `mapstructure:"client_secret"`
	AuthEndpoint  string   `mapstructure:"auth_endpoint"`
	TokenEndpoint string   `mapstructure:"token_endpoint"`
	APIBaseURL    string   `mapstructure:"api_base_url"`
	RedirectURI   string   `mapstructure:"redirect_uri"`
	Scopes        []string `mapstructure:"scopes"`
}

// Configured reports whether the OAuth client credentials are present.
func (p ProviderConfig) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type CalendarConfig struct {
	Google             ProviderConfig `mapstructure:"google"`
	Microsoft          ProviderConfig `mapstructure:"microsoft"`
	Orange             ProviderConfig `mapstructure:"orange"`
	DefaultTimeZone    string         `mapstructure:"default_time_zone"`
	RefreshBuffer      time.Duration  `mapstructure:"refresh_buffer"`
	HTTPTimeout        time.Duration  `mapstructure:"http_timeout"`
	PreferredProviders []string       `mapstructure:"preferred_providers"`
}

// Providers returns the per-provider settings keyed by provider name.
func (c CalendarConfig) Providers() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"google":    c.Google,
		"microsoft": c.Microsoft,
		"orange":    c.Orange,
	}
}

var (
	instance    *Config
	mu          sync.RWMutex
	initialized bool
)

// Init loads the configuration once and keeps it for Get/GetSafe.
func Init(envFiles ...string) (*Config, error) {
	cfg, err := Load(envFiles...)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	instance = cfg
	initialized = true
	mu.Unlock()

	return cfg, nil
}

func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, initialized
}

// Load reads .env files (if present) and the process environment into a new Config.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// Missing .env is normal outside local development.
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Calendar.RefreshBuffer < 0 {
		return fmt.Errorf("calendar refresh buffer must not be negative")
	}
	if c.Calendar.HTTPTimeout <= 0 {
		return fmt.Errorf("calendar http timeout must be positive")
	}
	if _, err := time.LoadLocation(c.Calendar.DefaultTimeZone); err != nil {
		return fmt.Errorf("invalid calendar default time zone %q: %w", c.Calendar.DefaultTimeZone, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 7070)
	v.SetDefault("server.public_url", "http://localhost:7070")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "winetour")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("secret.token_key", "")

	v.SetDefault("queue.concurrency", 10)

	v.SetDefault("calendar.default_time_zone", "Europe/Paris")
	v.SetDefault("calendar.refresh_buffer", "5m")
	v.SetDefault("calendar.http_timeout", "30s")
	v.SetDefault("calendar.preferred_providers", []string{"google", "microsoft", "orange"})

	providerDefaults(v, "google",
		"https://accounts.google.com/o/oauth2/auth",
		"https://oauth2.googleapis.com/token",
		"https://www.googleapis.com/calendar/v3/",
		[]string{"https://www.googleapis.com/auth/calendar.events"},
	)
	providerDefaults(v, "microsoft",
		"https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		"https://login.microsoftonline.com/common/oauth2/v2.0/token",
		"https://graph.microsoft.com/v1.0",
		[]string{"offline_access", "Calendars.ReadWrite"},
	)
	providerDefaults(v, "orange",
		"https://api.orange.com/openidconnect/fr/v1/authorize",
		"https://api.orange.com/openidconnect/fr/v1/token",
		"https://api.orange.com/calendar/v1",
		[]string{"openid", "calendar"},
	)
}

func providerDefaults(v *viper.Viper, name, authURL, tokenURL, apiBase string, scopes []string) {
	prefix := "calendar." + name + "."
	v.SetDefault(prefix+"client_id", "")
	v.SetDefault(prefix+"client_secret", "")
	v.SetDefault(prefix+"auth_endpoint", authURL)
	v.SetDefault(prefix+"token_endpoint", tokenURL)
	v.SetDefault(prefix+"api_base_url", apiBase)
	v.SetDefault(prefix+"redirect_uri", "http://localhost:7070/api/v1/public/calendar/callback/"+name)
	v.SetDefault(prefix+"scopes", scopes)
}
