package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"direct2url/internal/storage"
)

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string
	MaxBodyBytes   int64
	RateLimit      RateLimitConfig
	Timeouts       TimeoutConfig
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// RedisURL, when set, shares counters across instances.
	RedisURL string
	// TrustProxy keys buckets on X-Forwarded-For, which only a proxy that
	// overwrites the header makes safe.
	TrustProxy bool
}

type TimeoutConfig struct {
	Read     time.Duration
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		Port:           v.GetString("PORT"),
		Environment:    v.GetString("ENVIRONMENT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		AllowedOrigins: splitList(v.GetStringSlice("CORS_ALLOWED_ORIGINS")),
		MaxBodyBytes:   v.GetInt64("MAX_BODY_BYTES"),
		RateLimit: RateLimitConfig{
			Requests:   v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:     v.GetDuration("RATE_LIMIT_WINDOW"),
			RedisURL:   v.GetString("REDIS_URL"),
			TrustProxy: v.GetBool("TRUST_PROXY_HEADERS"),
		},
		Timeouts: TimeoutConfig{
			Read:     v.GetDuration("READ_TIMEOUT"),
			Write:    v.GetDuration("WRITE_TIMEOUT"),
			Idle:     v.GetDuration("IDLE_TIMEOUT"),
			Shutdown: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", 15*time.Minute)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("TRUST_PROXY_HEADERS", false)
	v.SetDefault("READ_TIMEOUT", 30*time.Second)
	v.SetDefault("WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("IDLE_TIMEOUT", 120*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
}

// IsProduction reports whether the server runs with ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// splitList flattens comma separated entries, as env values arrive as one string.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

// ProviderFile is the YAML document the uploader CLI reads credentials from.
type ProviderFile struct {
	Provider string              `yaml:"provider"`
	S3       storage.S3Config    `yaml:"s3"`
	GCP      gcpSection          `yaml:"gcp"`
	Azure    storage.AzureConfig `yaml:"azure"`
}

type gcpSection struct {
	storage.GCPConfig `yaml:",inline"`
	// KeyFilePath points at a service-account JSON file read at load time.
	KeyFilePath string `yaml:"key_file_path"`
}

// LoadProviderFile reads a credential file into a Store with its provider selected.
func LoadProviderFile(path string) (*storage.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider config: %w", err)
	}

	var file ProviderFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse provider config: %w", err)
	}

	gcp := file.GCP.GCPConfig
	if gcp.KeyFile == "" && file.GCP.KeyFilePath != "" {
		key, err := os.ReadFile(file.GCP.KeyFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read gcp key file: %w", err)
		}
		gcp.KeyFile = string(key)
	}

	provider := storage.ProviderS3
	if file.Provider != "" {
		if provider, err = storage.ParseProvider(file.Provider); err != nil {
			return nil, err
		}
	}

	store := storage.NewStore(provider)
	store.SetS3(file.S3)
	store.SetGCP(gcp)
	store.SetAzure(file.Azure)
	return store, nil
}
