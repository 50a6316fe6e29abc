// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Upstream      UpstreamConfig      `mapstructure:"upstream"`
	Campuses      CampusConfig        `mapstructure:"campuses"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Export        ExportConfig        `mapstructure:"export"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port               int      `mapstructure:"port"`
	StaticDir          string   `mapstructure:"static_dir"`
	CORSOrigins        []string `mapstructure:"cors_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
	ShutdownTimeout    int      `mapstructure:"shutdown_timeout"` // milliseconds
}

// UpstreamConfig describes the dining menu website.
type UpstreamConfig struct {
	MenuURL          string `mapstructure:"menu_url"`
	UserAgent        string `mapstructure:"user_agent"`
	RequestTimeout   int    `mapstructure:"request_timeout"` // milliseconds
	MaxRetries       int    `mapstructure:"max_retries"`
	RetryDelay       int    `mapstructure:"retry_delay"` // milliseconds
	MealDelay        int    `mapstructure:"meal_delay"`  // milliseconds
	NutritionWorkers int    `mapstructure:"nutrition_workers"`
	ExtractNutrition bool   `mapstructure:"extract_nutrition"`
}

type CampusConfig struct {
	DefaultKey   string `mapstructure:"default_key"`
	RegistryPath string `mapstructure:"registry_path"`
}

type LLMConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
	Required   bool   `mapstructure:"required"`
}

// Enabled reports whether an API key is configured.
func (l LLMConfig) Enabled() bool {
	return l.APIKey != ""
}

type CacheConfig struct {
	Backend       string `mapstructure:"backend"` // none | redis | sqlite | postgres
	TTL           int    `mapstructure:"ttl"`     // seconds
	SQLitePath    string `mapstructure:"sqlite_path"`
	CacheFallback bool   `mapstructure:"cache_fallback"` // also store results built from the sample menu
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ExportConfig controls where CSV exports and indexed results go.
type ExportConfig struct {
	CSVDir        string `mapstructure:"csv_dir"`
	Elasticsearch bool   `mapstructure:"elasticsearch"`
}

type AdminConfig struct {
	ClearCacheSecret string `mapstructure:"clear_cache_secret"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName string `mapstructure:"service_name"`
}
