package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string `mapstructure:"log-level"`

	DBDriver   string `mapstructure:"db-driver"`
	DBHost     string `mapstructure:"db-host"`
	DBPort     int    `mapstructure:"db-port"`
	DBName     string `mapstructure:"db-name"`
	DBUser     string `mapstructure:"db-user"`
	DBPassword string `mapstructure:"db-password"`
	DBParams   string `mapstructure:"db-params"`
	DBPath     string `mapstructure:"db-path"`

	StoreBackend    string `mapstructure:"store-backend"`
	StorePGHost     string `mapstructure:"store-pg-host"`
	StorePGPort     int    `mapstructure:"store-pg-port"`
	StorePGDatabase string `mapstructure:"store-pg-database"`
	StorePGUser     string `mapstructure:"store-pg-user"`
	StorePGPassword string `mapstructure:"store-pg-password"`
	StorePGSSLMode  string `mapstructure:"store-pg-sslmode"`
	StorePath       string `mapstructure:"store-path"`

	LLMProvider            string  `mapstructure:"llm-provider"`
	LLMBaseURL             string  `mapstructure:"llm-base-url"`
	OpenAIAPIKey           string  `mapstructure:"openai-api-key"`
	LLMChatModel           string  `mapstructure:"llm-chat-model"`
	LLMEmbeddingModel      string  `mapstructure:"llm-embedding-model"`
	LLMEmbeddingDimensions int64   `mapstructure:"llm-embedding-dimensions"`
	LLMTemperature         float64 `mapstructure:"llm-temperature"`

	TopK            int    `mapstructure:"top-k"`
	MaxPromptTokens int    `mapstructure:"max-prompt-tokens"`
	DialectHint     string `mapstructure:"dialect-hint"`
	AllowWrites     bool   `mapstructure:"allow-writes"`
	AutoTrain       bool   `mapstructure:"auto-train"`
	MaxRows         int    `mapstructure:"max-rows"`

	HTTPAddr string `mapstructure:"http-addr"`
}

// Flags registers every setting on fs. Environment variables use the flag name upper-cased with
// dashes replaced by underscores, e.g. DB_PASSWORD.
func Flags(fs *pflag.FlagSet) {
	fs.String("log-level", "warn", "Log level (debug, info, warn, error)")

	fs.String("db-driver", "mysql", "Target database driver (mysql, postgres, sqlite)")
	fs.String("db-host", "localhost", "Target database host")
	fs.Int("db-port", 3306, "Target database port")
	fs.String("db-name", "", "Target database name")
	fs.String("db-user", "", "Target database username")
	fs.String("db-password", "", "Target database password")
	fs.String("db-params", "", "Extra driver parameters (mysql: parseTime=true, postgres: sslmode=disable)")
	fs.String("db-path", "", "Target database file (sqlite)")

	fs.String("store-backend", "pgvector", "Knowledge store backend (pgvector, sqlite)")
	fs.String("store-pg-host", "localhost", "Knowledge store PostgreSQL host")
	fs.Int("store-pg-port", 5432, "Knowledge store PostgreSQL port")
	fs.String("store-pg-database", "tabsql", "Knowledge store PostgreSQL database name")
	fs.String("store-pg-user", "", "Knowledge store PostgreSQL username")
	fs.String("store-pg-password", "", "Knowledge store PostgreSQL password")
	fs.String("store-pg-sslmode", "disable", "Knowledge store PostgreSQL SSL mode")
	fs.String("store-path", "tabsql.db", "Knowledge store file (sqlite backend)")

	fs.String("llm-provider", "openai", "Model provider (openai, ollama)")
	fs.String("llm-base-url", "", "Base URL for the model API, e.g. http://localhost:11434/v1/ for a local server")
	fs.String("openai-api-key", "", "OpenAI API key")
	fs.String("llm-chat-model", "gpt-4o", "Chat model used to generate SQL")
	fs.String("llm-embedding-model", "text-embedding-ada-002", "Embedding model")
	fs.Int64("llm-embedding-dimensions", 1536, "Embedding dimensions")
	fs.Float64("llm-temperature", 0, "Sampling temperature for SQL generation")

	fs.Int("top-k", 10, "Training items retrieved per kind")
	fs.Int("max-prompt-tokens", 14000, "Approximate token budget for retrieved context")
	fs.String("dialect-hint", "", "SQL dialect named in the prompt (defaults to the driver)")
	fs.Bool("allow-writes", false, "Allow generated statements that modify data")
	fs.Bool("auto-train", false, "Store successful question/SQL pairs as training data")
	fs.Int("max-rows", 1000, "Maximum rows returned from a query")

	fs.String("http-addr", ":8084", "Listen address for serve")
}

// Load reads .env (if present), binds fs and the environment, and returns the merged config.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("unable to bind pflags: %w", err)
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks every setting needed to answer questions against the target database.
func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "mysql", "postgres":
		if c.DBName == "" {
			errs = append(errs, errors.New("db-name is required"))
		}
	case "sqlite":
		if c.DBPath == "" {
			errs = append(errs, errors.New("db-path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported db-driver %q", c.DBDriver))
	}
	if err := c.ValidateKnowledge(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateKnowledge checks only the knowledge store and model settings, which is all training needs.
func (c *Config) ValidateKnowledge() error {
	var errs []error
	switch c.StoreBackend {
	case "pgvector", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported store-backend %q", c.StoreBackend))
	}
	switch c.LLMProvider {
	case "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unsupported llm-provider %q", c.LLMProvider))
	}
	if c.TopK <= 0 {
		errs = append(errs, errors.New("top-k must be positive"))
	}
	return errors.Join(errs...)
}

// Dialect is the SQL dialect named in prompts.
func (c *Config) Dialect() string {
	if c.DialectHint != "" {
		return c.DialectHint
	}
	switch c.DBDriver {
	case "mysql":
		return "MySQL"
	case "postgres":
		return "PostgreSQL"
	case "sqlite":
		return "SQLite"
	}
	return "SQL"
}
