package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration for the application. Everything is driven by
// environment variables; an optional .env file may be loaded first.
type Config struct {
	DB struct {
		User     string
		Password string
		Server   string
		Port     int
		Name     string
		SSLMode  string
	}
	Providers struct {
		OpenAIKey  string
		MistralKey string
		GeminiKey  string
		SerpAPIKey string
	}
	Server struct {
		Port           int
		FrontendOrigin string
	}
}

// requiredVars must be present (and non-empty) for the process to start.
// Provider API keys are deliberately not in this list: a deployment may run
// with any subset of providers configured, and the /llm/status endpoint
// reports which ones are present.
var requiredVars = []string{
	"POSTGRES_USER",
	"POSTGRES_PASSWORD",
	"POSTGRES_SERVER",
	"POSTGRES_PORT",
	"POSTGRES_DB",
	"FRONTEND_ORIGIN",
}

// LoadConfig loads configuration from the environment, optionally reading a
// dotenv file first. Absence of any required variable is a startup error.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		// Best effort: a local .env is a convenience, not a requirement.
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("SERVER_PORT", 8000)

	var missing []string
	for _, name := range requiredVars {
		if strings.TrimSpace(v.GetString(name)) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	var cfg Config
	cfg.DB.User = v.GetString("POSTGRES_USER")
	cfg.DB.Password = v.GetString("POSTGRES_PASSWORD")
	cfg.DB.Server = v.GetString("POSTGRES_SERVER")
	cfg.DB.Port = v.GetInt("POSTGRES_PORT")
	cfg.DB.Name = v.GetString("POSTGRES_DB")
	cfg.DB.SSLMode = v.GetString("POSTGRES_SSLMODE")

	cfg.Providers.OpenAIKey = strings.TrimSpace(v.GetString("OPENAI_API_KEY"))
	cfg.Providers.MistralKey = strings.TrimSpace(v.GetString("MISTRAL_API_KEY"))
	cfg.Providers.GeminiKey = strings.TrimSpace(v.GetString("GEMINI_API_KEY"))
	cfg.Providers.SerpAPIKey = strings.TrimSpace(v.GetString("SERPAPI_API_KEY"))

	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.FrontendOrigin = strings.TrimRight(strings.TrimSpace(v.GetString("FRONTEND_ORIGIN")), "/")

	if cfg.DB.Port <= 0 {
		return nil, fmt.Errorf("POSTGRES_PORT must be a positive integer")
	}

	return &cfg, nil
}

// DatabaseURL renders the pgx connection string for the configured database.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Server, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}
