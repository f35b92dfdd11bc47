package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for promptloop
type Config struct {
	LLM      LLMConfig      `json:"llm"`
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
}

// LLMConfig holds the generation API configuration (Gemini REST)
type LLMConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`

	// One model per pipeline role
	ResponderModel string `json:"responder_model"`
	GraderModel    string `json:"grader_model"`
	EditorModel    string `json:"editor_model"`

	MaxTokens int `json:"max_tokens"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	PostgresURL string `json:"postgres_url"`
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins"`

	// AccessKey gates every /api/v1 route. Empty disables the gate (dev only).
	AccessKey string `json:"access_key"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
			APIKey:         "",
			ResponderModel: "gemini-2.5-flash",
			GraderModel:    "gemini-2.5-flash",
			EditorModel:    "gemini-2.5-flash",
			MaxTokens:      10000,
		},
		Database: DatabaseConfig{
			PostgresURL: "",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
			AccessKey:   "",
		},
	}
}

// getConfigPath returns the config file location, honoring PROMPTLOOP_CONFIG
func getConfigPath() string {
	if p := os.Getenv("PROMPTLOOP_CONFIG"); p != "" {
		return p
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".promptloop", "config.json")
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load loads configuration from the config file and environment variables.
// Environment variables win over file values.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	envString("PROMPTLOOP_LLM_BASE_URL", &cfg.LLM.BaseURL)
	envString("GOOGLE_API_KEY", &cfg.LLM.APIKey)
	envString("PROMPTLOOP_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("RESPONDER_MODEL", &cfg.LLM.ResponderModel)
	envString("GRADER_MODEL", &cfg.LLM.GraderModel)
	envString("EDITOR_MODEL", &cfg.LLM.EditorModel)
	envInt("PROMPTLOOP_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)

	envString("PROMPTLOOP_POSTGRES_URL", &cfg.Database.PostgresURL)
	envString("DATABASE_URL", &cfg.Database.PostgresURL)

	envString("PROMPTLOOP_SERVER_HOST", &cfg.Server.Host)
	envInt("PROMPTLOOP_SERVER_PORT", &cfg.Server.Port)
	envStringSlice("PROMPTLOOP_CORS_ORIGINS", &cfg.Server.CORSOrigins)
	envString("PROMPTLOOP_ACCESS_KEY", &cfg.Server.AccessKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "LLM max_tokens must be positive")
	}
	if c.LLM.BaseURL == "" {
		errs = append(errs, "LLM base URL is required")
	} else if !isValidURL(c.LLM.BaseURL) {
		errs = append(errs, "LLM base URL must be a valid URL")
	}
	if c.LLM.ResponderModel == "" || c.LLM.GraderModel == "" || c.LLM.EditorModel == "" {
		errs = append(errs, "responder, grader and editor models are required")
	}

	if c.Database.PostgresURL != "" && !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
