package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	DataDir     string
	DBPath      string
	AppName     string

	LLMProvider   string // openai | anthropic
	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeoutSec int

	AgentMaxLoopSteps        int
	AgentMaxInputChars       int
	AgentMaxToolCallsPerStep int
	BulkConcurrency          int

	AuthzFile              string
	Location               string
	PlaceholderEmailDomain string
	SeedAdminEmail         string
	SeedAdminName          string
}

// Load reads an optional dotenv file and then the environment. Variables
// already set in the environment win over the file. A missing file is not
// an error.
func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	dataDir := stringOrDefault("BIZOPS_DATA_DIR", "data")
	provider := strings.ToLower(stringOrDefault("BIZOPS_LLM_PROVIDER", "openai"))

	return Config{
		Environment: stringOrDefault("BIZOPS_ENV", "development"),
		DataDir:     dataDir,
		DBPath:      stringOrDefault("BIZOPS_DB_PATH", filepath.Join(dataDir, "bizops.sqlite")),
		AppName:     stringOrDefault("BIZOPS_APP_NAME", "BizOps"),

		LLMProvider:   provider,
		LLMBaseURL:    stringOrDefault("BIZOPS_LLM_BASE_URL", defaultBaseURL(provider)),
		LLMAPIKey:     strings.TrimSpace(os.Getenv("BIZOPS_LLM_API_KEY")),
		LLMModel:      stringOrDefault("BIZOPS_LLM_MODEL", defaultModel(provider)),
		LLMTimeoutSec: intOrDefault("BIZOPS_LLM_TIMEOUT_SECONDS", 60),

		AgentMaxLoopSteps:        intOrDefault("BIZOPS_AGENT_MAX_STEPS", 5),
		AgentMaxInputChars:       intOrDefault("BIZOPS_AGENT_MAX_INPUT_CHARS", 12000),
		AgentMaxToolCallsPerStep: intOrDefault("BIZOPS_AGENT_MAX_TOOL_CALLS_PER_STEP", 25),
		BulkConcurrency:          intOrDefault("BIZOPS_BULK_CONCURRENCY", 5),

		AuthzFile:              strings.TrimSpace(os.Getenv("BIZOPS_AUTHZ_FILE")),
		Location:               stringOrDefault("BIZOPS_LOCATION", "America/Lima"),
		PlaceholderEmailDomain: stringOrDefault("BIZOPS_PLACEHOLDER_EMAIL_DOMAIN", "pendiente.invalid"),
		SeedAdminEmail:         stringOrDefault("BIZOPS_SEED_ADMIN_EMAIL", "admin@bizops.local"),
		SeedAdminName:          stringOrDefault("BIZOPS_SEED_ADMIN_NAME", "Administrador"),
	}
}

// LLMTimeout is the per-request backend timeout.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

// TimeLocation resolves Location, falling back to UTC for unknown zones.
func (c Config) TimeLocation() *time.Location {
	location, err := time.LoadLocation(strings.TrimSpace(c.Location))
	if err != nil {
		return time.UTC
	}
	return location
}

func defaultBaseURL(provider string) string {
	if provider == "anthropic" {
		return "https://api.anthropic.com/v1"
	}
	return "https://api.openai.com/v1"
}

func defaultModel(provider string) string {
	if provider == "anthropic" {
		return "claude-3-5-sonnet-latest"
	}
	return "gpt-4o"
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
