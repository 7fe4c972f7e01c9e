package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Ollama   OllamaConfig   `koanf:"ollama"`
	Admin    AdminConfig    `koanf:"admin"`
	Redis    RedisConfig    `koanf:"redis"`
	Policies []PolicyConfig `koanf:"policies"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type OllamaConfig struct {
	BaseURL string `koanf:"base_url"`
}

type AdminConfig struct {
	// Key guards GET /admin/metrics via the X-Admin-Key header.
	// Empty disables the endpoint.
	Key string `koanf:"key"`
}

type RedisConfig struct {
	// URL, when set, switches the rate limiter and usage meter to a
	// shared Redis store for multi-process deployments.
	URL string `koanf:"url"`
}

type PolicyConfig struct {
	KeyID          string                  `koanf:"key_id"`
	KeyHash        string                  `koanf:"key_hash"`
	Model          string                  `koanf:"model"`
	SystemPrompt   string                  `koanf:"system_prompt"`
	TemperatureCap *float64                `koanf:"temperature_cap"`
	RateBudget     BudgetConfig            `koanf:"rate_budget"`
	ModelBudgets   map[string]BudgetConfig `koanf:"model_budgets"`
}

type BudgetConfig struct {
	Limit         int64  `koanf:"limit"`
	WindowSeconds int    `koanf:"window_seconds"`
	Unit          string `koanf:"unit"` // requests (default) or tokens
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml (if present) and then GATEWAY_* environment
// variables, which override the file. GATEWAY_SERVER__PORT=9000 maps to
// server.port and so on.
func Load() (*Config, error) {
	return LoadFrom("config.yaml")
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, env vars alone can configure the gateway.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("GATEWAY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "GATEWAY_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("ollama.base_url") {
		k.Set("ollama.base_url", "http://localhost:11434")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in secrets
	cfg.Admin.Key = substituteEnvVars(cfg.Admin.Key)
	cfg.Redis.URL = substituteEnvVars(cfg.Redis.URL)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
