package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig                 `json:"app"`
	Gateways   map[string]GatewayConfig  `json:"gateways"`
	Providers  map[string]ProviderConfig `json:"providers"`
	Store      StoreConfig               `json:"store"`
	Operations OperationsConfig          `json:"operations"`
	Policy     PolicyConfig              `json:"policy"`
}

type AppConfig struct {
	Name       string `json:"name"`
	PromptsDir string `json:"prompts_dir"`
	LLMLogPath string `json:"llm_log_path"`
}

type GatewayConfig struct {
	Token   string `json:"token"`
	Enabled bool   `json:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
	Enabled bool   `json:"enabled"`
}

type StoreConfig struct {
	Path string `json:"path"`
}

// OperationsConfig switches on the operations that reach the network.
// Arithmetic is always registered.
type OperationsConfig struct {
	Web              bool `json:"web"`
	Render           bool `json:"render"`
	SearchMaxResults int  `json:"search_max_results"`
}

type PolicyConfig struct {
	DenyOperations []string `json:"deny_operations"`
	DenyArguments  []string `json:"deny_arguments"`
	DenyWhen       []string `json:"deny_when"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:       "stepwise",
			PromptsDir: "./prompts",
			LLMLogPath: "logs/llm.jsonl",
		},
		Gateways:  map[string]GatewayConfig{},
		Providers: map[string]ProviderConfig{},
		Store:     StoreConfig{Path: "stepwise.db"},
		Operations: OperationsConfig{
			SearchMaxResults: 5,
		},
	}
}

// LoadConfig reads a .env file if there is one, then the JSON config at
// path over the defaults, then environment overrides. A missing config
// file is not an error.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// applyEnv lets the environment override secrets and paths.
func (c *Config) applyEnv(getenv func(string) string) {
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	if c.Gateways == nil {
		c.Gateways = map[string]GatewayConfig{}
	}

	if key := getenv("OPENAI_API_KEY"); key != "" {
		p := c.Providers["openai"]
		p.APIKey = key
		if p.Model == "" {
			p.Model = "gpt-4o-mini"
		}
		if !anyEnabled(c.Providers) {
			p.Enabled = true
		}
		c.Providers["openai"] = p
	}
	if key := getenv("OPENROUTER_API_KEY"); key != "" {
		if p, ok := c.Providers["openrouter"]; ok {
			p.APIKey = key
			c.Providers["openrouter"] = p
		}
	}
	if model := getenv("STEPWISE_MODEL"); model != "" {
		if name, p := c.GetDefaultProvider(); name != "" {
			p.Model = model
			c.Providers[name] = p
		}
	}

	for env, name := range map[string]string{
		"STEPWISE_TELEGRAM_TOKEN": "telegram",
		"STEPWISE_DISCORD_TOKEN":  "discord",
	} {
		if token := getenv(env); token != "" {
			g := c.Gateways[name]
			g.Token = token
			g.Enabled = true
			c.Gateways[name] = g
		}
	}

	if path := getenv("STEPWISE_DB"); path != "" {
		c.Store.Path = path
	}
	if dir := getenv("STEPWISE_PROMPTS"); dir != "" {
		c.App.PromptsDir = dir
	}
	if v := getenv("STEPWISE_WEB"); v != "" {
		c.Operations.Web = v == "1" || strings.EqualFold(v, "true")
	}
}

func anyEnabled(providers map[string]ProviderConfig) bool {
	for _, p := range providers {
		if p.Enabled {
			return true
		}
	}
	return false
}

// GetDefaultProvider returns the first enabled provider, by name.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := c.Providers[name]; p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetGatewayConfig returns the named gateway if it is enabled and has a
// token.
func (c *Config) GetGatewayConfig(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled && g.Token != "" {
		return g, true
	}
	return GatewayConfig{}, false
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	return c.GetGatewayConfig("telegram")
}

// GetDiscordConfig returns discord config if enabled
func (c *Config) GetDiscordConfig() (GatewayConfig, bool) {
	return c.GetGatewayConfig("discord")
}
