package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileGivesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"STEPWISE_DB", "STEPWISE_PROMPTS", "STEPWISE_WEB"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig("does-not-exist.json")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Store.Path != "stepwise.db" || cfg.App.PromptsDir != "./prompts" {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
	if cfg.Operations.Web {
		t.Error("Web operations should be off by default")
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STEPWISE_DB", "")
	t.Setenv("STEPWISE_MODEL", "")

	doc := `{
		"providers": {
			"openrouter": {"api_key": "k", "model": "m", "base_url": "https://openrouter.ai/api/v1", "enabled": true},
			"openai": {"model": "gpt-4o", "enabled": false}
		},
		"gateways": {"telegram": {"token": "t", "enabled": true}, "discord": {"enabled": true}},
		"store": {"path": "runs.db"},
		"operations": {"web": true},
		"policy": {"deny_operations": ["Render"], "deny_when": ["operation == 'Divide' && args[1] == 0"]}
	}`
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	name, p := cfg.GetDefaultProvider()
	if name != "openrouter" || p.BaseURL == "" {
		t.Errorf("Expected openrouter as default provider, got %s %+v", name, p)
	}
	if _, ok := cfg.GetTelegramConfig(); !ok {
		t.Error("Expected telegram to be enabled")
	}
	if _, ok := cfg.GetDiscordConfig(); ok {
		t.Error("Discord has no token and should not count as enabled")
	}
	if cfg.Store.Path != "runs.db" || !cfg.Operations.Web {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.Operations.SearchMaxResults != 5 {
		t.Errorf("Defaults should survive a partial file, got %d", cfg.Operations.SearchMaxResults)
	}
	if len(cfg.Policy.DenyOperations) != 1 || len(cfg.Policy.DenyWhen) != 1 {
		t.Errorf("Unexpected policy %+v", cfg.Policy)
	}
}

func TestLoadConfig_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected a decode error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":          "sk-test",
		"STEPWISE_MODEL":          "gpt-4.1",
		"STEPWISE_TELEGRAM_TOKEN": "tg",
		"STEPWISE_DB":             "/tmp/x.db",
		"STEPWISE_WEB":            "true",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })

	name, p := cfg.GetDefaultProvider()
	if name != "openai" || p.APIKey != "sk-test" || p.Model != "gpt-4.1" {
		t.Errorf("Unexpected provider %s %+v", name, p)
	}
	if g, ok := cfg.GetTelegramConfig(); !ok || g.Token != "tg" {
		t.Errorf("Expected telegram from env, got %+v", g)
	}
	if cfg.Store.Path != "/tmp/x.db" || !cfg.Operations.Web {
		t.Errorf("Unexpected overrides %+v", cfg)
	}
}

func TestApplyEnv_KeepsConfiguredProvider(t *testing.T) {
	cfg := Default()
	cfg.Providers["openrouter"] = ProviderConfig{Model: "m", Enabled: true}
	cfg.applyEnv(func(k string) string {
		if k == "OPENAI_API_KEY" {
			return "sk-test"
		}
		return ""
	})

	if name, _ := cfg.GetDefaultProvider(); name != "openrouter" {
		t.Errorf("An API key in the environment should not displace the configured provider, got %s", name)
	}
}
