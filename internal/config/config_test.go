// ABOUTME: Tests for configuration loading
// ABOUTME: Covers env overrides, YAML overlay, validation and profile values
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "KISANDOST_MODEL", "KISANDOST_DATA_DIR",
		"KISANDOST_DEVICE_ID", "KISANDOST_LOCATION", "KISANDOST_SYNC_POLICY",
		"KISANDOST_MAX_ATTEMPTS", "KISANDOST_LANGUAGE", "KISANDOST_CROPS",
		"MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD",
	} {
		t.Setenv(k, "")
	}
	// Keep godotenv from picking up a developer's .env
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Profile.Language != "English" || cfg.Profile.PrimaryCrops != "Rice, Wheat" {
		t.Errorf("unexpected profile %+v", cfg.Profile)
	}
	if cfg.ProbeInterval != 15*time.Second || cfg.MaxAttempts != 3 || cfg.Volume != 0.8 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.MQTT.Broker != "" {
		t.Errorf("telemetry should be off by default")
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "fallback")
	t.Setenv("GEMINI_API_KEY", "primary")
	t.Setenv("KISANDOST_LANGUAGE", "Punjabi")
	t.Setenv("KISANDOST_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "primary" {
		t.Errorf("expected GEMINI_API_KEY to win, got %q", cfg.APIKey)
	}
	if cfg.Profile.Language != "Punjabi" {
		t.Errorf("expected Punjabi, got %s", cfg.Profile.Language)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("bad int should keep default, got %d", cfg.MaxAttempts)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("unexpected broker %s", cfg.MQTT.Broker)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("GOOGLE_API_KEY")
	os.Unsetenv("GEMINI_API_KEY")
	os.WriteFile(".env", []byte("GOOGLE_API_KEY=from-dotenv\n"), 0o644)
	t.Cleanup(func() { os.Unsetenv("GOOGLE_API_KEY") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "from-dotenv" {
		t.Errorf("expected key from .env, got %q", cfg.APIKey)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("KISANDOST_LANGUAGE", "Hindi")

	path := filepath.Join(t.TempDir(), "kisandost.yaml")
	os.WriteFile(path, []byte(`
data_dir: /var/lib/kisandost
probe_interval: 1m
sync_policy: drop
profile:
  name: Gurpreet
  primary_crops: Cotton, Mustard
mqtt:
  broker: tcp://mqtt.local:1883
`), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "/var/lib/kisandost" || cfg.DBPath() != "/var/lib/kisandost/kisandost.db" {
		t.Errorf("unexpected data dir %s", cfg.DataDir)
	}
	if cfg.ProbeInterval != time.Minute {
		t.Errorf("expected 1m probe interval, got %s", cfg.ProbeInterval)
	}
	if cfg.Profile.Name != "Gurpreet" || cfg.Profile.Language != "Hindi" {
		t.Errorf("unexpected profile %+v", cfg.Profile)
	}
	if got := cfg.Profile.Crops(); len(got) != 2 || got[1] != "Mustard" {
		t.Errorf("unexpected crops %v", got)
	}
	if cfg.SyncPolicy != "drop" || cfg.MQTT.Broker != "tcp://mqtt.local:1883" {
		t.Errorf("unexpected overlay %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"language", func(c *Config) { c.Profile = c.Profile.WithLanguage("Klingon") }, "unknown language"},
		{"theme", func(c *Config) { c.Profile = c.Profile.WithTheme("neon") }, "unknown theme"},
		{"interval", func(c *Config) { c.ProbeInterval = 0 }, "probe interval"},
		{"volume", func(c *Config) { c.Volume = 1.5 }, "volume"},
		{"policy", func(c *Config) { c.SyncPolicy = "keep" }, "sync policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestProfileIsValue(t *testing.T) {
	p := DefaultProfile()
	q := p.WithName("Asha").WithPrimaryCrops("Bajra")

	if p.Name != "Farmer" || p.PrimaryCrops != "Rice, Wheat" {
		t.Errorf("original profile changed: %+v", p)
	}
	if q.Name != "Asha" || q.PrimaryCrops != "Bajra" || q.Language != "English" {
		t.Errorf("unexpected derived profile %+v", q)
	}
}
