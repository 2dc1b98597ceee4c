// ABOUTME: Application configuration from .env, environment and YAML
// ABOUTME: Holds the farmer profile and service settings
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Languages the advisor and narration can respond in
var Languages = []string{"English", "Hindi", "Punjabi", "Haryanvi", "Marathi", "Telugu"}

// Themes for the terminal UI
var Themes = []string{"light", "dark"}

// Profile describes the farmer. Values are immutable; use the With methods.
type Profile struct {
	Name         string `yaml:"name"`
	Language     string `yaml:"language"`
	Theme        string `yaml:"theme"`
	PrimaryCrops string `yaml:"primary_crops"`
}

// DefaultProfile is used until the farmer sets their own
func DefaultProfile() Profile {
	return Profile{
		Name:         "Farmer",
		Language:     "English",
		Theme:        "light",
		PrimaryCrops: "Rice, Wheat",
	}
}

func (p Profile) WithName(name string) Profile {
	p.Name = name
	return p
}

func (p Profile) WithLanguage(language string) Profile {
	p.Language = language
	return p
}

func (p Profile) WithTheme(theme string) Profile {
	p.Theme = theme
	return p
}

func (p Profile) WithPrimaryCrops(crops string) Profile {
	p.PrimaryCrops = crops
	return p
}

// Crops splits PrimaryCrops into trimmed names
func (p Profile) Crops() []string {
	var crops []string
	for _, c := range strings.Split(p.PrimaryCrops, ",") {
		if c = strings.TrimSpace(c); c != "" {
			crops = append(crops, c)
		}
	}
	return crops
}

// MQTT holds telemetry broker settings
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config holds all settings
type Config struct {
	APIKey      string `yaml:"-"`
	Model       string `yaml:"model"`
	SpeechModel string `yaml:"speech_model"`
	Voice       string `yaml:"voice"`

	DataDir    string `yaml:"data_dir"`
	DeviceID   string `yaml:"device_id"`
	Location   string `yaml:"location"`
	GuidesFile string `yaml:"guides_file"`

	ProbeURL      string        `yaml:"probe_url"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	Offline       bool          `yaml:"offline"`

	SyncPolicy  string `yaml:"sync_policy"`
	MaxAttempts int    `yaml:"max_attempts"`

	Volume float64 `yaml:"volume"`

	MQTT    MQTT    `yaml:"mqtt"`
	Profile Profile `yaml:"profile"`
}

// Default returns built-in settings
func Default() Config {
	dataDir := ".kisandost"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".kisandost")
	}

	deviceID, err := os.Hostname()
	if err != nil {
		deviceID = "unknown"
	}

	return Config{
		Model:         "gemini-2.5-flash",
		SpeechModel:   "gemini-2.5-flash-preview-tts",
		Voice:         "Kore",
		DataDir:       dataDir,
		DeviceID:      deviceID,
		ProbeURL:      "https://www.google.com/generate_204",
		ProbeInterval: 15 * time.Second,
		SyncPolicy:    "retain",
		MaxAttempts:   3,
		Volume:        0.8,
		Profile:       DefaultProfile(),
	}
}

// Load builds the configuration: defaults, then .env and environment, then the YAML file at path.
// An empty path skips the file.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	cfg.applyEnv()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.APIKey = getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", c.APIKey))
	c.Model = getEnv("KISANDOST_MODEL", c.Model)
	c.DataDir = getEnv("KISANDOST_DATA_DIR", c.DataDir)
	c.DeviceID = getEnv("KISANDOST_DEVICE_ID", c.DeviceID)
	c.Location = getEnv("KISANDOST_LOCATION", c.Location)
	c.SyncPolicy = getEnv("KISANDOST_SYNC_POLICY", c.SyncPolicy)
	c.MaxAttempts = getEnvInt("KISANDOST_MAX_ATTEMPTS", c.MaxAttempts)
	c.Profile.Language = getEnv("KISANDOST_LANGUAGE", c.Profile.Language)
	c.Profile.PrimaryCrops = getEnv("KISANDOST_CROPS", c.Profile.PrimaryCrops)

	c.MQTT.Broker = getEnv("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.Username = getEnv("MQTT_USERNAME", c.MQTT.Username)
	c.MQTT.Password = getEnv("MQTT_PASSWORD", c.MQTT.Password)
}

// DBPath is the SQLite file inside the data directory
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "kisandost.db")
}

// Validate checks settings that would otherwise fail late
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(Languages, c.Profile.Language) {
		errs = append(errs, fmt.Errorf("unknown language %q (want one of %s)", c.Profile.Language, strings.Join(Languages, ", ")))
	}
	if c.Profile.Theme != "" && !slices.Contains(Themes, c.Profile.Theme) {
		errs = append(errs, fmt.Errorf("unknown theme %q", c.Profile.Theme))
	}
	if c.ProbeInterval <= 0 {
		errs = append(errs, fmt.Errorf("probe interval must be positive, got %s", c.ProbeInterval))
	}
	if c.Volume < 0 || c.Volume > 1 {
		errs = append(errs, fmt.Errorf("volume must be within [0, 1], got %g", c.Volume))
	}
	if c.SyncPolicy != "retain" && c.SyncPolicy != "drop" {
		errs = append(errs, fmt.Errorf("unknown sync policy %q", c.SyncPolicy))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir is required"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return n
}
