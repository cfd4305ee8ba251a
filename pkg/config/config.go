// Package config is the internal wiring configuration consumed by this
// core's constructors (Gateway, Cache, Registry, Engine, Orchestrator).
// It reads os.Getenv with defaults, exactly as the teacher's
// pkg/config/config.go does — no flag parsing, no file-based config
// beyond the optional YAML source overlay. The external CLI entrypoint
// and config loader named in spec.md's out-of-scope list are not this
// package.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the knobs every component in this core is constructed
// from.
type Config struct {
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RecallsPrimaryURL   string
	RecallsRSSURLs      []string
	ShortagesPrimaryURL string
	ShortagesFallbackURLs []string
	WarningLettersURLs  []string

	SyncDelay       time.Duration
	HTTPTimeout     time.Duration
	SyncTimeout     time.Duration
	WorkflowTimeout time.Duration
}

// Load reads configuration from environment variables, falling back to
// the defaults below for local development.
func Load() *Config {
	return &Config{
		LogLevel: getenv("LOG_LEVEL", "INFO"),

		DatabaseURL: getenv("DATABASE_URL", "postgres://pharmaforge@localhost:5432/pharmaforge?sslmode=disable"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		RecallsPrimaryURL:     getenv("WATCHTOWER_RECALLS_URL", "https://api.fda.gov/drug/enforcement.json"),
		RecallsRSSURLs:        getenvList("WATCHTOWER_RECALLS_RSS_URLS", []string{"https://www.fda.gov/about-fda/contact-fda/stay-informed/rss-feeds/recalls/rss.xml"}),
		ShortagesPrimaryURL:   getenv("WATCHTOWER_SHORTAGES_URL", "https://www.accessdata.fda.gov/scripts/drugshortages/api/shortages.json"),
		ShortagesFallbackURLs: getenvList("WATCHTOWER_SHORTAGES_FALLBACK_URLS", []string{"https://www.accessdata.fda.gov/scripts/drugshortages/default.cfm"}),
		WarningLettersURLs:    getenvList("WATCHTOWER_WARNING_LETTERS_URLS", []string{"https://www.fda.gov/inspections-compliance-enforcement-and-criminal-investigations/compliance-actions-and-activities/warning-letters"}),

		SyncDelay:       getenvDuration("WATCHTOWER_SYNC_DELAY_SECONDS", 500*time.Millisecond),
		HTTPTimeout:     getenvDuration("WATCHTOWER_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		SyncTimeout:     getenvDuration("WATCHTOWER_SYNC_TIMEOUT_SECONDS", 60*time.Second),
		WorkflowTimeout: getenvDuration("GOLDEN_WORKFLOW_TIMEOUT_SECONDS", 120*time.Second),
	}
}

// SourceOverlay is the shape of an optional YAML file overriding the
// enabled-source URL lists without a recompile, grounded on the
// teacher's pkg/config profile-loader use of yaml.v3 (the
// jurisdiction-profile loader itself was dropped; the dependency is
// retained for this narrower overlay).
type SourceOverlay struct {
	Recalls struct {
		Primary string   `yaml:"primary"`
		RSS     []string `yaml:"rss"`
	} `yaml:"recalls"`
	Shortages struct {
		Primary   string   `yaml:"primary"`
		Fallbacks []string `yaml:"fallbacks"`
	} `yaml:"shortages"`
	WarningLetters struct {
		URLs []string `yaml:"urls"`
	} `yaml:"warning_letters"`
}

// ApplyOverlay reads a YAML file at path (if present) and overlays any
// source URLs it sets onto cfg. Missing files are not an error — the
// overlay is optional.
func (c *Config) ApplyOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var overlay SourceOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}

	if overlay.Recalls.Primary != "" {
		c.RecallsPrimaryURL = overlay.Recalls.Primary
	}
	if len(overlay.Recalls.RSS) > 0 {
		c.RecallsRSSURLs = overlay.Recalls.RSS
	}
	if overlay.Shortages.Primary != "" {
		c.ShortagesPrimaryURL = overlay.Shortages.Primary
	}
	if len(overlay.Shortages.Fallbacks) > 0 {
		c.ShortagesFallbackURLs = overlay.Shortages.Fallbacks
	}
	if len(overlay.WarningLetters.URLs) > 0 {
		c.WarningLettersURLs = overlay.WarningLetters.URLs
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return def
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
