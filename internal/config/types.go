package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Pipeline controls the event-processing service.
	Pipeline PipelineConfig `json:"pipeline"`

	// Islands controls admission, filtering, and per-source display config.
	Islands IslandsConfig `json:"islands"`

	// Keywords are the locale-sensitive keyword lists used by translators
	// and the junk filter. Omitted lists fall back to English defaults.
	Keywords *KeywordsConfig `json:"keywords,omitempty"`

	Widgets WidgetsConfig `json:"widgets"`

	Storage *StorageConfig `json:"storage,omitempty"`
	Janitor JanitorConfig  `json:"janitor"`
	Pprof   PprofConfig    `json:"pprof,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// PipelineConfig controls the orchestrator.
//
// All durations are Go duration strings (e.g. "200ms", "10s").
//
// Defaults (when fields are omitted/zero):
//   - workers: 2
//   - queue_size: 256
//   - quiet_interval: "200ms"
//   - rate_limit: enabled
type PipelineConfig struct {
	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty"`

	// QuietInterval is the minimum spacing between accepted re-posts of an
	// unchanged key. Text changes always bypass it.
	QuietInterval string `json:"quiet_interval,omitempty"`

	// RateLimit is a pointer so "omitted" defaults to enabled.
	RateLimit *bool `json:"rate_limit,omitempty"`
}

// IslandsConfig is the admission/filter surface.
type IslandsConfig struct {
	// LimitMode: FIRST_COME | MOST_RECENT | PRIORITY.
	// Corrupt values fall back to MOST_RECENT.
	LimitMode string `json:"limit_mode,omitempty"`

	AllowedSources []string `json:"allowed_sources"`
	PriorityOrder  []string `json:"priority_order,omitempty"`
	BlockedTerms   []string `json:"blocked_terms,omitempty"`

	// IgnoredSources are skipped before any other check (platform noise).
	IgnoredSources []string `json:"ignored_sources,omitempty"`

	Global  DisplayConfigRaw           `json:"global"`
	Sources map[string]SourceConfigRaw `json:"sources,omitempty"`
}

// DisplayConfigRaw holds nullable display fields: nil means "not set here,
// fall through to the next layer".
type DisplayConfigRaw struct {
	Float *bool `json:"float,omitempty"`
	Shade *bool `json:"shade,omitempty"`
	// Timeout is a Go duration string. "0s" disables auto-dismiss.
	Timeout *string `json:"timeout,omitempty"`

	// Navigation layout sides: INSTRUCTION | DISTANCE | ETA | DISTANCE_ETA | NONE.
	NavLeft  *string `json:"nav_left,omitempty"`
	NavRight *string `json:"nav_right,omitempty"`
}

// SourceConfigRaw is the per-source override block.
type SourceConfigRaw struct {
	DisplayConfigRaw

	BlockedTerms []string `json:"blocked_terms,omitempty"`

	// Types restricts which notification types may form islands for this
	// source. Omitted means all types.
	Types []string `json:"types,omitempty"`
}

// KeywordsConfig overrides the built-in keyword lists. Lists are matched as
// case-insensitive substrings.
type KeywordsConfig struct {
	Answer  []string `json:"answer,omitempty"`
	HangUp  []string `json:"hang_up,omitempty"`
	Speaker []string `json:"speaker,omitempty"`
	Arrival []string `json:"arrival,omitempty"`
	Finish  []string `json:"finish,omitempty"`
	Junk    []string `json:"junk,omitempty"`
}

type WidgetsConfig struct {
	// Saved lists widget ids whose update events trigger a re-post.
	Saved []int `json:"saved,omitempty"`

	Configs map[string]WidgetConfigRaw `json:"configs,omitempty"`
}

type WidgetConfigRaw struct {
	// Size: ORIGINAL | SMALL | MEDIUM | LARGE | XLARGE (default MEDIUM).
	Size string `json:"size,omitempty"`
	// RenderMode: INTERACTIVE | SNAPSHOT (default INTERACTIVE).
	RenderMode string `json:"render_mode,omitempty"`
	Shade      *bool  `json:"shade,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
}

// StorageConfig controls the optional persistence layer (post audit trail
// plus persisted dedup hashes).
//
// Example:
//
//	"storage": { "driver": "file", "path": "./islandbridge_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// JanitorConfig controls the periodic sweeps (expired islands, audit
// pruning, dedup compaction).
type JanitorConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a cron spec or "@every <duration>". Default "@every 30s".
	Schedule string `json:"schedule,omitempty"`
	// AuditRetention is how long audit entries are kept. Default "168h".
	AuditRetention string `json:"audit_retention,omitempty"`
}

// PprofConfig controls the optional pprof HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type PprofConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`   // default: "127.0.0.1:6060"
	Prefix        string `json:"prefix,omitempty"` // default: "/debug/pprof/"
	Token         string `json:"token,omitempty"`  // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	// Server timeouts (Go duration strings). WriteTimeout defaults to 0 (disabled)
	// so /profile (which can take 30s+) works reliably.
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// Validate checks the fields that must parse (durations, schedules). Enum
// fields are deliberately lenient: corrupt values fall back to defaults at
// resolve time instead of failing the reload.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := ParseDurationField("pipeline.quiet_interval", c.Pipeline.QuietInterval); err != nil {
		return err
	}
	if c.Islands.Global.Timeout != nil {
		if _, err := ParseDurationField("islands.global.timeout", *c.Islands.Global.Timeout); err != nil {
			return err
		}
	}
	for id, src := range c.Islands.Sources {
		if src.Timeout != nil {
			if _, err := ParseDurationField("islands.sources."+id+".timeout", *src.Timeout); err != nil {
				return err
			}
		}
	}
	for id, w := range c.Widgets.Configs {
		if _, err := ParseDurationField("widgets.configs."+id+".timeout", w.Timeout); err != nil {
			return err
		}
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
		}
	}
	if _, err := ParseDurationField("janitor.audit_retention", c.Janitor.AuditRetention); err != nil {
		return err
	}
	return nil
}
