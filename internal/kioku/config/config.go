// Package config loads kioku's runtime configuration from the environment
// and an optional YAML tuning file. This is the only place that reads
// ambient process state; the memory library itself takes every value
// explicitly.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/kioku/common/environment"
	"github.com/bdobrica/kioku/internal/kioku/memory"
)

// CompletionSettings configure the optional LLM summarisation backend.
// An empty APIKey means the deterministic fallback summariser runs alone.
type CompletionSettings struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Config is the full runtime configuration for the kioku CLI.
type Config struct {
	// Interface is the frontend type, "cli" or "matrix".
	Interface memory.InterfaceType
	// RoomID scopes the conversation the CLI attaches to.
	RoomID string
	// DBPath selects the SQLite backend when non-empty; otherwise the
	// in-memory store is used.
	DBPath string
	// MetricsAddr enables the Prometheus listener when non-empty.
	MetricsAddr string
	// LLM configures the completion backend.
	LLM CompletionSettings
	// Options tunes the memory instance, anchor identity included.
	Options memory.Options
}

// Load assembles a Config from the environment and the optional YAML file
// named by KIOKU_CONFIG. Environment precedence: explicit KIOKU_* values
// override the file; the anchor falls back to MATRIX_USER_ID when no
// explicit anchor is set anywhere.
func Load() (*Config, error) {
	cfg := &Config{
		Interface:   memory.InterfaceType(environment.StringOr("KIOKU_INTERFACE", string(memory.InterfaceCLI))),
		RoomID:      environment.StringOr("KIOKU_ROOM_ID", "cli:local"),
		DBPath:      environment.StringOr("KIOKU_DB_PATH", ""),
		MetricsAddr: environment.StringOr("KIOKU_METRICS_ADDR", ""),
		LLM: CompletionSettings{
			APIKey:  environment.StringOr("KIOKU_LLM_API_KEY", ""),
			BaseURL: environment.StringOr("KIOKU_LLM_BASE_URL", ""),
			Model:   environment.StringOr("KIOKU_LLM_MODEL", ""),
			Timeout: environment.DurationOr("KIOKU_LLM_TIMEOUT", 30*time.Second),
		},
		Options: memory.DefaultOptions(),
	}

	if !cfg.Interface.Valid() {
		return nil, fmt.Errorf("config: unknown interface type %q", cfg.Interface)
	}

	if path := environment.StringOr("KIOKU_CONFIG", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read tuning file: %w", err)
		}
		opts, err := ParseOptions(data)
		if err != nil {
			return nil, err
		}
		cfg.Options = opts
	}

	// Per-field environment overrides on top of the tuning file.
	cfg.Options.MaxActiveTurns = environment.IntOr("KIOKU_MAX_ACTIVE_TURNS", cfg.Options.MaxActiveTurns)
	cfg.Options.MaxSummaries = environment.IntOr("KIOKU_MAX_SUMMARIES", cfg.Options.MaxSummaries)
	cfg.Options.MaxArchivedTurns = environment.IntOr("KIOKU_MAX_ARCHIVED_TURNS", cfg.Options.MaxArchivedTurns)
	cfg.Options.SummaryTurnCount = environment.IntOr("KIOKU_SUMMARY_TURN_COUNT", cfg.Options.SummaryTurnCount)

	if err := resolveAnchor(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Options.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ParseOptions decodes a YAML tuning document into memory.Options and
// validates it. Unknown keys are rejected so typos fail loudly.
func ParseOptions(data []byte) (memory.Options, error) {
	opts := memory.DefaultOptions()
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil {
		return memory.Options{}, fmt.Errorf("config: parse tuning file: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return memory.Options{}, fmt.Errorf("config: %w", err)
	}
	return opts, nil
}

// resolveAnchor fills the anchor identity. Precedence: tuning file /
// explicit KIOKU_ANCHOR_ID, then the MATRIX_USER_ID binding. Matrix
// deployments must carry a well-formed Matrix user id.
func resolveAnchor(cfg *Config) error {
	if v := environment.StringOr("KIOKU_ANCHOR_ID", ""); v != "" {
		cfg.Options.AnchorID = v
	}
	if cfg.Options.AnchorID == "" {
		if v, ok := environment.String("MATRIX_USER_ID"); ok && v != "" {
			cfg.Options.AnchorID = v
		}
	}
	if v := environment.StringOr("KIOKU_ANCHOR_NAME", ""); v != "" {
		cfg.Options.AnchorName = v
	}

	if cfg.Interface == memory.InterfaceMatrix {
		if cfg.Options.AnchorID != "" {
			if _, _, err := id.UserID(cfg.Options.AnchorID).ParseAndValidate(); err != nil {
				return fmt.Errorf("config: anchor id %q is not a valid Matrix user id: %w", cfg.Options.AnchorID, err)
			}
		}
		if cfg.RoomID != "" && !strings.HasPrefix(cfg.RoomID, "!") {
			return fmt.Errorf("config: room id %q is not a valid Matrix room id", cfg.RoomID)
		}
	}
	return nil
}
