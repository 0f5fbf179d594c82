package memory

import "fmt"

// Defaults for Options. Exported so the config layer and tests agree on
// one set of numbers.
const (
	DefaultMaxActiveTurns   = 10
	DefaultMaxSummaries     = 3
	DefaultMaxArchivedTurns = 50
	DefaultSummaryTurnCount = 5
	DefaultMaxTokens        = 4000
)

// Options tunes one Memory instance. The zero value of any numeric field
// means "use the default". Anchor identity is an explicit configuration
// value; the memory layer never consults the process environment. See
// the config package for the environment binding.
type Options struct {
	// MaxActiveTurns is the active-tier size above which tier maintenance
	// compacts the oldest turns into a summary.
	MaxActiveTurns int `yaml:"max_active_turns"`

	// MaxSummaries caps the summary tier. The oldest summaries beyond the
	// cap are pruned FIFO during maintenance.
	MaxSummaries int `yaml:"max_summaries"`

	// MaxArchivedTurns caps the archive tier, pruned FIFO like summaries.
	MaxArchivedTurns int `yaml:"max_archived_turns"`

	// SummaryTurnCount is the target batch size per compaction.
	SummaryTurnCount int `yaml:"summary_turn_count"`

	// MaxTokens is an advisory prompt budget. Formatting logs a warning
	// when the estimate exceeds it; nothing is truncated.
	MaxTokens int `yaml:"max_tokens"`

	// DefaultUserID and DefaultUserName attribute turns that omit an
	// explicit identity.
	DefaultUserID   string `yaml:"default_user_id"`
	DefaultUserName string `yaml:"default_user_name"`

	// AnchorID and AnchorName identify the privileged user whose turns are
	// specially labelled in formatted history.
	AnchorID   string `yaml:"anchor_id"`
	AnchorName string `yaml:"anchor_name"`
}

// DefaultOptions returns Options with every numeric field set to its
// documented default.
func DefaultOptions() Options {
	return Options{
		MaxActiveTurns:   DefaultMaxActiveTurns,
		MaxSummaries:     DefaultMaxSummaries,
		MaxArchivedTurns: DefaultMaxArchivedTurns,
		SummaryTurnCount: DefaultSummaryTurnCount,
		MaxTokens:        DefaultMaxTokens,
	}
}

// normalized fills zero numeric fields with defaults.
func (o Options) normalized() Options {
	if o.MaxActiveTurns == 0 {
		o.MaxActiveTurns = DefaultMaxActiveTurns
	}
	if o.MaxSummaries == 0 {
		o.MaxSummaries = DefaultMaxSummaries
	}
	if o.MaxArchivedTurns == 0 {
		o.MaxArchivedTurns = DefaultMaxArchivedTurns
	}
	if o.SummaryTurnCount == 0 {
		o.SummaryTurnCount = DefaultSummaryTurnCount
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

// Validate rejects negative tuning values. Call on the raw Options; zero
// fields are legal and mean "default".
func (o Options) Validate() error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"max_active_turns", o.MaxActiveTurns},
		{"max_summaries", o.MaxSummaries},
		{"max_archived_turns", o.MaxArchivedTurns},
		{"summary_turn_count", o.SummaryTurnCount},
		{"max_tokens", o.MaxTokens},
	} {
		if f.value < 0 {
			return fmt.Errorf("memory: option %s must not be negative, got %d", f.name, f.value)
		}
	}
	if o.MaxActiveTurns > 0 && o.MaxActiveTurns < 2 {
		return fmt.Errorf("memory: option max_active_turns must be at least 2, got %d", o.MaxActiveTurns)
	}
	return nil
}
