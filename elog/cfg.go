package elog

import "fmt"

// LogCfg configures a Logger.
type LogCfg struct {
	// Tag is printed on every line when FmtTag is selected.
	Tag string `mapstructure:"tag"`

	// FilterLevel names the least severe level that is printed. Empty means
	// verbose.
	FilterLevel string `mapstructure:"filterLevel"`

	// Formats maps a level name ("info", "debug", ...) to a format list such
	// as "lvl|tag|time|pinfo". Levels not listed print every field.
	Formats map[string]string `mapstructure:"formats"`

	// LineMax caps a composed line in bytes, newline included.
	LineMax int `mapstructure:"lineMax"`

	// CallerSkip skips extra stack frames when resolving the caller, for
	// wrappers around the logger.
	CallerSkip int `mapstructure:"callerSkip"`
}

// Validate applies defaults and checks ranges.
func (cfg *LogCfg) Validate() error {
	if cfg.FilterLevel == "" {
		cfg.FilterLevel = VerboseLevel.String()
	}
	if _, ok := levelByName(cfg.FilterLevel); !ok {
		return fmt.Errorf("invalid filter level: %q", cfg.FilterLevel)
	}
	if cfg.LineMax == 0 {
		cfg.LineMax = 1024
	}
	if cfg.LineMax < 16 {
		return fmt.Errorf("line max must be at least 16 bytes, got %d", cfg.LineMax)
	}
	if cfg.CallerSkip < 0 {
		return fmt.Errorf("caller skip must be non-negative, got %d", cfg.CallerSkip)
	}
	if cfg.Tag == "" {
		cfg.Tag = "elog"
	}
	for name := range cfg.Formats {
		if _, ok := levelByName(name); !ok {
			return fmt.Errorf("unknown level %q in formats", name)
		}
	}
	return nil
}

func getDefaultCfg() *LogCfg {
	return &LogCfg{
		Tag:         "elog",
		FilterLevel: "verbose",
		LineMax:     1024,
	}
}
