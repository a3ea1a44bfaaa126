// Package cliconfig loads blinter's on-disk INI configuration and turns it
// into a lint.Options, the only channel through which the CLI layer is
// allowed to configure the core (spec.md §4.8).
package cliconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ini/ini"

	"blinter/internal/lint"
)

// FileName is the default config file name blinter looks for in the
// current directory when --config is not given.
const FileName = ".blinter.ini"

// Config mirrors the on-disk shape of FileName before it is translated
// into lint.Options. Kept separate from lint.Options so the INI layout can
// evolve without touching the core's API.
type Config struct {
	MaxLineLength int
	MinSeverity   string
	Enable        []string
	Disable       []string
	FollowCalls   bool
}

// Default returns the configuration blinter uses when no config file is
// present and --no-config was not passed.
func Default() Config {
	return Config{MaxLineLength: 100}
}

// Load reads an INI file at path and parses it into a Config. A missing
// file is not an error here — callers that want "file must exist" check
// os.Stat themselves; Load exists to centralize the go-ini/ini call.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("cliconfig: parsing %s: %w", path, err)
	}

	sec := f.Section("lint")
	if sec.HasKey("max_line_length") {
		cfg.MaxLineLength = sec.Key("max_line_length").MustInt(cfg.MaxLineLength)
	}
	if sec.HasKey("min_severity") {
		cfg.MinSeverity = strings.ToUpper(sec.Key("min_severity").String())
	}
	if sec.HasKey("enable") {
		cfg.Enable = splitList(sec.Key("enable").String())
	}
	if sec.HasKey("disable") {
		cfg.Disable = splitList(sec.Key("disable").String())
	}
	if sec.HasKey("follow_calls") {
		cfg.FollowCalls = sec.Key("follow_calls").MustBool(false)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ToOptions translates a Config into the lint.Options the core consumes.
// An unrecognized min_severity value is rejected with an error.
func ToOptions(cfg Config) (lint.Options, error) {
	opts := lint.DefaultOptions()
	opts.MaxLineLength = cfg.MaxLineLength
	opts.FollowCalls = cfg.FollowCalls

	if len(cfg.Enable) > 0 {
		opts.EnabledRules = toSet(cfg.Enable)
	}
	if len(cfg.Disable) > 0 {
		opts.DisabledRules = toSet(cfg.Disable)
	}

	if cfg.MinSeverity != "" {
		sev, ok := severityByName(cfg.MinSeverity)
		if !ok {
			return opts, fmt.Errorf("cliconfig: unknown min_severity %q", cfg.MinSeverity)
		}
		opts.MinSeverity = &sev
	}

	return opts, nil
}

func toSet(codes []string) map[string]bool {
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}

func severityByName(name string) (lint.RuleSeverity, bool) {
	switch name {
	case "ERROR":
		return lint.SeverityError, true
	case "WARNING":
		return lint.SeverityWarning, true
	case "STYLE":
		return lint.SeverityStyle, true
	case "SECURITY":
		return lint.SeveritySecurity, true
	case "PERFORMANCE":
		return lint.SeverityPerformance, true
	default:
		return 0, false
	}
}

// Create writes a fresh default config file to path, for --create-config.
// It refuses to overwrite an existing file.
func Create(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("cliconfig: %s already exists", path)
	}

	f := ini.Empty()
	sec, err := f.NewSection("lint")
	if err != nil {
		return err
	}
	sec.NewKey("max_line_length", "100")
	sec.NewKey("min_severity", "")
	sec.NewKey("enable", "")
	sec.NewKey("disable", "")
	sec.NewKey("follow_calls", "false")

	return f.SaveTo(path)
}
