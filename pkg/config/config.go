// Package config holds the compiler's tunable settings: target triple,
// optimizer toggle, and the warning switches exposed as -W flags.
package config

import (
	"github.com/xyproto/env/v2"
)

// WarningType identifies a diagnostic that can be toggled individually.
type WarningType int

const (
	WarnUnreachableCode WarningType = iota
	WarnShadowedFunction
	WarnCount // sentinel
)

// Info describes one toggleable warning.
type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// Config carries everything the driver decides once and the backend reads.
type Config struct {
	ModuleName string
	// Target is the LLVM target triple stamped on the emitted module.
	// Empty leaves the module triple unset.
	Target   string
	Optimize bool
	Warnings map[WarningType]Info
}

// New builds a Config with defaults, honoring PYLC_TARGET and PYLC_OPT from
// the environment.
func New() *Config {
	return &Config{
		ModuleName: "main",
		Target:     env.Str("PYLC_TARGET", ""),
		Optimize:   env.Bool("PYLC_OPT"),
		Warnings: map[WarningType]Info{
			WarnUnreachableCode:  {Name: "unreachable-code", Enabled: true, Description: "Warn about statements that can never execute"},
			WarnShadowedFunction: {Name: "shadow-func", Enabled: true, Description: "Warn when a variable assignment shadows a declared function"},
		},
	}
}

// IsWarningEnabled reports whether the given warning is on.
func (c *Config) IsWarningEnabled(wt WarningType) bool {
	w, ok := c.Warnings[wt]
	return ok && w.Enabled
}

// SetWarning toggles a warning by its -W name. It reports whether the name
// matched a known warning.
func (c *Config) SetWarning(name string, enabled bool) bool {
	for wt, w := range c.Warnings {
		if w.Name == name {
			w.Enabled = enabled
			c.Warnings[wt] = w
			return true
		}
	}
	return false
}
