// Package util provides the shared diagnostic helpers: colored warnings
// gated by the warning switches in pkg/config, and fatal errors for the
// driver.
package util

import (
	"fmt"
	"os"

	"pylc/pkg/config"
)

const (
	colorReset  = "\x1b[0m"
	colorBold   = "\x1b[1m"
	colorRed    = "\x1b[31m"
	colorPurple = "\x1b[35m"
)

// Warn prints a toggleable warning to stderr when cfg enables it.
func Warn(cfg *config.Config, wt config.WarningType, format string, args ...interface{}) {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return
	}
	name := cfg.Warnings[wt].Name
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s%swarning:%s %s [-W%s]\n", colorBold, colorPurple, colorReset, msg, name)
}

// Error prints a fatal diagnostic to stderr and exits. Library code returns
// errors instead; only the driver calls this.
func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s%serror:%s %s\n", colorBold, colorRed, colorReset, msg)
	os.Exit(1)
}
