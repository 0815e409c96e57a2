// Package sysutil holds process-level helpers used by the server entrypoint.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// SetLogLevel applies a configured level name to the global zerolog level.
// Names are matched case-insensitively and "warning" is accepted as an alias
// for "warn". Empty or unknown names fall back to info.
func SetLogLevel(name string) {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
