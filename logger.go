package tsmux

import "github.com/asticode/go-astikit"

// logger is the package-level sink for non-fatal anomalies (unhandled
// descriptor tags, unhandled table IDs). It never sits on a path that must
// stay allocation-free when no logger has been installed.
var logger = astikit.AdaptStdLogger(nil)

// SetLogger overrides the package-level logger. Pass nil to discard logs.
func SetLogger(l astikit.StdLogger) {
	logger = astikit.AdaptStdLogger(l)
}
