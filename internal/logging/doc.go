// Package logging provides slog loggers with per-module levels.
//
// Initialize once at startup, then take a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"bufctrl": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("bufctrl")
//	logger.Debug("control applied", "control", id, "value", v)
//
// Loggers taken before Initialize are kept and pick up the configured level
// when it runs. SetLevel changes a module's level at runtime.
//
// Records go to stdout when it is attached, to the systemd journal when
// journald is reachable, and always to an in-memory History served by the
// API. Journal entries carry SYSLOG_IDENTIFIER=mfcctl and one upper-case
// field per attribute:
//
//	journalctl -t mfcctl MODULE=bufctrl
//	journalctl -t mfcctl CONTROL=frame_tag -f
//
// Configuration file form:
//
//	[logging]
//	level = "info"
//	format = "json"
//
//	[logging.modules]
//	bufctrl = "debug"
//	api = "warn"
package logging
