// Package log provides the structured logging facade used across cartsync.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Output is produced by a
// pluggable Formatter (text or JSON) and written to one or more Outputs.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("dispatch"), log.Str("run_id", runID))
//	l.Info("batch sent", log.Int("profiles", 500))
//
// # Interop
//
// To capture output from libraries writing to the standard library logger,
// use RedirectStdLog. Most code should stay against this facade and receive
// a Logger by injection; there is no package-level default logger.
package log
