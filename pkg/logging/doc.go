// Package logging provides structured logging configuration for connmock.
//
// This package wraps log/slog to keep logging consistent across the
// library. Components accept a *slog.Logger via a setter and default to
// logging.Nop(), so tests stay silent unless a logger is wired in.
//
// Create a logger with the desired configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelDebug,
//	    Format: logging.FormatText,
//	})
//
// and hand it to the connector builder:
//
//	b := connmock.NewBuilder()
//	b.SetLogger(logger)
package logging
