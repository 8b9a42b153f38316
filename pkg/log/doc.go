// Package log provides the logging abstraction used across inboxship.
//
// Components depend on the Logger interface only. The CLI wires in the
// zerolog adapter; tests and embedders that do not care about output use
// the no-op logger.
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	runLog := log.With(logger, log.String("run_id", id))
//	runLog.Info("run started", log.Int("total", n))
//
// Implement Logger to route inboxship output into an existing logging stack.
package log
