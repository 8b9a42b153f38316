package cliconfig

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/inboxship/pkg/log"
)

// Logger returns the CLI console logger at the given level.
func Logger(level string) zerolog.Logger {
	return log.NewConsoleLogger(os.Stderr, level)
}
