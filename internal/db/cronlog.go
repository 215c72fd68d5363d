package db

import "github.com/electwix/pebble/internal/logging"

// cronLogger reports scheduler events through a logging.Logger. Scheduler
// chatter goes to debug.
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("scheduler: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("scheduler: "+msg, append(keysAndValues, "err", err)...)
}
