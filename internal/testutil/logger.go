package testutil

import (
	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
)

// NullLogger returns a logger that discards all output
func NullLogger() log.Interface {
	return &log.Logger{
		Handler: discard.New(),
		Level:   log.ErrorLevel,
	}
}
