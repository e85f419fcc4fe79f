package testutil

import (
	"github.com/johnrirwin/socialfeed/internal/logging"
)

// NullLogger returns a logger that only reports errors
func NullLogger() *logging.Logger {
	return logging.New(logging.LevelError)
}
