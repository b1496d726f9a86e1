// Package logging configures the structured logger shared by the upgrade
// pipeline and its transports.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once sync.Once
	root *logrus.Entry
)

// Get returns the package-level logger, initializing it on first use. The
// level is read from LABJACK_T7_LOG_LEVEL (default "info").
func Get() *logrus.Entry {
	once.Do(func() {
		logger := logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		level, err := logrus.ParseLevel(os.Getenv("LABJACK_T7_LOG_LEVEL"))
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)
		root = logrus.NewEntry(logger)
	})
	return root
}

// WithGroup tags an entry with a logical subsystem name, e.g. "engine" or
// "reboot".
func WithGroup(name string) *logrus.Entry {
	return Get().WithField("group", name)
}
