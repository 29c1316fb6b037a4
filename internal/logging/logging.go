package logging

import (
	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger from the config log level.
// Unknown levels fall back to INFO rather than failing startup.
func Setup(level string, verbose bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if verbose {
		lvl = logrus.DebugLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}
