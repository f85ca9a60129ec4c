// Package boxlog provides the leveled logger shared by every boxxy
// component. It wraps logrus the way the rest of this corpus does:
// one process-wide logger, per-component fields instead of per-package
// prefixes, and level control from a CLI flag or environment variable.
package boxlog

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Init sets the root logger's level from a CLI-style level string,
// falling back to BOXXY_LOG / BOXXY_DEBUG when levelFlag is empty.
func Init(levelFlag string) {
	level := levelFlag
	if level == "" {
		level = os.Getenv("BOXXY_LOG")
	}
	if level == "" {
		if _, ok := os.LookupEnv("BOXXY_DEBUG"); ok {
			level = "debug"
		}
	}
	if level == "" {
		level = "info"
	}

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	root.SetLevel(parsed)
}

// For returns a logger scoped to a component, e.g. boxlog.For("enclosure").
func For(component string) *logrus.Entry {
	return root.WithField("component", component)
}
