// Package logging builds the structured logger devlensd and devlensctl
// share. The teacher logs ad hoc with fmt.Fprintf(os.Stderr, "[gasoline] ...")
// (cmd/dev-console/main.go, internal/server/main_handlers.go); SPEC_FULL.md
// §2 replaces that with github.com/sirupsen/logrus, keeping the same
// "one line per event, a short component tag" feel via a "component" field
// instead of a bracketed string prefix.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger configured from level/format, writing to
// stderr (matching the teacher's choice of stream for operational output).
func New(level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// Component returns an entry tagged with component=name, the structured
// equivalent of the teacher's "[gasoline] " message prefix.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
