package logging

import (
	"github.com/sirupsen/logrus"
)

// LogrusAdapter implements Logger on top of logrus.
type LogrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapterFromLogger wraps an existing, already configured
// logrus.Logger. A nil logger gets a fresh default instance.
func NewLogrusAdapterFromLogger(logger *logrus.Logger) Logger {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogrusAdapter{entry: logrus.NewEntry(logger)}
}

func toLogrusFields(fields []Field) logrus.Fields {
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return lf
}

func (a *LogrusAdapter) Debug(msg string, fields ...Field) {
	a.entry.WithFields(toLogrusFields(fields)).Debug(msg)
}

func (a *LogrusAdapter) Info(msg string, fields ...Field) {
	a.entry.WithFields(toLogrusFields(fields)).Info(msg)
}

func (a *LogrusAdapter) Warn(msg string, fields ...Field) {
	a.entry.WithFields(toLogrusFields(fields)).Warn(msg)
}

func (a *LogrusAdapter) Error(msg string, fields ...Field) {
	a.entry.WithFields(toLogrusFields(fields)).Error(msg)
}

func (a *LogrusAdapter) WithError(err error) Logger {
	return &LogrusAdapter{entry: a.entry.WithError(err)}
}

func (a *LogrusAdapter) WithField(key string, value interface{}) Logger {
	return &LogrusAdapter{entry: a.entry.WithField(key, value)}
}

func (a *LogrusAdapter) WithFields(fields ...Field) Logger {
	return &LogrusAdapter{entry: a.entry.WithFields(toLogrusFields(fields))}
}
