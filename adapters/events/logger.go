package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/sirupsen/logrus"
)

// LogrusAdapter routes Watermill's internal logging to logrus
type LogrusAdapter struct {
	entry *logrus.Entry
}

var _ watermill.LoggerAdapter = (*LogrusAdapter)(nil)

func NewLogrusAdapter(logger logrus.FieldLogger) *LogrusAdapter {
	return &LogrusAdapter{entry: logger.WithField("component", "events")}
}

func (l *LogrusAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

func (l *LogrusAdapter) Info(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

func (l *LogrusAdapter) Debug(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (l *LogrusAdapter) Trace(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Trace(msg)
}

func (l *LogrusAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LogrusAdapter{entry: l.entry.WithFields(logrus.Fields(fields))}
}
