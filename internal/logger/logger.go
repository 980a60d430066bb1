package logger

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Logger struct {
	*logrus.Entry
}

type Options struct {
	Level  string // debug|info|warn|error
	JSON   bool
	Output io.Writer
}

func New() *Logger {
	// Local env = pretty console; others = JSON
	env := os.Getenv("ENVIRONMENT")
	return NewWithOptions(Options{
		Level:  os.Getenv("LOG_LEVEL"),
		JSON:   env != "" && env != "local",
		Output: os.Stdout,
	})
}

func NewWithOptions(o Options) *Logger {
	base := logrus.New()

	if o.JSON {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
			ForceColors:     true,
		})
	}

	if o.Output == nil {
		o.Output = os.Stdout
	}
	base.SetOutput(o.Output)
	base.SetLevel(parseLevel(o.Level))

	return &Logger{Entry: logrus.NewEntry(base)}
}

// Discard returns a logger that writes nowhere.
func Discard() *Logger {
	return NewWithOptions(Options{Output: io.Discard, Level: "error"})
}

func parseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields logrus.Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(fields)}
}

// Component tags every entry with the component name.
func (l *Logger) Component(name string) *Logger {
	return l.With(logrus.Fields{"component": name})
}

// WithRequest attaches request metadata and returns an entry
func (l *Logger) WithRequest(r *http.Request) *logrus.Entry {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.New().String()
	}

	return l.WithFields(logrus.Fields{
		"req_id":     reqID,
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote_ip":  r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})
}

// WithError standardizes error logging
func (l *Logger) WithError(err error) *logrus.Entry {
	if err == nil {
		return l.Entry
	}
	return l.Entry.WithField("error", err.Error())
}
