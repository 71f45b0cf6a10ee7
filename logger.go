package btlighthouse

import "go.uber.org/zap"

// Logger denotes a generic logging interface
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// NullLogger denotes a logger that discards all messages
type NullLogger struct{}

// Debugf fulfils the Logger interface, discarding the message
func (l *NullLogger) Debugf(format string, args ...interface{}) {}

// Infof fulfils the Logger interface, discarding the message
func (l *NullLogger) Infof(format string, args ...interface{}) {}

// Warnf fulfils the Logger interface, discarding the message
func (l *NullLogger) Warnf(format string, args ...interface{}) {}

// Errorf fulfils the Logger interface, discarding the message
func (l *NullLogger) Errorf(format string, args ...interface{}) {}

// Fatalf fulfils the Logger interface, discarding the message
func (l *NullLogger) Fatalf(format string, args ...interface{}) {}

// NewDefaultLogger instantiates a new zap based logger, with optional debug
// level output
func NewDefaultLogger(debug bool) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableCaller = true
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return &NullLogger{}
	}

	return logger.Sugar()
}
