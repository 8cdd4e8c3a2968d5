package merger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging surface the pipeline needs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// zapLogger adapts a zap SugaredLogger to Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger wraps l. A nil l logs nothing.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{s: l.Sugar()}
}

func (l *zapLogger) Debug(msg string, args ...interface{}) { l.s.Debugf(msg, args...) }
func (l *zapLogger) Info(msg string, args ...interface{})  { l.s.Infof(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...interface{})  { l.s.Warnf(msg, args...) }
func (l *zapLogger) Error(msg string, args ...interface{}) { l.s.Errorf(msg, args...) }

// NewProductionLogger builds the console logger used by the CLI. Output goes
// to stderr so stdout carries only the report.
func NewProductionLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}
