package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base  *zap.Logger
	sugar *zap.SugaredLogger
)

func init() {
	Init(os.Getenv("ENVIRONMENT"))
}

// Init rebuilds the package loggers. Development gets a console encoder with
// debug enabled, everything else gets JSON at info level.
func Init(environment string) {
	var cfg zap.Config
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	base = l.With(zap.String("service", "propertychat"))
	sugar = base.Sugar()
}

// L returns the structured logger for field-based logging.
func L() *zap.Logger {
	return base.WithOptions(zap.AddCallerSkip(-1))
}

func Info(format string, v ...interface{}) {
	sugar.Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	sugar.Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	sugar.Debugf(format, v...)
}

func Warn(format string, v ...interface{}) {
	sugar.Warnf(format, v...)
}

func Sync() {
	_ = base.Sync()
}
