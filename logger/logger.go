package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger

func init() {
	// usable before Init, tests never call Init
	Log = zap.NewNop()
}

// Init builds the process logger for the given environment and installs it
// as the zap global.
func Init(env string) {
	var cfg zap.Config

	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	Log = l
	zap.ReplaceGlobals(Log)
}

func Sync() {
	_ = Log.Sync()
}

func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	Log.Debug(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Log.Fatal(msg, fields...)
}

// Leveled adapts the logger to the key/value interface used by
// go-retryablehttp.
type Leveled struct {
	S *zap.SugaredLogger
}

func NewLeveled() Leveled {
	return Leveled{S: Log.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l Leveled) Error(msg string, keysAndValues ...interface{}) { l.S.Errorw(msg, keysAndValues...) }
func (l Leveled) Info(msg string, keysAndValues ...interface{})  { l.S.Debugw(msg, keysAndValues...) }
func (l Leveled) Debug(msg string, keysAndValues ...interface{}) { l.S.Debugw(msg, keysAndValues...) }
func (l Leveled) Warn(msg string, keysAndValues ...interface{})  { l.S.Warnw(msg, keysAndValues...) }
