package main

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	MaxSize    int  `yaml:"maxsize" json:"maxsize"` // megabytes
	MaxBackups int  `yaml:"maxbackups" json:"maxbackups"`
	MaxAge     int  `yaml:"maxage" json:"maxage"` // days
	Compress   bool `yaml:"compress" json:"compress"`
}

// DebugLog provides a logger whose debug-level messages can be switched on and
// off at runtime.
type DebugLog struct {
	Logger *zap.Logger
	out    io.Writer
	level  zap.AtomicLevel
}

func NewDebugLog(out io.Writer) *DebugLog {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(out), level)
	return &DebugLog{
		Logger: zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)),
		out:    out,
		level:  level,
	}
}

// NewFileDebugLog logs to a file, rotated according to cfg.
func NewFileDebugLog(filename string, cfg LogConfig) *DebugLog {
	return NewDebugLog(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		LocalTime:  true,
		Compress:   cfg.Compress,
	})
}

func (l *DebugLog) SetDebug(d bool) {
	if d {
		l.level.SetLevel(zapcore.DebugLevel)
	} else {
		l.level.SetLevel(zapcore.InfoLevel)
	}
}

func (l *DebugLog) Debug() bool {
	return l.level.Enabled(zapcore.DebugLevel)
}

func (l *DebugLog) Close() {
	l.Logger.Sync()
	if c, ok := l.out.(io.Closer); ok {
		c.Close()
	}
}
