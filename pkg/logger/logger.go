package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gold-signal-sentry/pkg/types"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init 初始化全局日志：控制台彩色输出 + 按大小切割的JSON文件
func Init(cfg types.LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig()), zapcore.Lock(os.Stdout), level),
	}

	if cfg.FilePath != "" {
		writer, err := rotatingWriter(cfg, "gold-signal-sentry.log")
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), writer, level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	zap.ReplaceGlobals(l)
	return l, nil
}

// NewFileLogger 独立的JSON行文件日志，不输出到控制台也不替换全局日志
// 未配置日志目录时返回 Nop
func NewFileLogger(cfg types.LogConfig, filename string) (*zap.Logger, error) {
	if cfg.FilePath == "" {
		return zap.NewNop(), nil
	}
	writer, err := rotatingWriter(cfg, filename)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), writer, zapcore.InfoLevel)
	return zap.New(core), nil
}

func rotatingWriter(cfg types.LogConfig, filename string) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(cfg.FilePath, 0o755); err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(cfg.FilePath, filename),
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}), nil
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	c := zap.NewDevelopmentEncoderConfig()
	c.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	c.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return c
}

func fileEncoderConfig() zapcore.EncoderConfig {
	c := zap.NewProductionEncoderConfig()
	c.EncodeTime = zapcore.ISO8601TimeEncoder
	return c
}
