package logger

import (
	"PicUtils/config"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// InitLogger 根据 config.Get() 中的日志配置初始化全局 slog 日志记录器。
// 配置了 logger.path 时同时写入该文件；返回的函数用于关闭日志文件。
func InitLogger() (func(), error) {
	cfg := config.Get()

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.Logger.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logger.Path), 0755); err != nil {
			return nil, fmt.Errorf("无法创建日志目录: %w", err)
		}
		file, err := os.OpenFile(cfg.Logger.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("无法打开日志文件: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closeFn = func() { file.Close() }
	}

	l, err := New(out, cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		closeFn()
		return nil, err
	}
	slog.SetDefault(l)
	return closeFn, nil
}

// New 创建一个写入 w 的 logger，format 为 "json" 时输出JSON，否则输出文本。
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	logLevel := new(slog.LevelVar)
	if err := setLogLevel(level, logLevel); err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{
		Level: logLevel,
		// AddSource: true, // 如果需要输出源码位置（文件名和行号），取消此行注释
	}

	var logHandler slog.Handler
	if format == "json" {
		logHandler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		logHandler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(logHandler), nil
}

// setLogLevel 将字符串形式的日志级别转换为 slog.Level 类型
func setLogLevel(levelStr string, levelVar *slog.LevelVar) error {
	switch levelStr {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info", "":
		levelVar.Set(slog.LevelInfo)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		return errors.New("无效的日志级别: " + levelStr)
	}
	return nil
}

// Discard 返回一个丢弃所有日志的 logger，主要用于测试，避免不必要的日志输出。
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
