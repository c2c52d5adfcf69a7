// Package logx 构造进程内共用的 *log.Logger。
package logx

import (
	"io"
	"log"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志文件滚动策略。
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 28
)

// New 返回写入 path 的 logger（按大小滚动）；path 为空时写入 fallback。
// fallback 为 nil 等价于 io.Discard：TUI 占用终端时日志不能落到 stdout/stderr。
//
// 返回的 Closer 必须在退出前调用；无文件时是 no-op。
func New(path string, fallback io.Writer) (*log.Logger, io.Closer) {
	path = strings.TrimSpace(path)
	if path == "" {
		if fallback == nil {
			fallback = io.Discard
		}
		return log.New(fallback, "streamscout ", log.LstdFlags), nopCloser{}
	}

	f := &lumberjack.Logger{
		Filename:   filepath.Clean(path),
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
		Compress:   true,
	}
	return log.New(f, "", log.LstdFlags|log.Lmicroseconds), f
}

// Discard 返回丢弃一切输出的 logger，供测试与未配置日志的调用方使用。
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
