package log

import (
	"context"
	stdlog "log"
	"log/slog"
	"strings"
)

// stdLogger 接收标准库 log 输出的组件 logger
//
// 部分依赖（如 hashicorp/mdns）直接使用全局 log.Printf，并以 "[ERR]"、
// "[INFO]" 等前缀标注级别。
var stdLogger = Logger("stdlog")

// stdBridge 将标准库 log 的每一行转为一条 slog 记录
type stdBridge struct{}

// Write 实现 io.Writer
func (stdBridge) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}
	lvl, msg := stdLevel(msg)
	stdLogger.base().Log(context.Background(), lvl, msg)
	return len(p), nil
}

// stdLevel 解析行首级别标记并去掉标记
//
// 没有标记的行按 Debug 处理。
func stdLevel(msg string) (slog.Level, string) {
	prefixes := []struct {
		tag string
		lvl slog.Level
	}{
		{"[ERR]", LevelWarn},
		{"[ERROR]", LevelWarn},
		{"[WARN]", LevelWarn},
		{"[INFO]", LevelDebug},
		{"[DEBUG]", LevelDebug},
	}
	for _, p := range prefixes {
		if strings.HasPrefix(msg, p.tag) {
			return p.lvl, strings.TrimSpace(strings.TrimPrefix(msg, p.tag))
		}
	}
	return LevelDebug, msg
}

// redirectStdLog 让标准库 log 经由当前 slog 默认 handler 输出
func redirectStdLog() {
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(stdBridge{})
}
