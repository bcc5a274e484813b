// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger 是全局的基础 logger，服务启动时通过 Init 设置服务名。
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init 初始化全局 logger。
// 本地开发时设置 LOG_PRETTY=true 可以输出人类可读的控制台格式。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out = os.Stdout
	logger := zerolog.New(out)
	if os.Getenv("LOG_PRETTY") == "true" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	}

	Logger = logger.With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回一个携带当前 trace_id 的 logger。
// 没有活跃 Span 时退化为全局 logger。
func Ctx(ctx context.Context) *zerolog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return &Logger
	}
	l := Logger.With().
		Str("trace_id", spanCtx.TraceID().String()).
		Str("span_id", spanCtx.SpanID().String()).
		Logger()
	return &l
}
