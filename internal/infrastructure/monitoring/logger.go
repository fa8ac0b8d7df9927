package monitoring

import (
	"context"
	"os"
	"sort"

	"github.com/turtacn/itemsvc/internal/config"
	"github.com/turtacn/itemsvc/pkg/constants"
	svcerrors "github.com/turtacn/itemsvc/pkg/errors"
	"github.com/turtacn/itemsvc/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serviceLogger adapts zap to logger.Logger.
// serviceLogger 将 zap 适配为 logger.Logger，并自动附带请求上下文中的关联字段。
type serviceLogger struct {
	z *zap.Logger
}

// NewZapLogger builds the process logger: JSON (or console) entries on stdout at cfg.Level.
// An unknown level is a configuration error.
// NewZapLogger 根据日志配置创建进程级日志器。
func NewZapLogger(cfg *config.LogConfig) (logger.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, svcerrors.ErrInvalidConfig("log.level must be one of debug, info, warn, error").WithCause(err)
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.Lock(os.Stdout), level)
	return NewZapLoggerWithCore(core), nil
}

// NewZapLoggerWithCore wraps an existing core; tests pass a zaptest observer here.
func NewZapLoggerWithCore(core zapcore.Core) logger.Logger {
	return &serviceLogger{
		z: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)),
	}
}

func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

func (l *serviceLogger) Debug(ctx context.Context, msg string, fields ...logger.Fields) {
	l.z.Debug(msg, entryFields(ctx, nil, fields)...)
}

func (l *serviceLogger) Info(ctx context.Context, msg string, fields ...logger.Fields) {
	l.z.Info(msg, entryFields(ctx, nil, fields)...)
}

func (l *serviceLogger) Warn(ctx context.Context, msg string, fields ...logger.Fields) {
	l.z.Warn(msg, entryFields(ctx, nil, fields)...)
}

func (l *serviceLogger) Error(ctx context.Context, msg string, err error, fields ...logger.Fields) {
	l.z.Error(msg, entryFields(ctx, err, fields)...)
}

func (l *serviceLogger) Fatal(ctx context.Context, msg string, err error, fields ...logger.Fields) {
	l.z.Fatal(msg, entryFields(ctx, err, fields)...)
}

// WithFields 返回附带固定字段的子日志器
func (l *serviceLogger) WithFields(fields logger.Fields) logger.Logger {
	return &serviceLogger{z: l.z.With(entryFields(nil, nil, []logger.Fields{fields})...)}
}

// Sync flushes buffered entries; call once on shutdown.
func (l *serviceLogger) Sync() error {
	return l.z.Sync()
}

// entryFields builds the zap fields for one entry: correlation IDs from ctx first, then the
// caller's fields in key order so identical calls encode identically, then the error.
func entryFields(ctx context.Context, err error, fields []logger.Fields) []zap.Field {
	out := make([]zap.Field, 0, 4)
	if ctx != nil {
		if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
			out = append(out, zap.String("request_id", requestID))
		}
		if traceID, ok := ctx.Value(constants.ContextKeyTraceID).(string); ok {
			out = append(out, zap.String("trace_id", traceID))
		}
	}

	for _, f := range fields {
		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, zap.Any(k, f[k]))
		}
	}

	if err != nil {
		out = append(out, zap.Error(err))
	}
	return out
}
