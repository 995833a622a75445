// components/logging/logger_component.go
package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

// 包装层: 全局函数 -> 组件方法 -> write
const callerSkip = 2

// Logger 日志记录器接口
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...zap.Field)
	Info(ctx context.Context, msg string, fields ...zap.Field)
	Warn(ctx context.Context, msg string, fields ...zap.Field)
	Error(ctx context.Context, msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
	Sync() error
}

// LoggerComponent zap 日志组件, 启动后注册为全局 logger.
type LoggerComponent struct {
	*core.BaseComponent
	config *LoggingConfig
	zl     *zap.Logger
	closer func() error
}

func NewLoggerComponent(cfg *LoggingConfig) *LoggerComponent {
	return &LoggerComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_LOGGING),
		config:        cfg,
	}
}

// NewWithCore wraps an existing zapcore.Core; tests pair it with zaptest/observer.
func NewWithCore(c zapcore.Core) Logger {
	return &zapLogger{zl: zap.New(c, zap.AddCaller(), zap.AddCallerSkip(callerSkip-1))}
}

func (lc *LoggerComponent) Start(ctx context.Context) error {
	if err := lc.BaseComponent.Start(ctx); err != nil {
		return err
	}
	ws, err := lc.buildWriteSyncer()
	if err != nil {
		lc.SetActive(false)
		return fmt.Errorf("failed to create write syncer: %w", err)
	}
	lc.zl = zap.New(
		zapcore.NewCore(lc.buildEncoder(), ws, parseLevel(lc.config.Level)),
		zap.AddCaller(),
		zap.AddCallerSkip(callerSkip),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	SetGlobalLogger(&zapLogger{zl: lc.zl})
	Info(ctx, "logger component started",
		zap.String("level", lc.config.Level),
		zap.String("format", lc.config.Format),
		zap.String("output", lc.config.Output))
	return nil
}

func (lc *LoggerComponent) Stop(ctx context.Context) error {
	if lc.zl != nil {
		Info(ctx, "logger component stopping")
		_ = lc.zl.Sync()
		ResetGlobalLogger()
	}
	if lc.closer != nil {
		_ = lc.closer()
	}
	return lc.BaseComponent.Stop(ctx)
}

func (lc *LoggerComponent) HealthCheck() error {
	if err := lc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	if lc.zl == nil {
		return fmt.Errorf("zap logger is not initialized")
	}
	return nil
}

// Zap exposes the underlying logger, e.g. for gorm's logger bridge.
func (lc *LoggerComponent) Zap() *zap.Logger { return lc.zl }

func (lc *LoggerComponent) buildEncoder() zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if strings.EqualFold(lc.config.Format, "console") {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func (lc *LoggerComponent) buildWriteSyncer() (zapcore.WriteSyncer, error) {
	switch strings.ToLower(lc.config.Output) {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	case "file":
		if lc.config.FileConfig == nil {
			return nil, fmt.Errorf("file config is required when output is 'file'")
		}
		return lc.fileSyncer(lc.config.FileConfig.Dir, lc.config.FileConfig.Filename)
	default:
		// 非关键字按文件路径处理
		dir, file := filepath.Split(lc.config.Output)
		return lc.fileSyncer(dir, strings.TrimSuffix(file, ".log"))
	}
}

func (lc *LoggerComponent) fileSyncer(dir, base string) (zapcore.WriteSyncer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	rc := lc.config.RotateConfig
	switch {
	case rc != nil && rc.Enabled && rc.RotateInterval > 0:
		w, err := newIntervalRotatingWriter(dir, base, rc)
		if err != nil {
			return nil, err
		}
		lc.closer = w.Close
		return w, nil
	case rc != nil && rc.Enabled:
		lj := &lumberjack.Logger{
			Filename:  filepath.Join(dir, base+".log"),
			MaxSize:   rc.MaxSizeMB,
			MaxAge:    int(rc.MaxAge.Hours() / 24),
			Compress:  true,
			LocalTime: true,
		}
		lc.closer = lj.Close
		return zapcore.AddSync(lj), nil
	}
	f, err := os.OpenFile(filepath.Join(dir, base+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	lc.closer = f.Close
	return zapcore.AddSync(f), nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// zapLogger 在每条日志上附加当前 span 的 trace_id.
type zapLogger struct {
	zl *zap.Logger
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(ctx, zapcore.DebugLevel, msg, fields)
}
func (l *zapLogger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(ctx, zapcore.InfoLevel, msg, fields)
}
func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(ctx, zapcore.WarnLevel, msg, fields)
}
func (l *zapLogger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(ctx, zapcore.ErrorLevel, msg, fields)
}

func (l *zapLogger) With(fields ...zap.Field) Logger { return &zapLogger{zl: l.zl.With(fields...)} }

func (l *zapLogger) Sync() error { return l.zl.Sync() }

func (l *zapLogger) write(ctx context.Context, lvl zapcore.Level, msg string, fields []zap.Field) {
	if ce := l.zl.Check(lvl, msg); ce != nil {
		if id := traceID(ctx); id != "" && !hasTraceField(fields) {
			fields = append([]zap.Field{zap.String(consts.KEY_TraceID, id)}, fields...)
		}
		ce.Write(fields...)
	}
}

func hasTraceField(fields []zap.Field) bool {
	for _, f := range fields {
		if f.Key == consts.KEY_TraceID {
			return true
		}
	}
	return false
}

// traceID only reports an existing OTel trace id; none is synthesized.
func traceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}
