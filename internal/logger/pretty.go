// internal/logger/pretty.go
package logger

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	})
}

func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[FATAL]%s", ColorRed+ColorBold, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// FormatMessage rewrites well-known monitor messages into a short console line.
func FormatMessage(msg string, fields ...zapcore.Field) string {
	switch {
	case strings.Contains(msg, "Snapshot refreshed"):
		symbol := extractField(fields, "symbol")
		cost := extractField(fields, "cost")
		return fmt.Sprintf("%s↻ %s mint cost %s%s", ColorBlue, symbol, cost, ColorReset)

	case strings.Contains(msg, "Profit opportunity"):
		symbol := extractField(fields, "symbol")
		margin := extractField(fields, "margin")
		return fmt.Sprintf("%s▲ %s minting is profitable (%s%%)%s", ColorGreen+ColorBold, symbol, margin, ColorReset)

	case strings.Contains(msg, "Step approaching"):
		symbol := extractField(fields, "symbol")
		remaining := extractField(fields, "remaining")
		return fmt.Sprintf("%s⚠ %s: %s units left at current cost%s", ColorYellow, symbol, remaining, ColorReset)

	case strings.Contains(msg, "Monitor started"):
		return fmt.Sprintf("%s🚀 Monitor started%s", ColorGreen, ColorReset)

	case strings.Contains(msg, "API listening"):
		addr := extractField(fields, "addr")
		return fmt.Sprintf("%s🌐 API listening on %s%s", ColorPurple, addr, ColorReset)

	default:
		return msg
	}
}

func extractField(fields []zapcore.Field, key string) string {
	for _, field := range fields {
		if field.Key != key {
			continue
		}
		switch field.Type {
		case zapcore.StringType:
			return field.String
		case zapcore.Int64Type, zapcore.Int32Type:
			return fmt.Sprintf("%d", field.Integer)
		case zapcore.Float64Type:
			return fmt.Sprintf("%.2f", math.Float64frombits(uint64(field.Integer)))
		default:
			if field.Interface != nil {
				return fmt.Sprintf("%v", field.Interface)
			}
			return fmt.Sprintf("%d", field.Integer)
		}
	}
	return ""
}

// ShortenAddress renders 0x1234...abcd.
func ShortenAddress(addr string) string {
	if len(addr) > 12 {
		return addr[:6] + "..." + addr[len(addr)-4:]
	}
	return addr
}

// FieldFilterCore keeps console output to a single readable line per entry.
type FieldFilterCore struct {
	core zapcore.Core
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &FieldFilterCore{core: c.core.With(fields)}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	clean := entry
	clean.Message = FormatMessage(entry.Message, fields...)

	var kept []zapcore.Field
	if clean.Message == entry.Message {
		kept = fields
	}
	return c.core.Write(clean, kept)
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}
