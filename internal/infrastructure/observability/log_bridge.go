package observability

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

// LogBridge forwards zerolog JSON events to the OpenTelemetry logger
// provider. Until Setup installs a provider the records are dropped.
type LogBridge struct {
	logger otellog.Logger
}

// NewLogBridge creates a bridge emitting under the given instrumentation name.
func NewLogBridge(name string) *LogBridge {
	return &LogBridge{logger: global.GetLoggerProvider().Logger(name)}
}

// Write implements io.Writer for events without a level.
func (b *LogBridge) Write(p []byte) (int, error) {
	return b.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter.
func (b *LogBridge) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err != nil {
		// Not a JSON event; forward the raw line.
		fields = map[string]any{zerolog.MessageFieldName: string(p)}
	}

	var rec otellog.Record
	now := time.Now()
	rec.SetTimestamp(now)
	rec.SetObservedTimestamp(now)
	rec.SetSeverity(severity(level))
	rec.SetSeverityText(level.String())

	if msg, ok := fields[zerolog.MessageFieldName].(string); ok {
		rec.SetBody(otellog.StringValue(msg))
	}
	for k, v := range fields {
		switch k {
		case zerolog.MessageFieldName, zerolog.LevelFieldName, zerolog.TimestampFieldName:
			continue
		}
		rec.AddAttributes(keyValue(k, v))
	}

	b.logger.Emit(context.Background(), rec)
	return len(p), nil
}

func keyValue(k string, v any) otellog.KeyValue {
	switch val := v.(type) {
	case string:
		return otellog.String(k, val)
	case bool:
		return otellog.Bool(k, val)
	case float64:
		return otellog.Float64(k, val)
	default:
		raw, _ := json.Marshal(val)
		return otellog.String(k, string(raw))
	}
}

func severity(level zerolog.Level) otellog.Severity {
	switch level {
	case zerolog.TraceLevel:
		return otellog.SeverityTrace
	case zerolog.DebugLevel:
		return otellog.SeverityDebug
	case zerolog.InfoLevel:
		return otellog.SeverityInfo
	case zerolog.WarnLevel:
		return otellog.SeverityWarn
	case zerolog.ErrorLevel:
		return otellog.SeverityError
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return otellog.SeverityFatal
	}
	return otellog.SeverityUndefined
}
