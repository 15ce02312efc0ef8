package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

type capturedRecord struct {
	body     string
	severity otellog.Severity
	attrs    map[string]string
}

type memoryExporter struct {
	mu      sync.Mutex
	records []capturedRecord
}

func (e *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		c := capturedRecord{body: r.Body().AsString(), severity: r.Severity(), attrs: map[string]string{}}
		r.WalkAttributes(func(kv otellog.KeyValue) bool {
			c.attrs[kv.Key] = kv.Value.String()
			return true
		})
		e.records = append(e.records, c)
	}
	return nil
}

func (e *memoryExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryExporter) ForceFlush(context.Context) error { return nil }

func restoreLogger(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestInitLogger_LevelAndSinks(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer

	InitLogger("roster-test", "production", "warn", &buf)

	log.Info().Msg("dropped")
	log.Warn().Str("k", "v").Msg("kept")

	var event map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &event))
	assert.Equal(t, "kept", event["message"])
	assert.Equal(t, "roster-test", event["service"])
	assert.Equal(t, "v", event["k"])
	assert.Contains(t, event, "caller")
}

func TestInitLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	restoreLogger(t)
	InitLogger("roster-test", "production", "loud")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestLoggerFromContext_AddsRequestID(t *testing.T) {
	restoreLogger(t)
	var buf bytes.Buffer
	InitLogger("roster-test", "production", "debug", &buf)

	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))

	LoggerFromContext(ctx).Info().Msg("hello")

	var event map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &event))
	assert.Equal(t, "req-123", event["request_id"])
	assert.NotContains(t, event, "trace_id")
}

func TestLogBridge_EmitsRecords(t *testing.T) {
	exporter := &memoryExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bridge := &LogBridge{logger: provider.Logger("test")}
	logger := zerolog.New(bridge)
	logger.Warn().Str("provider_id", "42").Int("slots", 3).Msg("slow view")

	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	require.Len(t, exporter.records, 1)
	rec := exporter.records[0]
	assert.Equal(t, "slow view", rec.body)
	assert.Equal(t, otellog.SeverityWarn, rec.severity)
	assert.Equal(t, "42", rec.attrs["provider_id"])
	assert.Contains(t, rec.attrs, "slots")
	assert.NotContains(t, rec.attrs, "level")
}

func TestInitMetrics_UsesGlobalProvider(t *testing.T) {
	metrics, err := InitMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordCacheHit(ctx, metrics, "list")
		RecordCacheMiss(ctx, metrics, "list")
		RecordIndexSize(ctx, metrics, 12)
		RecordDatasetReload(ctx, metrics, nil)
	})
	assert.NotPanics(t, func() { RecordCacheHit(ctx, nil, "list") })
}
