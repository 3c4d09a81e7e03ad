package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func TestLoggerProvider_DisabledCoreIsNop(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(context.Background()))

	assert.False(t, lp.Core("dronehub", zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))

	var none *LoggerProvider
	assert.False(t, none.Core("dronehub", zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

func TestLoggerProvider_CoreExportsFromLevel(t *testing.T) {
	exporter := &recordingExporter{}
	lp := NewLoggerProviderWithProcessor(sdklog.NewSimpleProcessor(exporter))
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	log := zap.New(lp.Core("dronehub", zapcore.InfoLevel)).With(zap.String("component", "checkout"))
	log.Debug("cache miss")
	log.Info("Order placed", zap.Int64("order_number", 1042))
	log.Warn("Carrier rejected shipment")

	assert.Equal(t, []string{"Order placed", "Carrier rejected shipment"}, exporter.bodies())
}
