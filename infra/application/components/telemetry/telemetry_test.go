package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartWithoutExporter(t *testing.T) {
	comp, err := NewFactory().Create(&Config{Enabled: true, Exporter: ExporterNone}, "stockimport")
	require.NoError(t, err)
	tc := comp.(*TelemetryComponent)
	ctx := context.Background()
	require.NoError(t, tc.Start(ctx))
	require.NoError(t, tc.HealthCheck())

	_, span := tc.Tracer("test").Start(ctx, "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, tc.Stop(ctx))
	assert.False(t, tc.IsActive())
}

func TestOTLPRequiresEndpoint(t *testing.T) {
	tc := NewTelemetryComponent(&Config{Enabled: true, ServiceName: "x", Exporter: ExporterOTLP})
	require.Error(t, tc.Start(context.Background()))
}
