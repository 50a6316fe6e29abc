package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestObservability_SpansAndStages(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	reg := promclient.NewRegistry()
	obs := New("menu-advisor-test", WithRegisterer(reg), WithSpanProcessor(recorder))
	defer obs.Shutdown()

	ctx, span := obs.StartSpan(context.Background(), "scrape.form", attribute.String("campus", "altoona-port-sky"))
	obs.RecordStage(ctx, "form", 120*time.Millisecond, "ok")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "scrape.form", ended[0].Name())

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "pipeline_stage_completed") {
			found = true
		}
	}
	assert.True(t, found, "stage counter should be exported")
}
