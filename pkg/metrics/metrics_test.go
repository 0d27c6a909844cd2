package metrics_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"droscher.com/BeerLedger/pkg/metrics"
)

func TestWriteTextfile_WritesRegisteredCounters(t *testing.T) {
	metrics.Ingested.WithLabelValues("checkin").Add(3)

	path := filepath.Join(t.TempDir(), "beerledger.prom")
	require.NoError(t, metrics.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `beerledger_ingested_total{entity="checkin"}`)
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.Ingested.WithLabelValues("checkin")), 3.0)
}
