package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistererRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg)

	m.DocsScannedTotal.Add(3)
	m.SearchesTotal.WithLabelValues("ok").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.DocsScannedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("ok")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["keyword_docs_scanned_total"])
	assert.True(t, names["keyword_searches_total"])
}

func TestNewWithRegistererTwicePanicsOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewWithRegisterer(reg)
	assert.Panics(t, func() { NewWithRegisterer(reg) })
}
