package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("sundey", reg)

	m.StatusTransitions.WithLabelValues("PENDING", "CONFIRMED").Inc()
	m.CleanupDeleted.Add(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.StatusTransitions.WithLabelValues("PENDING", "CONFIRMED")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.CleanupDeleted))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "sundey_reservation_status_transitions_total")
	assert.Contains(t, names, "sundey_orphan_photos_deleted_total")
}

func TestNewMetrics_SeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("sundey", prometheus.NewRegistry())
		NewMetrics("sundey", prometheus.NewRegistry())
	})
}
