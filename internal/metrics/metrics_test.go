package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RemindersTotal.WithLabelValues(StatusSent).Inc()
	m.RemindersTotal.WithLabelValues(StatusSent).Inc()
	m.SweepsTotal.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues(StatusSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepsTotal))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["habits_reminders_dispatched_total"])
	assert.True(t, names["habits_reminders_sweeps_total"])
}

func TestDiscardIsIndependent(t *testing.T) {
	a, b := Discard(), Discard()
	a.RemindersScheduled.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RemindersScheduled))
}
