package auth_test

import (
	"testing"

	"github.com/jrsteele09/takemethere/internal/metrics"
	"github.com/stretchr/testify/require"
)

// counter reads a single-label counter from the recorder's registry.
func counter(t *testing.T, rec *metrics.Recorder, name, label string) float64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
