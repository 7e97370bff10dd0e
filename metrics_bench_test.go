package authcore

import (
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	for _, enabled := range []bool{true, false} {
		name := "enabled"
		if !enabled {
			name = "disabled"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: enabled})
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				m.Inc(MetricLoginFailure)
			}
		})
	}
}

// Login outcomes hit a handful of counters from many goroutines.
func BenchmarkMetricsLoginOutcomesParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	outcomes := [...]MetricID{
		MetricLoginSuccess,
		MetricLoginFailure,
		MetricMFALoginRequired,
		MetricMFALoginSuccess,
	}
	latencies := [...]time.Duration{8 * time.Millisecond, 40 * time.Millisecond, 120 * time.Millisecond, 700 * time.Millisecond}
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Inc(outcomes[i%len(outcomes)])
			m.Observe(MetricAuthenticateLatency, latencies[i%len(latencies)])
			i++
		}
	})
}

func BenchmarkMetricsSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricAuthenticateLatency, 30*time.Millisecond)
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}
