package plugins

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tjfontaine/coursegate/internal/adapters/events/metrics"
	"github.com/tjfontaine/coursegate/internal/plugin"
)

// MetricsPlugin exports request metrics at /metrics. Collectors live in a
// private registry so several apps can run in one process.
func MetricsPlugin() plugin.Descriptor {
	return plugin.Descriptor{
		Name:         Metrics,
		Dependencies: []string{Routes},
		Init: func(_ context.Context, host *plugin.Host) error {
			if !host.Config.Telemetry.Metrics {
				return nil
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			if err := host.Events.Subscribe(Metrics, metrics.NewPublisher(reg)); err != nil {
				return err
			}
			host.Router.Method("GET", "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
				EnableOpenMetrics: true,
			}))
			return nil
		},
	}
}
