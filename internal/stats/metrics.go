package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "viyey_aggregate_files",
		Help: "Last observed value of the aggregate file count.",
	})
	bytesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "viyey_aggregate_bytes",
		Help: "Last observed value of the aggregate byte total.",
	})
)

func observe(agg Aggregate) {
	filesGauge.Set(float64(agg.TotalFiles))
	bytesGauge.Set(float64(agg.TotalSize))
}
