package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openrecap/recapd/internal/progress"
)

// PrometheusSink exports page lifecycle metrics. It owns its collectors so
// tests can register against a private registry.
type PrometheusSink struct {
	pagesStarted  prometheus.Counter
	pagesByKind   *prometheus.CounterVec
	uploadsByKind *prometheus.CounterVec
	pageDuration  prometheus.Histogram
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		pagesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recapd_progress_pages_started_total",
			Help: "Total page instances that entered processing.",
		}),
		pagesByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recapd_progress_pages_classified_total",
			Help: "Classified pages partitioned by kind.",
		}, []string{"kind"}),
		uploadsByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recapd_progress_uploads_total",
			Help: "Upload outcomes partitioned by kind and stage.",
		}, []string{"kind", "stage"}),
		pageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recapd_progress_page_duration_seconds",
			Help:    "Wall time per completed page.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.pagesStarted,
		s.pagesByKind,
		s.uploadsByKind,
		s.pageDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch. Safe for concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StagePageStart:
			s.pagesStarted.Inc()
		case progress.StagePageClassified:
			s.pagesByKind.WithLabelValues(evt.Kind).Inc()
		case progress.StageUploadDone, progress.StageUploadSkipped:
			s.uploadsByKind.WithLabelValues(evt.Kind, string(evt.Stage)).Inc()
		case progress.StagePageDone:
			s.pageDuration.Observe(evt.Dur.Seconds())
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
