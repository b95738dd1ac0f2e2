package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kvreplay"

// Store counts traffic that reaches a store backend.
type Store struct {
	Batches     prometheus.Counter
	Operations  *prometheus.CounterVec
	Scans       prometheus.Counter
	ScannedKeys prometheus.Counter
	Errors      *prometheus.CounterVec
}

func NewStore(reg prometheus.Registerer) *Store {
	m := &Store{
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "batches_total",
			Help:      "Number of write batches applied.",
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Number of write operations applied, by kind.",
		}, []string{"kind"}),
		Scans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "scans_total",
			Help:      "Number of range scans served.",
		}),
		ScannedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "scanned_keys_total",
			Help:      "Number of pairs returned by range scans.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Number of failed store requests, by request type.",
		}, []string{"request"}),
	}

	reg.MustRegister(m.Batches, m.Operations, m.Scans, m.ScannedKeys, m.Errors)
	return m
}

// Replay tracks progress of a replay run.
type Replay struct {
	Batches         prometheus.Counter
	Operations      *prometheus.CounterVec
	Inconsistencies prometheus.Counter
	ModelKeys       prometheus.Gauge
	Buckets         prometheus.Gauge
}

func NewReplay(reg prometheus.Registerer) *Replay {
	m := &Replay{
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "batches_verified_total",
			Help:      "Number of batches applied and verified against the reference model.",
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "operations_total",
			Help:      "Number of replayed write operations, by kind.",
		}, []string{"kind"}),
		Inconsistencies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "inconsistencies_total",
			Help:      "Number of detected divergences between store and reference model.",
		}),
		ModelKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "model_keys",
			Help:      "Number of keys in the reference model.",
		}),
		Buckets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "rescan_buckets",
			Help:      "Number of first-byte buckets re-read after each batch.",
		}),
	}

	reg.MustRegister(m.Batches, m.Operations, m.Inconsistencies, m.ModelKeys, m.Buckets)
	return m
}
