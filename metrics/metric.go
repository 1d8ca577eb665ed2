package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowscan/indexer/logging"
)

var (
	SyncedHeightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "indexer_synced_height",
		Help: "Latest height fully decoded and persisted by the forward syncer.",
	})

	HeadHeightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "indexer_head_height",
		Help: "Latest sealed height reported by the access nodes.",
	})

	ActiveLeasesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "indexer_backfill_active_leases",
		Help: "Number of unexpired ACTIVE backfill leases.",
	})

	BackfilledRangesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "indexer_backfill_completed_ranges_total",
		Help: "Backfill ranges completed since process start.",
	})

	IndexingErrorsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_indexing_errors_total",
		Help: "Errors recorded in the indexing error ledger, by severity.",
	}, []string{"severity"})

	MetricsItems = []prometheus.Collector{
		SyncedHeightGauge,
		HeadHeightGauge,
		ActiveLeasesGauge,
		BackfilledRangesCounter,
		IndexingErrorsCounter,
	}
)

const DefaultMetricsAddress = "0.0.0.0:9090"

type Metrics struct {
	httpAddress string
	registry    *prometheus.Registry
	httpServer  *http.Server
}

func NewMetrics(address string) *Metrics {
	return &Metrics{
		httpAddress: address,
		registry:    prometheus.NewRegistry(),
	}
}

func (m *Metrics) Start() {
	m.registry.MustRegister(MetricsItems...)
	go m.serve()
}

func (m *Metrics) serve() {
	router := mux.NewRouter()
	router.Path("/metrics").Handler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.httpServer = &http.Server{
		Addr:    m.httpAddress,
		Handler: router,
	}
	if err := m.httpServer.ListenAndServe(); err != nil {
		logging.Logger.Errorf("failed to listen and serve", "error", err)
		panic(err)
	}
}
