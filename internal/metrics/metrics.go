package metrics

import (
	"net/http"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

const namespace = "boxoffice"

// Purchase results.
const (
	ResultCompleted   = "completed"
	ResultSoldOut     = "sold_out"
	ResultNotYourTurn = "not_your_turn"
	ResultFailed      = "failed"
	ResultInvalid     = "invalid"
	ResultCorruption  = "ledger_corruption"
)

type Metrics struct {
	reg *prometheus.Registry

	QueueJoins        *prometheus.CounterVec
	QueueLeaves       *prometheus.CounterVec
	AdmissionGrants   *prometheus.CounterVec
	AdmissionExpiries *prometheus.CounterVec
	Purchases         *prometheus.CounterVec
	SeatsSold         *prometheus.CounterVec
	LedgerCorruptions *prometheus.CounterVec
	PanicsRecovered   prometheus.Counter
	PurchaseDuration  prometheus.Histogram

	GRPCServer *grpcprom.ServerMetrics
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srvMetrics := grpcprom.NewServerMetrics(
		grpcprom.WithServerHandlingTimeHistogram(
			grpcprom.WithHistogramBuckets([]float64{0.001, 0.01, 0.1, 0.3, 0.6, 1, 3, 6}),
		),
	)
	reg.MustRegister(srvMetrics)

	f := promauto.With(reg)

	return &Metrics{
		reg:        reg,
		GRPCServer: srvMetrics,
		QueueJoins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_joins_total",
			Help:      "Users who joined an event queue.",
		}, []string{"event_id"}),
		QueueLeaves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_leaves_total",
			Help:      "Users who left an event queue or abandoned their window.",
		}, []string{"event_id"}),
		AdmissionGrants: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_grants_total",
			Help:      "Admission windows granted.",
		}, []string{"event_id"}),
		AdmissionExpiries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_expiries_total",
			Help:      "Admission windows that expired without completion.",
		}, []string{"event_id"}),
		Purchases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Purchase attempts by result.",
		}, []string{"event_id", "result"}),
		SeatsSold: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seats_sold_total",
			Help:      "Tickets issued per category.",
		}, []string{"category_id"}),
		LedgerCorruptions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_corruptions_total",
			Help:      "Seat ledger invariant violations. Any increase needs manual reconciliation.",
		}, []string{"category_id"}),
		PanicsRecovered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_recovered_total",
			Help:      "Requests recovered from an internal panic.",
		}),
		PurchaseDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "purchase_duration_seconds",
			Help:      "Time spent in the purchase transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Initialize pre-populates the per-method gRPC series.
func (m *Metrics) Initialize(srv *grpc.Server) {
	m.GRPCServer.InitializeMetrics(srv)
}
