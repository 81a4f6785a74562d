package metrics

import (
	"net/http"

	"github.com/go-chi/chi"
	chi_middleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "deployment"
	subsystem = "deploystatus"

	StatusOK    = "ok"
	StatusError = "error"

	labelStatus = "status"
)

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name:      name,
		Help:      help,
		Namespace: namespace,
		Subsystem: subsystem,
	})
}

var (
	ReadyFound      = counter("ready_found", "number of deployments found in Ready state")
	UpdateSucceeded = counter("update_succeeded", "number of deployments successfully moved to Succeeded")
	UpdateFailed    = counter("update_failed", "number of deployments where the status update was rejected")
	LookupFailed    = counter("lookup_failed", "number of Ready deployments whose current status could not be retrieved")
	ListFailed      = counter("list_failed", "number of reconciliation passes aborted because listing failed")

	notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "notifications_total",
		Help:      "number of status notifications sent, by outcome",
		Namespace: namespace,
		Subsystem: subsystem,
	},
		[]string{
			labelStatus,
		},
	)
)

func statusLabel(err error) string {
	if err == nil {
		return StatusOK
	}
	return StatusError
}

func Notification(err error) {
	notifications.With(prometheus.Labels{
		labelStatus: statusLabel(err),
	}).Inc()
}

func init() {
	prometheus.MustRegister(ReadyFound)
	prometheus.MustRegister(UpdateSucceeded)
	prometheus.MustRegister(UpdateFailed)
	prometheus.MustRegister(LookupFailed)
	prometheus.MustRegister(ListFailed)
	prometheus.MustRegister(notifications)

	// Pre-populate so both series exist before the first notification.
	notifications.With(prometheus.Labels{labelStatus: StatusOK})
	notifications.With(prometheus.Labels{labelStatus: StatusError})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Router serves metrics on metricsPath and a liveness probe on /healthz.
func Router(metricsPath string) chi.Router {
	router := chi.NewRouter()
	router.Use(chi_middleware.StripSlashes)

	router.Get(metricsPath, Handler().ServeHTTP)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return router
}
