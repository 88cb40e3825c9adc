package metrics

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/metrics"
	gethprom "github.com/ethereum/go-ethereum/metrics/prometheus"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/status-im/connector-bridge/logutils"
)

// Register mounts /health and /metrics on mux.
func Register(mux *http.ServeMux, r metrics.Registry) {
	mux.Handle("/health", HealthHandler())
	mux.Handle("/metrics", Handler(r))
}

func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("OK"))
		if err != nil {
			logutils.ZapLogger().Error("health handler error", zap.Error(err))
		}
	})
}

func Handler(reg metrics.Registry) http.Handler {
	// we disable compression because geth doesn't support it
	opts := promhttp.HandlerOpts{DisableCompression: true}
	// we are combining handlers to avoid having 2 endpoints
	connectorMetrics := promhttp.HandlerFor(prom.DefaultGatherer, opts)
	if reg == nil {
		return connectorMetrics
	}
	gethMetrics := gethprom.Handler(reg) // rpc client metrics
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connectorMetrics.ServeHTTP(w, r)
		gethMetrics.ServeHTTP(w, r)
	})
}
