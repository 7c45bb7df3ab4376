// Package metrics documents the Prometheus metrics exported by this module.
// The metrics themselves are defined next to the code they measure (pkg/client,
// pkg/scan) and registered automatically via promauto; this package exists so
// operators have one place to look.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all module metrics attach to.
var Registry = prometheus.DefaultRegisterer

// Handler returns an HTTP handler serving the default registry, for the
// optional metrics listener of the serve command.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Exported metric families:
//
// Request metrics (pkg/client):
//   - trocco_requests_total{path, status} (Counter): requests by path and HTTP status
//   - trocco_request_duration_seconds{path} (Histogram): request duration by path
//   - trocco_errors_total{class} (Counter): request errors by class (client, server, network)
//
// Scan metrics (pkg/scan):
//   - trocco_scan_batches_total{strategy} (Counter): completed batches
//   - trocco_scan_records_total{strategy} (Counter): records inspected
//   - trocco_scan_matches_total{strategy} (Counter): deduplicated matches produced
//   - trocco_scan_batch_errors_total{strategy} (Counter): failed batch requests
//
// Example queries:
//
//   # Request error rate
//   rate(trocco_errors_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(trocco_request_duration_seconds_bucket[5m]))
//
//   # Match yield per scanned record
//   rate(trocco_scan_matches_total[5m]) / rate(trocco_scan_records_total[5m])
