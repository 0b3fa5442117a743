// Package metrics exposes the Prometheus scrape endpoint. Domain packages
// register their own collectors against the default registry via promauto;
// this package only serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler for the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
