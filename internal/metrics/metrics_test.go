package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Get("/api/ideas/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/ideas/{id}", "418"))

	for _, path := range []string{"/api/ideas/1", "/api/ideas/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/ideas/{id}", "418"))
	assert.Equal(t, 2.0, after-before)
}

func TestHTTPMetricsMiddleware_DefaultStatus(t *testing.T) {
	h := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "200"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/whatever", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "200"))

	assert.Equal(t, 1.0, after-before)
}

func TestObserveUpload_CountsBytesOnSuccessOnly(t *testing.T) {
	before := testutil.ToFloat64(fileUploadBytes)

	ObserveUpload(ResultSuccess, 100)
	ObserveUpload(ResultError, 50)

	assert.Equal(t, 100.0, testutil.ToFloat64(fileUploadBytes)-before)
}
