package tracing

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.opentelemetry.io/otel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), testLogger(), "", "paperplane", "test")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

// collector counts OTLP trace exports and answers like a real collector.
func collector(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		if r.Method == http.MethodPost && r.URL.Path == "/v1/traces" {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestInit_ExportsSpans(t *testing.T) {
	tests := []struct {
		name     string
		endpoint func(srvURL string) string
	}{
		{name: "URL form", endpoint: func(u string) string { return u }},
		{name: "URL with base path", endpoint: func(u string) string { return u + "/" }},
		{name: "full traces URL", endpoint: func(u string) string { return u + "/v1/traces" }},
		{name: "host:port form", endpoint: func(u string) string { return strings.TrimPrefix(u, "http://") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := collector(t)

			shutdown, err := Init(context.Background(), testLogger(), tt.endpoint(srv.URL), "paperplane", "test")
			if err != nil {
				t.Fatalf("Init() error = %v", err)
			}

			_, span := otel.Tracer("paperplane/test").Start(context.Background(), "upload")
			span.End()

			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown() error = %v", err)
			}
			if got := hits.Load(); got == 0 {
				t.Errorf("collector received %d exports, want at least 1", got)
			}
		})
	}
}

func TestEndpointOptions_RejectsBadURL(t *testing.T) {
	if _, err := Init(context.Background(), testLogger(), "http://", "paperplane", "test"); err == nil {
		t.Error("Init() with an endpoint URL without host: want error")
	}
}
