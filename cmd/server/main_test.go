package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/sakif/paperplane/internal/config"
)

func TestRun_FlushesTracingWhenServerFails(t *testing.T) {
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	// A regular file where the database directory should be makes server.New fail.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := &config.Config{
		Environment:   "development",
		Port:          0,
		DBPath:        filepath.Join(blocker, "paperplane.db"),
		StorageDir:    t.TempDir(),
		PublicBaseURL: "http://paperplane.test",
		MaxUploadMB:   1,
		TokenTTL:      time.Hour,
		OTLPEndpoint:  collector.URL,
	}

	err := run(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)

	// A shut-down tracer provider hands out non-recording spans.
	_, span := otel.Tracer("paperplane/test").Start(context.Background(), "after-exit")
	defer span.End()
	assert.False(t, span.IsRecording())
}
