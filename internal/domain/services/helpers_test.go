package services

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devilmonastery/salesdesk/internal/client"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAPI starts a fake backend mounted under /api/ and returns a
// pipeline client pointed at it.
func newTestAPI(t *testing.T, mux *http.ServeMux, pair client.TokenPair) (*client.Client, *client.MemoryTokenManager) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tokens := client.NewMemoryTokenManager(pair)
	cfg := client.DefaultConfig(srv.URL + "/api/")
	cfg.Retry.MaxRetries = 0
	c, err := client.New(cfg, tokens, client.WithHTTPClient(srv.Client()), client.WithLogger(discardLogger()))
	require.NoError(t, err)
	return c, tokens
}

func writeEnvelope(w http.ResponseWriter, httpStatus, envelopeStatus int, detail string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":   data,
		"status": map[string]any{"status_code": envelopeStatus, "detail": detail},
	})
}

func ok(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, http.StatusOK, "", data)
}

func decodeBody(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body
}
