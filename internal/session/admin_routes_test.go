package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cnc-relay/internal/serialport"
	"github.com/banshee-data/cnc-relay/internal/testutil"
)

func TestAttachAdminRoutes_Session(t *testing.T) {
	m := NewManager(serialport.NewMockFactory(), testOptions())
	require.NoError(t, m.Connect(context.Background(), "COM3"))

	mux := http.NewServeMux()
	m.AttachAdminRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalhostRequest(http.MethodGet, "/debug/session"))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, "open", snap.State)
	assert.Equal(t, "COM3", snap.Port)
}

func TestAttachAdminRoutes_SessionRelease(t *testing.T) {
	m := NewManager(serialport.NewMockFactory(), testOptions())
	require.NoError(t, m.Connect(context.Background(), "COM3"))

	mux := http.NewServeMux()
	m.AttachAdminRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalhostRequest(http.MethodGet, "/debug/session-release"))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, StateOpen, m.State())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalhostRequest(http.MethodPost, "/debug/session-release"))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "released")
	assert.Equal(t, StateIdle, m.State())
}

func TestAttachAdminRoutes_RejectsRemoteCallers(t *testing.T) {
	m := NewManager(serialport.NewMockFactory(), testOptions())
	mux := http.NewServeMux()
	m.AttachAdminRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/debug/session", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
