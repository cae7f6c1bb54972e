package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/guardbot-go/internal/pipeline"
)

type fakePipeline struct{}

func (fakePipeline) Stats() map[string]any {
	return map[string]any{"totalEvents": 3, "invocations": map[string]int64{"filters": 2}}
}

func (fakePipeline) Stages() []pipeline.StageInfo {
	return []pipeline.StageInfo{{Name: "blacklist", Priority: -10}, {Name: "user-logger", Priority: 10}}
}

type fakeStats map[string]any

func (f fakeStats) Stats() map[string]any { return f }

type fakeChats []int64

func (f fakeChats) Len() int     { return len(f) }
func (f fakeChats) IDs() []int64 { return f }

type fakeChannels struct{}

func (fakeChannels) GetStatus() map[string]bool { return map[string]bool{"telegram": true} }
func (fakeChannels) OutboundStats() map[string]any {
	return map[string]any{"liveLanes": 2}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func do(t *testing.T, s *Server, path, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w, body
}

func TestHandleHealth(t *testing.T) {
	s := NewServer(ServerConfig{InstanceID: "test-instance", Store: fakePinger{}})
	w, body := do(t, s, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-instance", body["instanceId"])
}

func TestHandleHealth_StoreDown(t *testing.T) {
	s := NewServer(ServerConfig{Store: fakePinger{err: errors.New("db closed")}})
	w, body := do(t, s, "/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "db closed", body["store"])
}

func TestHandleHealth_GeneratesInstanceID(t *testing.T) {
	_, body := do(t, NewServer(ServerConfig{}), "/health", "")
	assert.NotEmpty(t, body["instanceId"])
}

func TestHandleStatus_NoAuth(t *testing.T) {
	s := NewServer(ServerConfig{APIKey: "secret-key"})
	w, body := do(t, s, "/api/status", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", body["error"])

	w, _ = do(t, s, "/api/status", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleStatus_WithAuth(t *testing.T) {
	s := NewServer(ServerConfig{
		APIKey:     "secret-key",
		Dispatcher: fakePipeline{},
		Runner:     fakeStats{"inFlight": 1},
		Resolver:   fakeStats{"misses": 4},
		Known:      fakeChats{-1, -2},
	})
	w, body := do(t, s, "/api/status", "secret-key")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["knownChats"])
	assert.Equal(t, float64(4), body["resolver"].(map[string]any)["misses"])
	assert.Equal(t, float64(1), body["runner"].(map[string]any)["inFlight"])
	stages := body["stages"].([]any)
	require.Len(t, stages, 2)
	assert.Equal(t, "blacklist", stages[0].(map[string]any)["name"])
	assert.NotContains(t, body, "channels")
}

func TestHandleStatus_Channels(t *testing.T) {
	_, body := do(t, NewServer(ServerConfig{Channels: fakeChannels{}}), "/api/status", "")
	assert.Equal(t, true, body["channels"].(map[string]any)["telegram"])
	assert.Equal(t, float64(2), body["outbound"].(map[string]any)["liveLanes"])
}

func TestHandleStages(t *testing.T) {
	_, body := do(t, NewServer(ServerConfig{Dispatcher: fakePipeline{}}), "/api/stages", "")
	assert.Equal(t, float64(2), body["total"])

	w, _ := do(t, NewServer(ServerConfig{}), "/api/stages", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestHandleChats(t *testing.T) {
	_, body := do(t, NewServer(ServerConfig{Known: fakeChats{-5}}), "/api/chats", "")
	assert.Equal(t, []any{float64(-5)}, body["chats"])

	_, body = do(t, NewServer(ServerConfig{}), "/api/chats", "")
	assert.Equal(t, float64(0), body["total"])
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	w := httptest.NewRecorder()
	NewServer(ServerConfig{}).Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
