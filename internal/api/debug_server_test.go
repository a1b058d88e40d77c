package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-engine/internal/eventbus"
	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/world"
)

// Один сервер на весь пакет: prometheus-метрики middleware регистрируются
// в глобальном регистре и не переживают повторной регистрации.
func newTestServer(t *testing.T) *DebugServer {
	t.Helper()
	w := world.NewWorld(1, 1, mesh.NewRegistry())
	t.Cleanup(w.Terminate)

	return NewDebugServer(Config{
		Port:  0,
		World: w,
		Scene: mesh.NewRegistry(),
		Bus:   eventbus.NewMemoryBus(16),
	})
}

func TestDebugServer_Endpoints(t *testing.T) {
	ds := newTestServer(t)

	// /health
	rec := httptest.NewRecorder()
	ds.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health должен отвечать 200")

	// /stats
	rec = httptest.NewRecorder()
	ds.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code, "stats должен отвечать 200")

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), "stats должен быть валидным JSON")
	assert.Contains(t, payload, "uptime", "в статистике должен быть аптайм")
	assert.Contains(t, payload, "world", "в статистике должен быть блок мира")
	assert.Contains(t, payload, "scene", "в статистике должен быть блок сцены")
	assert.Contains(t, payload, "events", "в статистике должен быть блок шины")

	// /metrics
	rec = httptest.NewRecorder()
	ds.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "metrics должен отвечать 200")
	assert.Contains(t, rec.Body.String(), "voxel_debug_http", "метрики панели должны экспортироваться")

	// Неизвестный маршрут
	rec = httptest.NewRecorder()
	ds.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "неизвестный маршрут — 404")
}
