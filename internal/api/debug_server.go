// Package api поднимает отладочный HTTP движка: прометеевские метрики,
// агрегированная статистика и снимок мира. Панель только читает: правки
// мира идут через Modifier, а не через HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/voxel-engine/internal/eventbus"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/middleware"
	"github.com/annel0/voxel-engine/internal/observability"
	"github.com/annel0/voxel-engine/internal/world"
)

// DebugServer — HTTP-панель движка.
type DebugServer struct {
	router *gin.Engine
	server *http.Server

	world *world.World
	scene *mesh.Registry
	bus   eventbus.EventBus
	stats *observability.EngineStats
}

// Config параметры отладочной панели.
type Config struct {
	Port  int
	World *world.World
	Scene *mesh.Registry
	Bus   eventbus.EventBus
}

// NewDebugServer собирает router со стандартным набором middleware.
func NewDebugServer(cfg Config) *DebugServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.NewRequestLogger().Handler())
	router.Use(otelgin.Middleware("debug_api"))

	promMw := middleware.NewPrometheusMiddleware("voxel_debug")
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	ds := &DebugServer{
		router: router,
		world:  cfg.World,
		scene:  cfg.Scene,
		bus:    cfg.Bus,
		stats:  observability.NewEngineStats(),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	ds.server.Handler = router

	ds.setupRoutes()
	return ds
}

func (ds *DebugServer) setupRoutes() {
	ds.router.GET("/health", ds.handleHealth)
	ds.router.GET("/stats", ds.handleStats)
}

func (ds *DebugServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ds *DebugServer) handleStats(c *gin.Context) {
	cpu, err := ds.stats.GetCPUUsage()
	if err != nil {
		cpu = -1
	}

	payload := gin.H{
		"uptime":    ds.stats.GetUptime(),
		"memory_mb": ds.stats.GetMemoryUsage(),
		"cpu_pct":   cpu,
		"world": gin.H{
			"chunks_loaded":  ds.world.ChunkCount(),
			"chunks_pending": ds.world.PendingCount(),
			"gen_queue":      ds.world.Pool().QueueLen(),
		},
		"scene": gin.H{
			"meshes": ds.scene.MeshCount(),
			"quads":  ds.scene.QuadCount(),
		},
	}
	if ds.bus != nil {
		bs := ds.bus.Metrics()
		payload["events"] = gin.H{
			"published": bs.Published,
			"consumed":  bs.Consumed,
			"dropped":   bs.Dropped,
			"in_flight": bs.InFlight,
		}
	}
	c.JSON(http.StatusOK, payload)
}

// Start запускает сервер в фоне.
func (ds *DebugServer) Start() {
	go func() {
		if err := ds.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("DebugServer: %v", err)
		}
	}()
	logging.Info("DebugServer: слушаем %s", ds.server.Addr)
}

// Stop мягко останавливает сервер.
func (ds *DebugServer) Stop(ctx context.Context) error {
	return ds.server.Shutdown(ctx)
}
