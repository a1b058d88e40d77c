package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Метрики движка. Регистрируются в дефолтном регистре при старте процесса;
// /metrics поднимает отладочный HTTP-роутер в cmd/engine.
var (
	// ChunksLoaded — число чанков, находящихся в карте мира.
	ChunksLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "voxel",
		Name:      "chunks_loaded",
		Help:      "Текущее количество загруженных чанков.",
	})

	// ChunksPending — число чанков, ожидающих фоновой генерации.
	ChunksPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "voxel",
		Name:      "chunks_pending",
		Help:      "Текущее количество чанков в ожидании генерации.",
	})

	// GenerationDuration — длительность генерации одного чанка.
	GenerationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "voxel",
		Name:      "generation_duration_seconds",
		Help:      "Длительность фоновой генерации чанка.",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	// GenerationFailures — количество отказов фоновой генерации.
	GenerationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "voxel",
		Name:      "generation_failures_total",
		Help:      "Общее число отказов фоновых контекстов генерации.",
	})

	// MeshBuilds — количество сборок мешей по типу затенения.
	MeshBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxel",
		Name:      "mesh_builds_total",
		Help:      "Общее число сборок мешей чанков.",
	}, []string{"shading"})

	// Edits — количество модификаций вокселей по действию и результату.
	Edits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxel",
		Name:      "edits_total",
		Help:      "Общее число запросов модификации вокселей.",
	}, []string{"action", "result"})
)

func init() {
	prometheus.MustRegister(
		ChunksLoaded,
		ChunksPending,
		GenerationDuration,
		GenerationFailures,
		MeshBuilds,
		Edits,
	)
}
