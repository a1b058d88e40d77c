package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-engine/internal/api"
	"github.com/annel0/voxel-engine/internal/config"
	"github.com/annel0/voxel-engine/internal/eventbus"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/observability"
	"github.com/annel0/voxel-engine/internal/raycast"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/annel0/voxel-engine/internal/world/block"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или ENV VOXEL_CONFIG)")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("engine"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🧊 Запуск воксельного движка...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка чтения конфигурации: %v", err)
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
		cfg.Policy.CanPlace = true
		cfg.Policy.CanDestroy = true
	}

	seed := cfg.World.GetSeed()
	radius := cfg.World.GetRadius()
	workers := cfg.World.GetWorkers()
	logging.Info("📡 Конфигурация: seed=%d, radius=%d чанков, workers=%d", seed, radius, workers)

	// === ТЕЛЕМЕТРИЯ ===
	ctx := context.Background()
	if cfg.Telemetry.Enabled {
		service := cfg.Telemetry.Service
		if service == "" {
			service = "voxel-engine"
		}
		shutdown, err := observability.InitTelemetry(ctx, service)
		if err != nil {
			logging.Warn("Телеметрия недоступна: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Error("Ошибка остановки телеметрии: %v", err)
				}
			}()
			logging.Info("📈 OTLP-трассировка активирована (%s)", service)
		}
	}

	// === ШИНА СОБЫТИЙ ===
	bus := eventbus.NewMemoryBus(1024)
	if err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("Слушатель логов шины не запущен: %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus)
	busMetrics.Start()
	defer busMetrics.Stop()

	// === МИР ===
	logging.Debug("Создание мира и пула генерации...")
	scene := mesh.NewRegistry()
	w := world.NewWorld(seed, workers, scene)
	defer w.Terminate()

	policy := buildPolicy(&cfg.Policy)
	modifier := world.NewModifier(w, policy, bus)
	caster := raycast.New(w)

	// === ОТЛАДОЧНАЯ ПАНЕЛЬ ===
	debug := api.NewDebugServer(api.Config{
		Port:  cfg.Debug.GetPort(),
		World: w,
		Scene: scene,
		Bus:   bus,
	})
	debug.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := debug.Stop(shutdownCtx); err != nil {
			logging.Error("Ошибка остановки отладочной панели: %v", err)
		}
	}()

	// === СТАРТ ===
	spawnHeight := world.NewTerrainGenerator(seed).HeightAt(8, 8)
	observer := mgl32.Vec3{8, float32(spawnHeight + 2), 8}

	logging.Debug("Блокирующая генерация стартового чанка...")
	if err := w.Preload(observer); err != nil {
		logging.Error("❌ %v", err)
		log.Fatalf("❌ %v", err)
	}
	logging.Info("✅ Движок запущен: наблюдатель (%.0f, %.0f, %.0f)",
		observer.X(), observer.Y(), observer.Z())

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// === ГЛАВНЫЙ ЦИКЛ ===
	// Сценарий без рендера: наблюдатель медленно идёт вдоль +X,
	// мир стримится следом; изредка луч вниз-вперёд сносит блок.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	tick := 0
	for running := true; running; {
		select {
		case <-ticker.C:
			observer = observer.Add(mgl32.Vec3{0.25, 0, 0})
			w.Update(observer, radius)

			tick++
			if tick%40 == 0 {
				dir := mgl32.Vec3{0.5, -1, 0}
				if hit := caster.Cast(observer, dir, policy.MaxRange); hit != nil {
					if modifier.Destroy(observer, hit.Voxel) {
						logging.Debug("Снесён блок %d в (%d, %d, %d)",
							hit.Block, hit.Voxel.X, hit.Voxel.Y, hit.Voxel.Z)
					}
				}
			}
		case sig := <-sigCh:
			logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
			running = false
		}
	}

	// === GRACEFUL SHUTDOWN ===
	modifier.Flush()
	logging.Info("👋 Движок остановлен")
}

// buildPolicy переводит YAML-политику в рантайм-структуру Modifier.
func buildPolicy(pc *config.PolicyConfig) world.ModificationPolicy {
	allowed := make([]block.ID, 0, len(pc.AllowedTypes))
	for _, t := range pc.AllowedTypes {
		allowed = append(allowed, block.ID(t))
	}
	if len(allowed) == 0 {
		allowed = []block.ID{block.Grass, block.Dirt, block.Stone, block.Sand, block.Wood}
	}

	current := block.ID(pc.CurrentType)
	if block.IsAir(current) || !block.IsValid(current) {
		current = block.Stone
	}

	maxRange := float32(pc.MaxRange)
	if maxRange <= 0 {
		maxRange = 8
	}

	return world.ModificationPolicy{
		CanPlace:     pc.CanPlace,
		CanDestroy:   pc.CanDestroy,
		AllowedTypes: allowed,
		CurrentType:  current,
		MinRange:     float32(pc.MinRange),
		MaxRange:     maxRange,
		Cooldown:     pc.Cooldown(),
		BatchSize:    pc.BatchSize,
		BatchDelay:   pc.BatchDelay(),
		RebuildDelay: pc.RebuildDelay(),
	}
}
