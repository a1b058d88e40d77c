package world

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/observability"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
)

// preloadTimeout ограничивает блокирующее ожидание стартового чанка.
const preloadTimeout = 10 * time.Second

// World — менеджер чанков. Единственный писатель: все мутации происходят
// на вызывающей горутине Update/Preload, результаты фоновой генерации
// стекаются в канал completions и выгребаются в начале каждого Update.
type World struct {
	mu sync.RWMutex

	gen   *TerrainGenerator
	pool  *GenerationPool
	scene mesh.Scene

	chunks  map[vec.Vec2]*Chunk
	pending map[vec.Vec2]uuid.UUID

	completions chan GenResult
	preloaded   bool
}

// NewWorld создаёт мир с собственным пулом генерации.
func NewWorld(seed int64, workers int, scene mesh.Scene) *World {
	gen := NewTerrainGenerator(seed)
	w := &World{
		gen:         gen,
		pool:        NewGenerationPool(gen, workers),
		scene:       scene,
		chunks:      make(map[vec.Vec2]*Chunk),
		pending:     make(map[vec.Vec2]uuid.UUID),
		completions: make(chan GenResult, 256),
	}
	// Отказ генерации снимает ожидание: следующий Update перезапросит чанк.
	w.pool.SetFailureHandler(func(req GenRequest, err error) {
		w.queueCompletion(GenResult{ChunkX: req.ChunkX, ChunkZ: req.ChunkZ, Err: err})
	})
	return w
}

// queueCompletion никогда не блокирует горутину доставки пула: при полном
// буфере досылка уходит в отдельную горутину (порядок завершений и так
// не гарантирован).
func (w *World) queueCompletion(r GenResult) {
	select {
	case w.completions <- r:
	default:
		go func() { w.completions <- r }()
	}
}

// Pool открывает пул для отладочной статистики.
func (w *World) Pool() *GenerationPool { return w.pool }

// Preload блокирующе генерирует чанк наблюдателя с приоритетом.
// До его завершения Update бездействует.
func (w *World) Preload(pos mgl32.Vec3) error {
	key := WorldToChunk(int(floorf(pos.X())), int(floorf(pos.Z())))

	done := make(chan GenResult, 1)
	w.mu.Lock()
	token := w.pool.EnqueuePriority(key.X, key.Z, func(r GenResult) { done <- r })
	w.pending[key] = token
	w.mu.Unlock()

	select {
	case res := <-done:
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.pending, key)
		c := NewChunk(key)
		c.install(res.Blocks)
		w.chunks[key] = c
		w.createMeshIfReady(c)
		w.preloaded = true
		w.updateGauges()
		logging.Info("World: стартовый чанк (%d, %d) готов", key.X, key.Z)
		return nil
	case <-time.After(preloadTimeout):
		w.mu.Lock()
		delete(w.pending, key)
		w.mu.Unlock()
		w.pool.Forget(token)
		return fmt.Errorf("стартовый чанк (%d, %d) не сгенерирован за %s", key.X, key.Z, preloadTimeout)
	}
}

// Update — один кадр стриминга: выгрести завершения, выгрузить дальние
// чанки, дозапросить недостающие в квадратном радиусе от ближних к дальним.
func (w *World) Update(observerPos mgl32.Vec3, radius int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.drainCompletions()

	if !w.preloaded {
		return
	}

	center := WorldToChunk(int(floorf(observerPos.X())), int(floorf(observerPos.Z())))

	// Выгрузка: меш из сцены, буфер на выброс, ожидания забываются.
	for key, c := range w.chunks {
		if key.ChebyshevTo(center) > radius {
			if m := c.Mesh(); m != nil {
				w.scene.Remove(m)
			}
			c.Dispose()
			delete(w.chunks, key)
		}
	}
	for key, token := range w.pending {
		if key.ChebyshevTo(center) > radius {
			w.pool.Forget(token)
			delete(w.pending, key)
		}
	}

	// Дозапрос от центра к краю: ближние чанки появляются первыми.
	for d := 0; d <= radius; d++ {
		for _, key := range ring(center, d) {
			if _, ok := w.chunks[key]; ok {
				continue
			}
			if _, ok := w.pending[key]; ok {
				continue
			}
			w.requestChunk(key)
		}
	}

	w.updateGauges()
}

// ring перечисляет чанки на чебышёвском расстоянии d от центра.
func ring(center vec.Vec2, d int) []vec.Vec2 {
	if d == 0 {
		return []vec.Vec2{center}
	}
	keys := make([]vec.Vec2, 0, 8*d)
	for x := -d; x <= d; x++ {
		keys = append(keys, vec.Vec2{X: center.X + x, Z: center.Z - d})
		keys = append(keys, vec.Vec2{X: center.X + x, Z: center.Z + d})
	}
	for z := -d + 1; z <= d-1; z++ {
		keys = append(keys, vec.Vec2{X: center.X - d, Z: center.Z + z})
		keys = append(keys, vec.Vec2{X: center.X + d, Z: center.Z + z})
	}
	return keys
}

func (w *World) requestChunk(key vec.Vec2) {
	token := w.pool.Enqueue(key.X, key.Z, func(r GenResult) { w.queueCompletion(r) })
	w.pending[key] = token
}

// drainCompletions переносит готовые буферы в карту чанков на горутине
// вызывающего. Результаты уже выгруженных чанков отбрасываются.
func (w *World) drainCompletions() {
	for {
		select {
		case res := <-w.completions:
			key := vec.Vec2{X: res.ChunkX, Z: res.ChunkZ}
			if _, ok := w.pending[key]; !ok {
				continue
			}
			delete(w.pending, key)
			if res.Err != nil {
				continue
			}
			c := NewChunk(key)
			c.install(res.Blocks)
			w.chunks[key] = c
			w.createMeshIfReady(c)
			w.checkNeighborsForAO(key)
		default:
			return
		}
	}
}

var lateralOffsets = [4]vec.Vec2{{X: 1}, {X: -1}, {Z: 1}, {Z: -1}}

// neighborsReady: все четыре боковых соседа сгенерированы и не в ожидании.
func (w *World) neighborsReady(key vec.Vec2) bool {
	for _, off := range lateralOffsets {
		nk := key.Add(off)
		if _, pending := w.pending[nk]; pending {
			return false
		}
		nc, ok := w.chunks[nk]
		if !ok || !nc.IsGenerated() {
			return false
		}
	}
	return true
}

// createMeshIfReady строит меш чанка: затенённый, когда соседи готовы,
// иначе без затенения с последующим одноразовым апгрейдом.
func (w *World) createMeshIfReady(c *Chunk) {
	shaded := w.neighborsReady(c.Coords)
	m := BuildChunkMesh(c, w.blockAtLocked, shaded)
	if old := c.Mesh(); old != nil {
		w.scene.Remove(old)
	}
	c.setMesh(m)
	c.aoApplied = shaded
	w.scene.Add(m)
}

// checkNeighborsForAO перестраивает с затенением чанки, у которых только
// что закрылся последний боковой сосед. Апгрейд одноразовый.
func (w *World) checkNeighborsForAO(key vec.Vec2) {
	for _, off := range lateralOffsets {
		nk := key.Add(off)
		nc, ok := w.chunks[nk]
		if !ok || !nc.HasMesh() || nc.aoApplied {
			continue
		}
		if w.neighborsReady(nk) {
			w.createMeshIfReady(nc)
		}
	}
}

// RebuildChunk перестраивает меш существующего чанка (после правок).
func (w *World) RebuildChunk(key vec.Vec2) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.chunks[key]
	if !ok || !c.IsGenerated() {
		return
	}
	w.createMeshIfReady(c)
	c.dirty = false
}

// BlockAt возвращает блок по мировым координатам. ok=false — чанк не
// сгенерирован.
func (w *World) BlockAt(wx, wy, wz int) (block.ID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.blockAtLocked(wx, wy, wz)
}

func (w *World) blockAtLocked(wx, wy, wz int) (block.ID, bool) {
	if !InVerticalExtent(wy) {
		return block.Air, true
	}
	key := WorldToChunk(wx, wz)
	c, ok := w.chunks[key]
	if !ok || !c.IsGenerated() {
		return block.Air, false
	}
	lx, ly, lz := WorldToLocal(vec.Vec3{X: wx, Y: wy, Z: wz})
	return c.Get(lx, ly, lz), true
}

// SetBlock пишет блок по мировым координатам и помечает чанк грязным.
// Перестроение меша — забота вызывающего (см. Modifier).
func (w *World) SetBlock(p vec.Vec3, id block.ID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !InVerticalExtent(p.Y) {
		return false
	}
	key := WorldToChunk(p.X, p.Z)
	c, ok := w.chunks[key]
	if !ok || !c.IsGenerated() {
		return false
	}
	lx, ly, lz := WorldToLocal(p)
	c.Set(lx, ly, lz, id)
	c.dirty = true
	return true
}

// Chunk возвращает чанк по ключу (nil, если не загружен).
func (w *World) Chunk(key vec.Vec2) *Chunk {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chunks[key]
}

// ChunkCount / PendingCount — счётчики для отладочной панели.
func (w *World) ChunkCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.chunks)
}

func (w *World) PendingCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.pending)
}

// Terminate останавливает пул генерации.
func (w *World) Terminate() {
	w.pool.Terminate()
}

func (w *World) updateGauges() {
	observability.ChunksLoaded.Set(float64(len(w.chunks)))
	observability.ChunksPending.Set(float64(len(w.pending)))
}

func floorf(v float32) float32 {
	f := float32(int(v))
	if v < 0 && f != v {
		f--
	}
	return f
}
