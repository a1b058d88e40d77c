package world

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/vec"
)

// testScene считает прикрепления и открепления мешей.
type testScene struct {
	mu      sync.Mutex
	added   int
	removed int
}

func (s *testScene) Add(*mesh.Mesh) {
	s.mu.Lock()
	s.added++
	s.mu.Unlock()
}

func (s *testScene) Remove(*mesh.Mesh) {
	s.mu.Lock()
	s.removed++
	s.mu.Unlock()
}

func (s *testScene) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.added, s.removed
}

// pump крутит Update, пока условие не выполнится или не истечёт срок.
func pump(t *testing.T, w *World, pos mgl32.Vec3, radius int, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		w.Update(pos, radius)
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("условие не выполнилось до истечения срока")
}

func TestWorld_PreloadSpawnChunk(t *testing.T) {
	scene := &testScene{}
	w := NewWorld(100, 2, scene)
	defer w.Terminate()

	require.NoError(t, w.Preload(mgl32.Vec3{8, 80, 8}), "стартовый чанк должен сгенерироваться")

	c := w.Chunk(vec.Vec2{X: 0, Z: 0})
	require.NotNil(t, c, "чанк наблюдателя должен быть загружен")
	assert.True(t, c.IsGenerated(), "чанк наблюдателя должен быть сгенерирован")
	assert.True(t, c.HasMesh(), "у чанка наблюдателя должен быть меш")
	assert.False(t, c.aoApplied, "без соседей меш строится без затенения")
	assert.Equal(t, 1, w.ChunkCount(), "до первого Update загружен ровно один чанк")
}

func TestWorld_UpdateBeforePreloadIsNoop(t *testing.T) {
	scene := &testScene{}
	w := NewWorld(100, 2, scene)
	defer w.Terminate()

	w.Update(mgl32.Vec3{8, 80, 8}, 2)
	assert.Zero(t, w.ChunkCount(), "Update до Preload не должен загружать чанки")
	assert.Zero(t, w.PendingCount(), "Update до Preload не должен ставить запросы")
}

func TestWorld_StreamingFillsRadius(t *testing.T) {
	scene := &testScene{}
	w := NewWorld(100, 4, scene)
	defer w.Terminate()

	pos := mgl32.Vec3{8, 80, 8}
	require.NoError(t, w.Preload(pos), "стартовый чанк должен сгенерироваться")

	// Радиус 2 — квадрат 5×5 вокруг чанка (0,0)
	pump(t, w, pos, 2, func() bool { return w.ChunkCount() == 25 && w.PendingCount() == 0 })

	for x := -2; x <= 2; x++ {
		for z := -2; z <= 2; z++ {
			c := w.Chunk(vec.Vec2{X: x, Z: z})
			require.NotNil(t, c, "чанк (%d,%d) должен быть загружен", x, z)
			assert.True(t, c.IsGenerated(), "чанк (%d,%d) должен быть сгенерирован", x, z)
			assert.True(t, c.HasMesh(), "чанк (%d,%d) должен иметь меш", x, z)
		}
	}

	// Центр окружён со всех сторон — его меш обязан получить затенение
	pump(t, w, pos, 2, func() bool { return w.Chunk(vec.Vec2{}).aoApplied })

	// Угловой чанк окружён не полностью — остаётся без затенения
	corner := w.Chunk(vec.Vec2{X: 2, Z: 2})
	require.NotNil(t, corner, "угловой чанк должен быть загружен")
	assert.False(t, corner.aoApplied, "угловой чанк не должен получить затенение без всех соседей")
}

func TestWorld_UnloadOutsideRadius(t *testing.T) {
	scene := &testScene{}
	w := NewWorld(100, 4, scene)
	defer w.Terminate()

	pos := mgl32.Vec3{8, 80, 8}
	require.NoError(t, w.Preload(pos), "стартовый чанк должен сгенерироваться")
	pump(t, w, pos, 1, func() bool { return w.ChunkCount() == 9 && w.PendingCount() == 0 })

	// Перемещение на 10 чанков в сторону: старая зона полностью вне радиуса
	far := mgl32.Vec3{8 + 10*ChunkWidth, 80, 8}
	pump(t, w, far, 1, func() bool {
		return w.Chunk(vec.Vec2{}) == nil && w.ChunkCount() == 9 && w.PendingCount() == 0
	})

	assert.Nil(t, w.Chunk(vec.Vec2{X: 0, Z: 0}), "старый чанк должен быть выгружен")
	require.NotNil(t, w.Chunk(vec.Vec2{X: 10, Z: 0}), "новый чанк наблюдателя должен быть загружен")

	_, removed := scene.counts()
	assert.GreaterOrEqual(t, removed, 9, "меши выгруженных чанков должны покинуть сцену")
}

func TestWorld_BlockAt(t *testing.T) {
	scene := &testScene{}
	w := NewWorld(100, 2, scene)
	defer w.Terminate()

	pos := mgl32.Vec3{8, 80, 8}
	require.NoError(t, w.Preload(pos), "стартовый чанк должен сгенерироваться")

	// Дно загруженного чанка всегда сплошное
	id, known := w.BlockAt(8, 0, 8)
	assert.True(t, known, "ячейка загруженного чанка должна быть известна")
	assert.False(t, id == 0, "дно мира не должно быть воздухом")

	// Вне вертикальных пределов — известный воздух
	id, known = w.BlockAt(8, ChunkHeight, 8)
	assert.True(t, known, "выше мира — известный воздух")
	assert.Zero(t, id, "выше мира должен быть воздух")

	// Незагруженный чанк неизвестен
	_, known = w.BlockAt(10000, 10, 10000)
	assert.False(t, known, "ячейка незагруженного чанка должна быть неизвестна")
}

func TestWorld_SetBlockMarksDirty(t *testing.T) {
	scene := &testScene{}
	w := NewWorld(100, 2, scene)
	defer w.Terminate()

	require.NoError(t, w.Preload(mgl32.Vec3{8, 80, 8}), "стартовый чанк должен сгенерироваться")

	p := vec.Vec3{X: 5, Y: 120, Z: 5}
	require.True(t, w.SetBlock(p, 3), "запись в загруженный чанк должна удаваться")

	c := w.Chunk(vec.Vec2{})
	assert.True(t, c.dirty, "чанк после записи должен быть помечен грязным")
	id, _ := w.BlockAt(5, 120, 5)
	assert.EqualValues(t, 3, id, "записанный блок должен читаться обратно")

	// Запись вне мира и в незагруженный чанк отклоняется
	assert.False(t, w.SetBlock(vec.Vec3{X: 5, Y: -1, Z: 5}, 3), "запись ниже мира должна отклоняться")
	assert.False(t, w.SetBlock(vec.Vec3{X: 9999, Y: 10, Z: 9999}, 3), "запись в незагруженный чанк должна отклоняться")
}

func TestWorld_RebuildChunkReplacesMesh(t *testing.T) {
	scene := &testScene{}
	w := NewWorld(100, 2, scene)
	defer w.Terminate()

	require.NoError(t, w.Preload(mgl32.Vec3{8, 80, 8}), "стартовый чанк должен сгенерироваться")

	c := w.Chunk(vec.Vec2{})
	old := c.Mesh()
	require.NotNil(t, old, "до перестроения меш должен существовать")

	require.True(t, w.SetBlock(vec.Vec3{X: 5, Y: 120, Z: 5}, 3), "запись должна удаваться")
	w.RebuildChunk(vec.Vec2{})

	assert.True(t, old.Disposed(), "старый меш должен быть освобождён")
	assert.NotSame(t, old, c.Mesh(), "меш должен быть заменён новым")
	assert.False(t, c.dirty, "после перестроения чанк чистый")
}
