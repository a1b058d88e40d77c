package world

import (
	"sync/atomic"

	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
)

// Размеры чанка и вертикальные константы мира.
const (
	ChunkWidth  = 16  // X
	ChunkHeight = 128 // Y
	ChunkDepth  = 16  // Z

	SeaLevel = 32 // ниже этой высоты пустые ячейки заливаются водой
	SnowLine = 96 // выше этой высоты поверхность покрыта снегом
)

// Chunk представляет участок мира ChunkWidth×ChunkHeight×ChunkDepth вокселей.
// Воксели хранятся в плотном буфере (x быстрее всего, затем z, затем y).
// Чанк владеет не более чем одним построенным мешем.
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка в мире (chunkX, chunkZ)

	blocks []block.ID

	generated bool // буфер заполнен результатом генерации
	dirty     bool // воксели менялись после последней сборки меша
	aoApplied bool // текущий меш построен с учётом соседей (AO)

	// Указатель атомарный: хэндл чанка утекает наружу (отладка, хост),
	// и меш может читаться параллельно с заменой из горутины ремеша.
	mesh atomic.Pointer[mesh.Mesh]
}

// NewChunk создаёт пустой чанк с указанными координатами.
// Длина буфера всегда ровно ChunkWidth*ChunkHeight*ChunkDepth.
func NewChunk(coords vec.Vec2) *Chunk {
	return &Chunk{
		Coords: coords,
		blocks: make([]block.ID, ChunkWidth*ChunkHeight*ChunkDepth),
	}
}

// index преобразует локальные координаты в смещение в буфере
func index(x, y, z int) int {
	return (y*ChunkDepth+z)*ChunkWidth + x
}

// Get возвращает воксель по локальным координатам без проверки границ.
// Контракт: 0 ≤ x < ChunkWidth, 0 ≤ y < ChunkHeight, 0 ≤ z < ChunkDepth;
// нарушение — ошибка программирования вызывающего кода.
func (c *Chunk) Get(x, y, z int) block.ID {
	return c.blocks[index(x, y, z)]
}

// GetSafe возвращает воксель, либо воздух для любых координат вне чанка.
// Используется на открытых гранях чанков.
func (c *Chunk) GetSafe(x, y, z int) block.ID {
	if x < 0 || x >= ChunkWidth || y < 0 || y >= ChunkHeight || z < 0 || z >= ChunkDepth {
		return block.Air
	}
	return c.blocks[index(x, y, z)]
}

// Set перезаписывает воксель без проверок и без перестроения меша.
// Пометка dirty и ремеш — ответственность Modifier.
func (c *Chunk) Set(x, y, z int, id block.ID) {
	c.blocks[index(x, y, z)] = id
}

// install устанавливает буфер, пришедший из фонового контекста генерации.
// Вызывается ровно один раз за время жизни чанка.
func (c *Chunk) install(blocks []block.ID) {
	c.blocks = blocks
	c.generated = true
}

// IsGenerated сообщает, заполнен ли буфер чанка
func (c *Chunk) IsGenerated() bool {
	return c.generated
}

// HasMesh сообщает, прикреплён ли к чанку построенный меш
func (c *Chunk) HasMesh() bool {
	return c.mesh.Load() != nil
}

// Mesh возвращает текущий меш чанка (nil, если меш не построен)
func (c *Chunk) Mesh() *mesh.Mesh {
	return c.mesh.Load()
}

// setMesh прикрепляет новый меш, полностью освобождая предыдущий.
func (c *Chunk) setMesh(m *mesh.Mesh) {
	if old := c.mesh.Swap(m); old != nil {
		old.Dispose()
	}
}

// Dispose освобождает ресурсы меша. Буфер вокселей не трогается.
func (c *Chunk) Dispose() {
	if old := c.mesh.Swap(nil); old != nil {
		old.Dispose()
	}
}
