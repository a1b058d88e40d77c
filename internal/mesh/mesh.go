package mesh

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh содержит готовую геометрию поверхности одного чанка.
// Позиции заданы в локальных координатах чанка; мировое смещение
// выносится в Offset, чтобы не пересчитывать вершины при переносе.
type Mesh struct {
	Positions []float32 // xyz на вершину
	Normals   []float32 // xyz на вершину
	UVs       []float32 // uv на вершину
	Colors    []float32 // rgba на вершину (запечённый AO × цвет палитры)
	Indices   []uint32

	Offset mgl32.Vec3 // (chunkX*width, 0, chunkZ*depth)

	// Флаг атомарный: хэндл меша утекает за пределы владельца (сцена,
	// отладочные читатели), и Disposed может опрашиваться параллельно
	// с освобождением из горутины ремеша.
	disposed atomic.Bool
}

// VertexCount возвращает число вершин
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// QuadCount возвращает число квадов (4 вершины / 2 треугольника на квад)
func (m *Mesh) QuadCount() int {
	return len(m.Indices) / 6
}

// Empty сообщает, пуста ли геометрия (полностью пустой чанк)
func (m *Mesh) Empty() bool {
	return len(m.Indices) == 0
}

// Dispose освобождает буферы геометрии. Повторный вызов безопасен.
// Сами срезы после Dispose читать нельзя — их освобождает владелец.
func (m *Mesh) Dispose() {
	if m == nil || m.disposed.Swap(true) {
		return
	}
	m.Positions = nil
	m.Normals = nil
	m.UVs = nil
	m.Colors = nil
	m.Indices = nil
}

// Disposed сообщает, были ли буферы освобождены
func (m *Mesh) Disposed() bool {
	return m != nil && m.disposed.Load()
}

// Scene — потребляемый интерфейс графа сцены. Ядро вызывает только
// Add/Remove; всё остальное (камера, рендер, свет) — забота хоста.
type Scene interface {
	Add(m *Mesh)
	Remove(m *Mesh)
}
