package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMesh_Counts(t *testing.T) {
	m := &Mesh{}
	assert.True(t, m.Empty(), "новый меш пуст")
	assert.Zero(t, m.VertexCount(), "в пустом меше нет вершин")

	// Одна квадра: 4 вершины, 6 индексов
	m.Positions = make([]float32, 4*3)
	m.Indices = make([]uint32, 6)

	assert.Equal(t, 4, m.VertexCount(), "число вершин считается по позициям")
	assert.Equal(t, 1, m.QuadCount(), "число квадр считается по индексам")
	assert.False(t, m.Empty(), "меш с квадрой не пуст")
}

func TestMesh_Dispose(t *testing.T) {
	m := &Mesh{
		Positions: []float32{0, 0, 0},
		Normals:   []float32{0, 1, 0},
		UVs:       []float32{0, 0},
		Colors:    []float32{1, 1, 1, 1},
		Indices:   []uint32{0},
	}

	m.Dispose()
	assert.True(t, m.Disposed(), "после Dispose меш помечен освобождённым")
	assert.Nil(t, m.Positions, "буферы должны быть отпущены")
	assert.Nil(t, m.Indices, "индексы должны быть отпущены")

	// Повторный Dispose безопасен
	m.Dispose()
	assert.True(t, m.Disposed(), "повторный Dispose не ломает состояние")
}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	assert.Zero(t, r.MeshCount(), "новая сцена пуста")

	a := &Mesh{Indices: make([]uint32, 12)} // 2 квадры
	b := &Mesh{Indices: make([]uint32, 6)}  // 1 квадра
	r.Add(a)
	r.Add(b)
	r.Add(nil) // nil игнорируется
	r.Add(a)   // повторное добавление не дублирует

	assert.Equal(t, 2, r.MeshCount(), "в сцене два меша")
	assert.Equal(t, 3, r.QuadCount(), "квадры суммируются по мешам")

	r.Remove(a)
	assert.Equal(t, 1, r.MeshCount(), "после удаления остался один меш")
	r.Remove(a) // повторное удаление безвредно
	assert.Equal(t, 1, r.MeshCount(), "повторное удаление ничего не меняет")
}
