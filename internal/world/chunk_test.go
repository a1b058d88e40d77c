package world

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
)

func TestChunk_BufferLayout(t *testing.T) {
	c := NewChunk(vec.Vec2{X: 2, Z: -3})

	// Буфер всегда ровно W*H*D
	require.Len(t, c.blocks, ChunkWidth*ChunkHeight*ChunkDepth, "длина буфера должна быть W*H*D")
	assert.Equal(t, vec.Vec2{X: 2, Z: -3}, c.Coords, "координаты должны сохраняться")

	// Порядок обхода: x быстрее всего, затем z, затем y
	c.Set(1, 0, 0, block.Stone)
	assert.Equal(t, block.Stone, c.blocks[1], "x должен быть самой быстрой осью")
	c.Set(0, 0, 1, block.Dirt)
	assert.Equal(t, block.Dirt, c.blocks[ChunkWidth], "z должен идти после x")
	c.Set(0, 1, 0, block.Sand)
	assert.Equal(t, block.Sand, c.blocks[ChunkWidth*ChunkDepth], "y должен быть самой медленной осью")
}

func TestChunk_GetSafe(t *testing.T) {
	c := NewChunk(vec.Vec2{})
	c.Set(0, 0, 0, block.Stone)

	assert.Equal(t, block.Stone, c.GetSafe(0, 0, 0), "внутри чанка GetSafe эквивалентен Get")
	assert.Equal(t, block.Air, c.GetSafe(-1, 0, 0), "за границей по X должен быть воздух")
	assert.Equal(t, block.Air, c.GetSafe(0, ChunkHeight, 0), "за границей по Y должен быть воздух")
	assert.Equal(t, block.Air, c.GetSafe(0, 0, ChunkDepth), "за границей по Z должен быть воздух")
}

func TestChunk_Install(t *testing.T) {
	c := NewChunk(vec.Vec2{})
	assert.False(t, c.IsGenerated(), "новый чанк не сгенерирован")

	blocks := make([]block.ID, ChunkWidth*ChunkHeight*ChunkDepth)
	blocks[0] = block.Grass
	c.install(blocks)

	assert.True(t, c.IsGenerated(), "после install чанк сгенерирован")
	assert.Equal(t, block.Grass, c.Get(0, 0, 0), "буфер должен быть установлен")
}

func TestChunk_MeshOwnership(t *testing.T) {
	c := NewChunk(vec.Vec2{})
	assert.False(t, c.HasMesh(), "новый чанк без меша")

	first := &mesh.Mesh{Positions: []float32{0, 0, 0}}
	c.setMesh(first)
	require.True(t, c.HasMesh(), "меш должен быть прикреплён")

	// Замена меша освобождает предыдущий
	second := &mesh.Mesh{}
	c.setMesh(second)
	assert.True(t, first.Disposed(), "старый меш должен быть освобождён при замене")
	assert.Same(t, second, c.Mesh(), "текущим должен стать новый меш")

	c.Dispose()
	assert.True(t, second.Disposed(), "Dispose должен освободить меш")
	assert.False(t, c.HasMesh(), "после Dispose меша нет")
	assert.Len(t, c.blocks, ChunkWidth*ChunkHeight*ChunkDepth, "буфер вокселей Dispose не трогает")
}

// Хэндлы чанка и меша утекают наружу, поэтому чтение меша и опрос
// Disposed должны быть безопасны параллельно с заменой меша.
func TestChunk_ConcurrentMeshAccess(t *testing.T) {
	c := NewChunk(vec.Vec2{})
	old := &mesh.Mesh{Positions: []float32{0, 0, 0}}
	c.setMesh(old)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.setMesh(&mesh.Mesh{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = c.Mesh()
			_ = c.HasMesh()
			_ = old.Disposed()
		}
	}()
	wg.Wait()

	assert.True(t, old.Disposed(), "первый меш освобождён после замен")
	assert.True(t, c.HasMesh(), "после серии замен у чанка остаётся меш")
}
