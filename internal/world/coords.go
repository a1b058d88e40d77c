package world

import "github.com/annel0/voxel-engine/internal/vec"

// Соответствие мир↔чанк↔локаль через деление с округлением вниз.
// Одни и те же функции используют генерация, мешер, рейкаст и модификатор —
// иначе на границах чанков появляются швы.

// WorldToChunk возвращает координаты чанка, содержащего мировую колонку (wx, wz)
func WorldToChunk(wx, wz int) vec.Vec2 {
	return vec.Vec2{
		X: vec.FloorDiv(wx, ChunkWidth),
		Z: vec.FloorDiv(wz, ChunkDepth),
	}
}

// WorldToLocal возвращает локальные координаты вокселя внутри его чанка
func WorldToLocal(p vec.Vec3) (int, int, int) {
	return vec.FloorMod(p.X, ChunkWidth), p.Y, vec.FloorMod(p.Z, ChunkDepth)
}

// ChunkOrigin возвращает мировые координаты угла чанка (минимальные X и Z)
func ChunkOrigin(c vec.Vec2) (int, int) {
	return c.X * ChunkWidth, c.Z * ChunkDepth
}

// LocalToWorld восстанавливает мировые координаты вокселя из чанковых и локальных
func LocalToWorld(c vec.Vec2, lx, ly, lz int) vec.Vec3 {
	return vec.Vec3{
		X: c.X*ChunkWidth + lx,
		Y: ly,
		Z: c.Z*ChunkDepth + lz,
	}
}

// InVerticalExtent проверяет, лежит ли высота в пределах мира
func InVerticalExtent(y int) bool {
	return y >= 0 && y < ChunkHeight
}
