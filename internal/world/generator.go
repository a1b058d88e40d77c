package world

import (
	"github.com/aquilax/go-perlin"

	"github.com/annel0/voxel-engine/internal/world/block"
)

// Параметры фрактального шума рельефа.
const (
	noiseOctaves   = 5
	noiseBaseFreq  = 1.0 / 256.0 // частота первой октавы (мировые координаты)
	noisePersist   = 0.5         // амплитуда каждой следующей октавы
	noiseLacunar   = 2.0         // частота каждой следующей октавы
	surfaceSoilCap = 3           // глубина дёрна/земли под поверхностью
)

// TerrainGenerator — чистая детерминированная функция (seed, x, z) → колонка блоков.
// Экземпляр безопасен для одновременного чтения из нескольких фоновых
// контекстов: после создания состояние не меняется.
type TerrainGenerator struct {
	seed  int64
	noise *perlin.Perlin
}

// NewTerrainGenerator создаёт генератор рельефа с указанным сидом
func NewTerrainGenerator(seed int64) *TerrainGenerator {
	return &TerrainGenerator{
		seed:  seed,
		noise: perlin.NewPerlin(2.0, 2.0, 3, seed),
	}
}

// Seed возвращает сид генератора
func (g *TerrainGenerator) Seed() int64 {
	return g.seed
}

// fractalNoise суммирует пять октав шума Перлина в диапазон [-1, 1].
func (g *TerrainGenerator) fractalNoise(x, z float64) float64 {
	var sum, norm float64
	amp := 1.0
	freq := noiseBaseFreq
	for o := 0; o < noiseOctaves; o++ {
		sum += amp * g.noise.Noise2D(x*freq, z*freq)
		norm += amp
		amp *= noisePersist
		freq *= noiseLacunar
	}
	v := sum / norm
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// remapHeight переводит шум [-1, 1] в долю высоты мира [0, 1] кусочной кривой:
// низкие значения сжимаются в низинную полосу (океаны), средние растягиваются
// в доминирующую полосу суши, высокие сжимаются в горную полосу.
func remapHeight(v float64) float64 {
	switch {
	case v < -0.4:
		// [-1, -0.4) → [0, 0.12)
		return (v + 1.0) / 0.6 * 0.12
	case v < 0.35:
		// [-0.4, 0.35) → [0.12, 0.55)
		return 0.12 + (v+0.4)/0.75*0.43
	default:
		// [0.35, 1] → [0.55, 1.0]
		return 0.55 + (v-0.35)/0.65*0.45
	}
}

// HeightAt возвращает высоту рельефа (число сплошных блоков) для мировой колонки
func (g *TerrainGenerator) HeightAt(wx, wz int) int {
	frac := remapHeight(g.fractalNoise(float64(wx), float64(wz)))
	h := int(frac * float64(ChunkHeight-1))
	if h < 1 {
		h = 1
	}
	if h > ChunkHeight-1 {
		h = ChunkHeight - 1
	}
	return h
}

// surfaceBlock выбирает тип верхнего блока колонки по её высоте.
func surfaceBlock(height int) block.ID {
	top := height - 1
	switch {
	case top >= SnowLine:
		return block.Snow
	case top <= SeaLevel+1:
		return block.Sand
	default:
		return block.Grass
	}
}

// Generate заполняет буфер чанка. Функция чистая: одинаковые
// (seed, chunkX, chunkZ) всегда дают одинаковый буфер.
func (g *TerrainGenerator) Generate(cx, cz int) []block.ID {
	blocks := make([]block.ID, ChunkWidth*ChunkHeight*ChunkDepth)

	baseX := cx * ChunkWidth
	baseZ := cz * ChunkDepth

	for z := 0; z < ChunkDepth; z++ {
		for x := 0; x < ChunkWidth; x++ {
			height := g.HeightAt(baseX+x, baseZ+z)
			surface := surfaceBlock(height)

			// Сплошной проход: тип по глубине от поверхности.
			for y := 0; y < height; y++ {
				depth := height - 1 - y
				var id block.ID
				switch {
				case depth == 0:
					id = surface
				case depth <= surfaceSoilCap:
					id = block.Dirt
				default:
					id = block.Stone
				}
				blocks[index(x, y, z)] = id
			}

			// Водный проход сверху вниз: пустые ячейки ниже уровня моря.
			for y := SeaLevel - 1; y >= 0; y-- {
				i := index(x, y, z)
				if blocks[i] != block.Air {
					break
				}
				blocks[i] = block.Water
			}
		}
	}

	return blocks
}
