package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/observability"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
)

// BlockLookup возвращает блок по мировым координатам. ok=false означает,
// что чанк не сгенерирован: для отсечения такая клетка считается пустой,
// для затенения — не перекрывающей свет.
type BlockLookup func(wx, wy, wz int) (block.ID, bool)

// faceDef описывает одну из шести граней единичного куба: нормаль,
// четыре угла против часовой стрелки (снаружи) и две касательные оси
// для UV и выборки соседей при затенении.
type faceDef struct {
	normal  vec.Vec3
	corners [4]vec.Vec3
	uAxis   int
	vAxis   int
}

var faceDefs = [6]faceDef{
	{ // +X
		normal:  vec.Vec3{X: 1},
		corners: [4]vec.Vec3{{X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 1}, {X: 1, Y: 0, Z: 1}},
		uAxis:   1, vAxis: 2,
	},
	{ // -X
		normal:  vec.Vec3{X: -1},
		corners: [4]vec.Vec3{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 0}},
		uAxis:   1, vAxis: 2,
	},
	{ // +Y
		normal:  vec.Vec3{Y: 1},
		corners: [4]vec.Vec3{{X: 0, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 0}},
		uAxis:   0, vAxis: 2,
	},
	{ // -Y
		normal:  vec.Vec3{Y: -1},
		corners: [4]vec.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 1}},
		uAxis:   0, vAxis: 2,
	},
	{ // +Z
		normal:  vec.Vec3{Z: 1},
		corners: [4]vec.Vec3{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1}},
		uAxis:   0, vAxis: 1,
	},
	{ // -Z
		normal:  vec.Vec3{Z: -1},
		corners: [4]vec.Vec3{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 1, Y: 0, Z: 0}},
		uAxis:   0, vAxis: 1,
	},
}

func axisComponent(v vec.Vec3, axis int) int {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func axisUnit(axis, sign int) vec.Vec3 {
	switch axis {
	case 0:
		return vec.Vec3{X: sign}
	case 1:
		return vec.Vec3{Y: sign}
	default:
		return vec.Vec3{Z: sign}
	}
}

// BuildChunkMesh строит меш чанка: по одной квадре на каждую видимую
// грань каждого непустого вокселя. shaded=false строит меш без затенения
// (когда боковые соседи ещё не сгенерированы).
func BuildChunkMesh(c *Chunk, lookup BlockLookup, shaded bool) *mesh.Mesh {
	ox, oz := ChunkOrigin(c.Coords)
	m := &mesh.Mesh{
		Offset: mgl32.Vec3{float32(ox), 0, float32(oz)},
	}

	for y := 0; y < ChunkHeight; y++ {
		for z := 0; z < ChunkDepth; z++ {
			for x := 0; x < ChunkWidth; x++ {
				id := c.Get(x, y, z)
				if block.IsAir(id) {
					continue
				}
				def, ok := block.Get(id)
				if !ok {
					continue
				}
				wx, wz := ox+x, oz+z
				for f := range faceDefs {
					fd := &faceDefs[f]
					nx, ny, nz := wx+fd.normal.X, y+fd.normal.Y, wz+fd.normal.Z
					if !faceVisible(def, lookup, nx, ny, nz) {
						continue
					}
					emitFace(m, fd, x, y, z, wx, wz, &def, lookup, shaded)
				}
			}
		}
	}

	if shaded {
		observability.MeshBuilds.WithLabelValues("ao").Inc()
	} else {
		observability.MeshBuilds.WithLabelValues("flat").Inc()
	}
	return m
}

// faceVisible: грань рисуется против пустоты, а для непрозрачного блока —
// ещё и против полупрозрачного, чтобы дно водоёма не исчезало под водой.
// Полупрозрачный против полупрозрачного не рисуется.
func faceVisible(self block.Def, lookup BlockLookup, nx, ny, nz int) bool {
	nb, known := lookup(nx, ny, nz)
	if !known || block.IsAir(nb) {
		return true
	}
	nbDef, _ := block.Get(nb)
	return !self.Translucent && nbDef.Translucent
}

func emitFace(m *mesh.Mesh, fd *faceDef, x, y, z, wx, wz int, def *block.Def, lookup BlockLookup, shaded bool) {
	base := uint32(len(m.Positions) / 3)

	var shades [4]float32
	for i, corner := range fd.corners {
		px := float32(x + corner.X)
		py := float32(y + corner.Y)
		pz := float32(z + corner.Z)
		m.Positions = append(m.Positions, px, py, pz)
		m.Normals = append(m.Normals,
			float32(fd.normal.X), float32(fd.normal.Y), float32(fd.normal.Z))
		m.UVs = append(m.UVs,
			float32(axisComponent(corner, fd.uAxis)),
			float32(axisComponent(corner, fd.vAxis)))

		shade := float32(1.0)
		if shaded {
			shade = cornerShade(fd, corner, wx, y, wz, lookup)
		}
		shades[i] = shade
		m.Colors = append(m.Colors,
			def.Color[0]*shade, def.Color[1]*shade, def.Color[2]*shade, def.Color[3])
	}

	// Квадра режется по диагонали с меньшим перепадом затенения, иначе
	// интерполяция даёт косой артефакт на границах теней.
	d02 := abs32(shades[0] - shades[2])
	d13 := abs32(shades[1] - shades[3])
	if d02 <= d13 {
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	} else {
		m.Indices = append(m.Indices, base+1, base+2, base+3, base+1, base+3, base)
	}
}

// cornerShade считает перекрытие угла тремя клетками слоя перед гранью:
// двумя боковыми и диагональной. Каждая непрозрачная клетка снимает 0.25.
func cornerShade(fd *faceDef, corner vec.Vec3, wx, y, wz int, lookup BlockLookup) float32 {
	du := 2*axisComponent(corner, fd.uAxis) - 1
	dv := 2*axisComponent(corner, fd.vAxis) - 1

	base := vec.Vec3{X: wx, Y: y, Z: wz}.Add(fd.normal)
	su := axisUnit(fd.uAxis, du)
	sv := axisUnit(fd.vAxis, dv)

	count := 0
	for _, p := range [3]vec.Vec3{base.Add(su), base.Add(sv), base.Add(su).Add(sv)} {
		if id, known := lookup(p.X, p.Y, p.Z); known && block.IsOpaque(id) {
			count++
		}
	}
	return 1.0 - 0.25*float32(count)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
