// Package raycast реализует выбор вокселя лучом: грубый марш с фиксированным
// шагом собирает кандидатов, точный slab-тест по единичному кубу даёт
// дистанцию входа и грань.
package raycast

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
)

const (
	marchStep = 0.1
	axisEps   = 1e-7
)

// VoxelSource отдаёт блок по мировым координатам. ok=false означает
// незагруженный чанк; такие ячейки для луча прозрачны.
type VoxelSource interface {
	BlockAt(wx, wy, wz int) (block.ID, bool)
}

// Face — грань куба, через которую луч вошёл в воксель.
type Face uint8

const (
	FaceNone Face = iota
	FaceNegX
	FacePosX
	FaceNegY
	FacePosY
	FaceNegZ
	FacePosZ
)

// Normal возвращает внешнюю нормаль грани.
func (f Face) Normal() vec.Vec3 {
	switch f {
	case FaceNegX:
		return vec.Vec3{X: -1}
	case FacePosX:
		return vec.Vec3{X: 1}
	case FaceNegY:
		return vec.Vec3{Y: -1}
	case FacePosY:
		return vec.Vec3{Y: 1}
	case FaceNegZ:
		return vec.Vec3{Z: -1}
	case FacePosZ:
		return vec.Vec3{Z: 1}
	}
	return vec.Vec3{}
}

// Hit — результат попадания луча.
type Hit struct {
	Point    mgl32.Vec3 // точка входа на грани
	Voxel    vec.Vec3   // координаты вокселя
	Face     Face       // грань входа
	Normal   vec.Vec3   // внешняя нормаль грани входа
	Adjacent vec.Vec3   // ячейка для установки блока (Voxel + Normal)
	Block    block.ID
	Distance float32
}

// Raycaster выпускает лучи в источник вокселей.
type Raycaster struct {
	source VoxelSource
}

func New(source VoxelSource) *Raycaster {
	return &Raycaster{source: source}
}

// Cast пускает луч из origin вдоль dir на maxDist и возвращает ближайшее
// попадание в непустой воксель, либо nil.
func (r *Raycaster) Cast(origin, dir mgl32.Vec3, maxDist float32) *Hit {
	if dir.Len() < axisEps || maxDist <= 0 {
		return nil
	}
	dir = dir.Normalize()

	seen := make(map[vec.Vec3]struct{})
	var best *Hit

	for t := float32(0); t <= maxDist; t += marchStep {
		p := origin.Add(dir.Mul(t))
		v := vec.Vec3{
			X: floorInt(p.X()),
			Y: floorInt(p.Y()),
			Z: floorInt(p.Z()),
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}

		id, known := r.source.BlockAt(v.X, v.Y, v.Z)
		if !known || block.IsAir(id) {
			continue
		}

		if hit := intersectCube(origin, dir, v, maxDist); hit != nil {
			hit.Block = id
			if best == nil || hit.Distance < best.Distance {
				best = hit
			}
		}
	}
	return best
}

// intersectCube — slab-тест луча против куба [v, v+1). Возвращает nil,
// если луч куб не пересекает в пределах maxDist.
func intersectCube(origin, dir mgl32.Vec3, v vec.Vec3, maxDist float32) *Hit {
	lo := [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
	hi := [3]float32{lo[0] + 1, lo[1] + 1, lo[2] + 1}

	tMin := float32(0)
	tMax := maxDist
	entryAxis := -1
	entrySign := float32(0)

	for axis := 0; axis < 3; axis++ {
		o, d := origin[axis], dir[axis]
		if abs32(d) < axisEps {
			// Луч параллелен паре плоскостей: вне слоя пересечения нет.
			if o < lo[axis] || o > hi[axis] {
				return nil
			}
			continue
		}
		t1 := (lo[axis] - o) / d
		t2 := (hi[axis] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
			entryAxis = axis
			entrySign = d
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return nil
		}
	}

	if entryAxis < 0 {
		// Старт внутри куба: грани входа нет.
		return nil
	}

	var face Face
	switch entryAxis {
	case 0:
		face = FacePosX
		if entrySign > 0 {
			face = FaceNegX
		}
	case 1:
		face = FacePosY
		if entrySign > 0 {
			face = FaceNegY
		}
	case 2:
		face = FacePosZ
		if entrySign > 0 {
			face = FaceNegZ
		}
	}

	normal := face.Normal()
	return &Hit{
		Point:    origin.Add(dir.Mul(tMin)),
		Voxel:    v,
		Face:     face,
		Normal:   normal,
		Adjacent: v.Add(normal),
		Distance: tMin,
	}
}

func floorInt(v float32) int {
	i := int(v)
	if v < 0 && float32(i) != v {
		i--
	}
	return i
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
