package world

import (
	"time"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
)

// Типы событий, публикуемых движком в шину.
const (
	EventVoxelModified = "VoxelModified"
	EventChunkUpdated  = "ChunkUpdated"
)

// Действия над вокселями.
const (
	ActionPlace   = "place"
	ActionDestroy = "destroy"
)

// VoxelModifiedEvent — полезная нагрузка события правки вокселя.
type VoxelModifiedEvent struct {
	Action    string
	Position  vec.Vec3
	Block     block.ID
	Timestamp time.Time
}

// ChunkUpdatedEvent перечисляет чанки, меши которых будут перестроены.
type ChunkUpdatedEvent struct {
	Keys []vec.Vec2
}
