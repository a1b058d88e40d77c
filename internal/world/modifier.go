package world

import (
	"context"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/annel0/voxel-engine/internal/eventbus"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/observability"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
)

// ModificationPolicy задаёт правила правки мира.
type ModificationPolicy struct {
	CanPlace     bool
	CanDestroy   bool
	AllowedTypes []block.ID
	CurrentType  block.ID
	MinRange     float32
	MaxRange     float32
	Cooldown     time.Duration
	BatchSize    int
	BatchDelay   time.Duration
	RebuildDelay time.Duration
}

// Allows сообщает, разрешён ли тип блока для установки.
func (p *ModificationPolicy) Allows(id block.ID) bool {
	for _, t := range p.AllowedTypes {
		if t == id {
			return true
		}
	}
	return false
}

// Edit — одна правка в составе батча.
type Edit struct {
	Action   string
	Position vec.Vec3
	Block    block.ID // только для ActionPlace
}

// Modifier применяет правки к миру: кулдаун, валидация, пометка грязных
// чанков и отложенное (с дебаунсом) перестроение мешей. Перестроение
// объединяет серию правок в одну сборку на чанк.
type Modifier struct {
	world *World
	bus   eventbus.EventBus

	mu             sync.Mutex
	policy         ModificationPolicy // под mu: внешний слой ввода меняет её на лету
	lastAction     time.Time
	pendingRebuild map[vec.Vec2]struct{}
	rebuildTimer   *time.Timer
}

// NewModifier создаёт модификатор. bus может быть nil, тогда события
// не публикуются.
func NewModifier(w *World, policy ModificationPolicy, bus eventbus.EventBus) *Modifier {
	return &Modifier{
		world:          w,
		policy:         policy,
		bus:            bus,
		pendingRebuild: make(map[vec.Vec2]struct{}),
	}
}

// Policy возвращает снимок действующей политики.
func (m *Modifier) Policy() ModificationPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.policy
	p.AllowedTypes = append([]block.ID(nil), m.policy.AllowedTypes...)
	return p
}

// SetPolicy заменяет политику целиком. Правка, начавшаяся до замены,
// довалидируется по снимку старой политики.
func (m *Modifier) SetPolicy(p ModificationPolicy) {
	p.AllowedTypes = append([]block.ID(nil), p.AllowedTypes...)
	m.mu.Lock()
	m.policy = p
	m.mu.Unlock()
}

// Place ставит блок текущего типа в target, если кулдаун истёк и правка
// валидна. origin — позиция наблюдателя для проверки дальности.
func (m *Modifier) Place(origin mgl32.Vec3, target vec.Vec3) bool {
	p := m.Policy()
	if !m.checkCooldown(ActionPlace) {
		return false
	}
	if !m.validPlacement(&p, origin, target) {
		observability.Edits.WithLabelValues(ActionPlace, "rejected").Inc()
		return false
	}
	m.apply(ActionPlace, target, p.CurrentType)
	return true
}

// Destroy стирает блок в target (ставит воздух) с теми же проверками.
func (m *Modifier) Destroy(origin mgl32.Vec3, target vec.Vec3) bool {
	p := m.Policy()
	if !m.checkCooldown(ActionDestroy) {
		return false
	}
	if !m.validDestroy(&p, origin, target) {
		observability.Edits.WithLabelValues(ActionDestroy, "rejected").Inc()
		return false
	}
	m.apply(ActionDestroy, target, block.Air)
	return true
}

// ApplyBatch применяет правки порциями BatchSize с паузой BatchDelay между
// порциями. Кулдаун и дальность на батч не действуют: батч — программный
// канал (скрипты, генерация строений). Невалидные цели пропускаются.
// Возвращает число применённых правок.
func (m *Modifier) ApplyBatch(edits []Edit) int {
	p := m.Policy()
	size := p.BatchSize
	if size < 1 {
		size = len(edits)
	}

	applied := 0
	for start := 0; start < len(edits); start += size {
		end := start + size
		if end > len(edits) {
			end = len(edits)
		}
		for _, e := range edits[start:end] {
			if m.applyBatchEdit(e) {
				applied++
			}
		}
		if end < len(edits) && p.BatchDelay > 0 {
			time.Sleep(p.BatchDelay)
		}
	}
	logging.Debug("Modifier: батч %d/%d правок применён", applied, len(edits))
	return applied
}

func (m *Modifier) applyBatchEdit(e Edit) bool {
	switch e.Action {
	case ActionPlace:
		id, known := m.world.BlockAt(e.Position.X, e.Position.Y, e.Position.Z)
		if !known || !block.IsAir(id) || !InVerticalExtent(e.Position.Y) || !block.IsValid(e.Block) || block.IsAir(e.Block) {
			observability.Edits.WithLabelValues(ActionPlace, "rejected").Inc()
			return false
		}
		m.apply(ActionPlace, e.Position, e.Block)
		return true
	case ActionDestroy:
		id, known := m.world.BlockAt(e.Position.X, e.Position.Y, e.Position.Z)
		if !known || block.IsAir(id) {
			observability.Edits.WithLabelValues(ActionDestroy, "rejected").Inc()
			return false
		}
		m.apply(ActionDestroy, e.Position, block.Air)
		return true
	default:
		return false
	}
}

// checkCooldown атомарно проверяет и сдвигает отметку последнего действия.
func (m *Modifier) checkCooldown(action string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if now.Sub(m.lastAction) < m.policy.Cooldown {
		observability.Edits.WithLabelValues(action, "cooldown").Inc()
		return false
	}
	m.lastAction = now
	return true
}

func (m *Modifier) validPlacement(p *ModificationPolicy, origin mgl32.Vec3, target vec.Vec3) bool {
	if !p.CanPlace || !p.Allows(p.CurrentType) {
		return false
	}
	if !InVerticalExtent(target.Y) || !inRange(p, origin, target) {
		return false
	}
	id, known := m.world.BlockAt(target.X, target.Y, target.Z)
	return known && block.IsAir(id)
}

func (m *Modifier) validDestroy(p *ModificationPolicy, origin mgl32.Vec3, target vec.Vec3) bool {
	if !p.CanDestroy {
		return false
	}
	if !InVerticalExtent(target.Y) || !inRange(p, origin, target) {
		return false
	}
	id, known := m.world.BlockAt(target.X, target.Y, target.Z)
	return known && !block.IsAir(id)
}

// inRange измеряет дистанцию до центра вокселя.
func inRange(p *ModificationPolicy, origin mgl32.Vec3, target vec.Vec3) bool {
	center := mgl32.Vec3{
		float32(target.X) + 0.5,
		float32(target.Y) + 0.5,
		float32(target.Z) + 0.5,
	}
	d := center.Sub(origin).Len()
	return d >= p.MinRange && d <= p.MaxRange
}

// apply выполняет уже провалидированную правку: мутация буфера, пометка
// затронутых чанков и публикация событий.
func (m *Modifier) apply(action string, target vec.Vec3, id block.ID) {
	if !m.world.SetBlock(target, id) {
		observability.Edits.WithLabelValues(action, "rejected").Inc()
		return
	}
	observability.Edits.WithLabelValues(action, "ok").Inc()

	keys := affectedChunks(target)
	m.scheduleRebuild(keys)
	m.publish(action, target, id, keys)
}

// affectedChunks: чанк правки плюс соседи, разделяющие боковую границу
// с изменённой ячейкой. Их меши зависят от этой ячейки через отсечение
// граней и затенение.
func affectedChunks(p vec.Vec3) []vec.Vec2 {
	key := WorldToChunk(p.X, p.Z)
	keys := []vec.Vec2{key}

	lx, _, lz := WorldToLocal(p)
	if lx == 0 {
		keys = append(keys, key.Add(vec.Vec2{X: -1}))
	}
	if lx == ChunkWidth-1 {
		keys = append(keys, key.Add(vec.Vec2{X: 1}))
	}
	if lz == 0 {
		keys = append(keys, key.Add(vec.Vec2{Z: -1}))
	}
	if lz == ChunkDepth-1 {
		keys = append(keys, key.Add(vec.Vec2{Z: 1}))
	}
	return keys
}

// scheduleRebuild копит ключи и перезапускает таймер дебаунса: серия
// правок порождает одну перестройку на чанк.
func (m *Modifier) scheduleRebuild(keys []vec.Vec2) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.pendingRebuild[k] = struct{}{}
	}
	if m.rebuildTimer != nil {
		m.rebuildTimer.Stop()
	}
	m.rebuildTimer = time.AfterFunc(m.policy.RebuildDelay, m.flushRebuilds)
}

func (m *Modifier) flushRebuilds() {
	m.mu.Lock()
	keys := make([]vec.Vec2, 0, len(m.pendingRebuild))
	for k := range m.pendingRebuild {
		keys = append(keys, k)
	}
	m.pendingRebuild = make(map[vec.Vec2]struct{})
	m.mu.Unlock()

	for _, k := range keys {
		m.world.RebuildChunk(k)
	}
}

// Flush немедленно перестраивает все накопленные чанки (для тестов и
// завершения работы).
func (m *Modifier) Flush() {
	m.mu.Lock()
	if m.rebuildTimer != nil {
		m.rebuildTimer.Stop()
		m.rebuildTimer = nil
	}
	m.mu.Unlock()
	m.flushRebuilds()
}

func (m *Modifier) publish(action string, target vec.Vec3, id block.ID, keys []vec.Vec2) {
	if m.bus == nil {
		return
	}
	now := time.Now().UTC()
	_ = m.bus.Publish(context.Background(), &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: now,
		Source:    "modifier",
		EventType: EventVoxelModified,
		Priority:  3,
		Payload: VoxelModifiedEvent{
			Action:    action,
			Position:  target,
			Block:     id,
			Timestamp: now,
		},
	})
	_ = m.bus.Publish(context.Background(), &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: now,
		Source:    "modifier",
		EventType: EventChunkUpdated,
		Priority:  2,
		Payload:   ChunkUpdatedEvent{Keys: keys},
	})
}
