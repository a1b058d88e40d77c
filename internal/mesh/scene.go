package mesh

import "sync"

// Registry — потокобезопасная сцена без рендера: держит прикреплённые
// меши и агрегаты по ним. Рендерер подменяет её своей реализацией Scene.
type Registry struct {
	mu     sync.RWMutex
	meshes map[*Mesh]struct{}
}

func NewRegistry() *Registry {
	return &Registry{meshes: make(map[*Mesh]struct{})}
}

func (r *Registry) Add(m *Mesh) {
	if m == nil {
		return
	}
	r.mu.Lock()
	r.meshes[m] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) Remove(m *Mesh) {
	r.mu.Lock()
	delete(r.meshes, m)
	r.mu.Unlock()
}

// MeshCount возвращает число прикреплённых мешей.
func (r *Registry) MeshCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.meshes)
}

// QuadCount возвращает суммарное число квадр по всем мешам.
func (r *Registry) QuadCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for m := range r.meshes {
		total += m.QuadCount()
	}
	return total
}
