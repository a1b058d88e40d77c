package world

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationPool_CompletesWithToken(t *testing.T) {
	pool := NewGenerationPool(NewTerrainGenerator(7), 2)
	defer pool.Terminate()

	done := make(chan GenResult, 1)
	token := pool.Enqueue(1, -2, func(r GenResult) { done <- r })

	select {
	case res := <-done:
		assert.Equal(t, token, res.Token, "токен результата должен совпадать с токеном запроса")
		assert.Equal(t, 1, res.ChunkX, "координата X должна вернуться без изменений")
		assert.Equal(t, -2, res.ChunkZ, "координата Z должна вернуться без изменений")
		assert.NoError(t, res.Err, "генерация не должна завершаться ошибкой")
		assert.Len(t, res.Blocks, ChunkWidth*ChunkHeight*ChunkDepth, "буфер должен быть полным")
	case <-time.After(5 * time.Second):
		t.Fatal("результат генерации не пришёл за 5 секунд")
	}
}

func TestGenerationPool_AllTasksComplete(t *testing.T) {
	pool := NewGenerationPool(NewTerrainGenerator(7), 4)
	defer pool.Terminate()

	const total = 32
	var wg sync.WaitGroup
	var calls int32
	tokens := make(map[int]bool)
	var mu sync.Mutex

	wg.Add(total)
	for i := 0; i < total; i++ {
		i := i
		pool.Enqueue(i, 0, func(r GenResult) {
			atomic.AddInt32(&calls, 1)
			mu.Lock()
			tokens[r.ChunkX] = true
			mu.Unlock()
			wg.Done()
		})
		_ = i
	}

	waitTimeout(t, &wg, 10*time.Second)
	assert.Equal(t, int32(total), atomic.LoadInt32(&calls), "каждый колбэк должен быть вызван ровно один раз")
	mu.Lock()
	assert.Len(t, tokens, total, "все чанки должны быть сгенерированы")
	mu.Unlock()
}

func TestGenerationPool_ForgetDropsCallback(t *testing.T) {
	pool := NewGenerationPool(NewTerrainGenerator(7), 1)
	defer pool.Terminate()

	var forgotten int32
	var wg sync.WaitGroup
	wg.Add(1)

	// Первый запрос занимает единственный контекст, второй ждёт в очереди
	pool.Enqueue(0, 0, func(GenResult) { wg.Done() })
	token := pool.Enqueue(100, 100, func(GenResult) { atomic.AddInt32(&forgotten, 1) })
	pool.Forget(token)

	waitTimeout(t, &wg, 5*time.Second)
	// Даём забытому запросу время пройти через пул
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&forgotten), "колбэк после Forget не должен вызываться")
}

func TestGenerationPool_TerminateStopsCallbacks(t *testing.T) {
	pool := NewGenerationPool(NewTerrainGenerator(7), 1)

	var calls int32
	for i := 0; i < 16; i++ {
		pool.Enqueue(i, i, func(GenResult) { atomic.AddInt32(&calls, 1) })
	}
	pool.Terminate()
	after := atomic.LoadInt32(&calls)

	// После возврата Terminate счётчик заморожен
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls), "после Terminate колбэки вызываться не должны")

	// Повторный Terminate безопасен, новые запросы игнорируются
	pool.Terminate()
	pool.Enqueue(99, 99, func(GenResult) { atomic.AddInt32(&calls, 1) })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls), "Enqueue после Terminate должен игнорироваться")
}

func TestGenerationPool_PriorityGoesFirst(t *testing.T) {
	pool := NewGenerationPool(NewTerrainGenerator(7), 1)
	defer pool.Terminate()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	// Первый запрос занимает контекст; пока он выполняется, кладём
	// обычный запрос и приоритетный — приоритетный должен выйти раньше.
	wg.Add(3)
	record := func(id int) GenCallback {
		return func(GenResult) {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			wg.Done()
		}
	}

	pool.Enqueue(0, 0, record(0))
	pool.Enqueue(1, 0, record(1))
	pool.EnqueuePriority(2, 0, record(2))

	waitTimeout(t, &wg, 10*time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 3, "все три запроса должны завершиться")
	idx1, idx2 := indexOf(order, 1), indexOf(order, 2)
	assert.Less(t, idx2, idx1, "приоритетный запрос должен завершиться раньше обычного из очереди")
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("ожидание группы истекло")
	}
}
