package world

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/observability"
	"github.com/annel0/voxel-engine/internal/world/block"
)

// GenRequest — запрос фоновой генерации чанка.
// Token связывает ответ с запросом; порядок завершения не гарантируется.
type GenRequest struct {
	ChunkX int
	ChunkZ int
	Seed   int64
	Token  uuid.UUID
}

// GenResult — ответ фонового контекста генерации.
type GenResult struct {
	Token  uuid.UUID
	ChunkX int
	ChunkZ int
	Blocks []block.ID
	Err    error
}

// GenCallback вызывается не более одного раза для успешного результата.
type GenCallback func(GenResult)

// FailureHandler уведомляет владельца пула об отказе генерации.
// Колбэк задачи при отказе не вызывается никогда.
type FailureHandler func(GenRequest, error)

// GenerationPool — фиксированный набор параллельных фоновых контекстов
// генерации. Связь только через передачу сообщений: запрос входит,
// помеченный токеном результат выходит. Главный цикл никогда не
// блокируется на ожидании генерации.
type GenerationPool struct {
	gen     *TerrainGenerator
	workers int

	mu         sync.Mutex
	queue      []GenRequest // FIFO; приоритетные запросы вставляются в начало
	callbacks  map[uuid.UUID]GenCallback
	terminated bool

	// deliverMu сериализует доставку результатов; Terminate берёт его,
	// чтобы дождаться колбэка, выполняющегося в этот момент.
	deliverMu sync.Mutex

	onFailure FailureHandler

	dispatch chan GenRequest
	results  chan GenResult
	notify   chan struct{}
	quit     chan struct{}
	stopOnce sync.Once

	tracer trace.Tracer
}

// NewGenerationPool создаёт пул с указанным числом фоновых контекстов.
func NewGenerationPool(gen *TerrainGenerator, workers int) *GenerationPool {
	if workers < 1 {
		workers = 1
	}

	p := &GenerationPool{
		gen:       gen,
		workers:   workers,
		callbacks: make(map[uuid.UUID]GenCallback),
		dispatch:  make(chan GenRequest),
		results:   make(chan GenResult, workers*2),
		notify:    make(chan struct{}, 1),
		quit:      make(chan struct{}),
		tracer:    otel.Tracer("voxel-engine/generation"),
	}

	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	go p.dispatchLoop()
	go p.resultLoop()

	logging.Debug("GenerationPool: запущено %d фоновых контекстов", workers)
	return p
}

// SetFailureHandler задаёт обработчик отказов генерации (см. FailureHandler).
func (p *GenerationPool) SetFailureHandler(h FailureHandler) {
	p.mu.Lock()
	p.onFailure = h
	p.mu.Unlock()
}

// Enqueue добавляет запрос в конец очереди (или немедленно отдаёт его
// свободному контексту) и возвращает корреляционный токен.
func (p *GenerationPool) Enqueue(cx, cz int, cb GenCallback) uuid.UUID {
	return p.enqueue(cx, cz, cb, false)
}

// EnqueuePriority вставляет запрос в начало очереди. Используется один раз —
// для стартового чанка наблюдателя. Приоритет не отменяет уже розданные
// контекстам запросы: гонка с ними допустима по контракту.
func (p *GenerationPool) EnqueuePriority(cx, cz int, cb GenCallback) uuid.UUID {
	return p.enqueue(cx, cz, cb, true)
}

func (p *GenerationPool) enqueue(cx, cz int, cb GenCallback, front bool) uuid.UUID {
	req := GenRequest{
		ChunkX: cx,
		ChunkZ: cz,
		Seed:   p.gen.Seed(),
		Token:  uuid.New(),
	}

	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return req.Token
	}
	p.callbacks[req.Token] = cb
	if front {
		p.queue = append([]GenRequest{req}, p.queue...)
	} else {
		p.queue = append(p.queue, req)
	}
	p.mu.Unlock()

	// Будим диспетчер; буфер 1 делает сигнал неблокирующим.
	select {
	case p.notify <- struct{}{}:
	default:
	}
	return req.Token
}

// Forget удаляет колбэк токена: результат, пришедший позже, будет отброшен.
// Само фоновое вычисление не прерывается.
func (p *GenerationPool) Forget(token uuid.UUID) {
	p.mu.Lock()
	delete(p.callbacks, token)
	p.mu.Unlock()
}

// QueueLen возвращает текущую длину очереди (для отладки/статистики).
func (p *GenerationPool) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Terminate останавливает все контексты. После возврата ни один колбэк
// не будет вызван.
func (p *GenerationPool) Terminate() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.terminated = true
		p.queue = nil
		p.callbacks = make(map[uuid.UUID]GenCallback)
		p.mu.Unlock()
		close(p.quit)

		// Дожидаемся колбэка, который мог начаться до установки флага.
		p.deliverMu.Lock()
		p.deliverMu.Unlock() //nolint:staticcheck // пустая секция — точка синхронизации
	})
}

// dispatchLoop — единственный потребитель очереди. Голова очереди не
// снимается до фактической передачи контексту: приоритетная вставка,
// случившаяся во время ожидания, успевает обогнать обычные запросы.
func (p *GenerationPool) dispatchLoop() {
	defer close(p.dispatch)

	for {
		req, ok := p.peekFront()
		if !ok {
			select {
			case <-p.notify:
				continue
			case <-p.quit:
				return
			}
		}

		select {
		case p.dispatch <- req:
			p.remove(req.Token)
		case <-p.notify:
			// Очередь изменилась — перечитываем голову.
		case <-p.quit:
			return
		}
	}
}

func (p *GenerationPool) peekFront() (GenRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return GenRequest{}, false
	}
	return p.queue[0], true
}

func (p *GenerationPool) remove(token uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, r := range p.queue {
		if r.Token == token {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			return
		}
	}
}

// worker обрабатывает по одному запросу за раз.
func (p *GenerationPool) worker(id int) {
	for req := range p.dispatch {
		res := p.run(req)
		select {
		case p.results <- res:
		case <-p.quit:
			return
		}
	}
}

// run выполняет один запрос генерации внутри спана трассировки.
func (p *GenerationPool) run(req GenRequest) (res GenResult) {
	_, span := p.tracer.Start(context.Background(), "generation.chunk",
		trace.WithAttributes(
			attribute.Int("chunk.x", req.ChunkX),
			attribute.Int("chunk.z", req.ChunkZ),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			res = GenResult{
				Token:  req.Token,
				ChunkX: req.ChunkX,
				ChunkZ: req.ChunkZ,
				Err:    fmt.Errorf("паника фонового контекста генерации: %v", r),
			}
		}
	}()

	start := time.Now()
	blocks := p.gen.Generate(req.ChunkX, req.ChunkZ)
	observability.GenerationDuration.Observe(time.Since(start).Seconds())

	return GenResult{
		Token:  req.Token,
		ChunkX: req.ChunkX,
		ChunkZ: req.ChunkZ,
		Blocks: blocks,
	}
}

// resultLoop сопоставляет токен результата с колбэком и вызывает его
// ровно один раз, удаляя сопоставление.
func (p *GenerationPool) resultLoop() {
	for {
		select {
		case res := <-p.results:
			p.deliver(res)
		case <-p.quit:
			return
		}
	}
}

func (p *GenerationPool) deliver(res GenResult) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	cb, exists := p.callbacks[res.Token]
	delete(p.callbacks, res.Token)
	onFailure := p.onFailure
	p.mu.Unlock()

	if res.Err != nil {
		// Отказ: контекст возвращается в простой, колбэк не вызывается.
		observability.GenerationFailures.Inc()
		logging.Error("GenerationPool: отказ генерации чанка (%d, %d): %v", res.ChunkX, res.ChunkZ, res.Err)
		if onFailure != nil {
			onFailure(GenRequest{ChunkX: res.ChunkX, ChunkZ: res.ChunkZ, Token: res.Token}, res.Err)
		}
		return
	}

	if exists && cb != nil {
		cb(res)
	}
}
