package results

import (
	"slices"
	"sync"
	"time"

	"fieldcat/internal/binning"
	"fieldcat/internal/utils"
)

// Snapshot описывает состояние разбиения плана после одного слияния.
type Snapshot struct {
	Time    time.Time
	Mapping binning.Mapping
}

// Repository реализует потокобезопасное хранилище разбиений по имени плана.
// Для каждого плана хранится кольцевой буфер последних снимков фиксированной глубины.
// Планы, которые не обновлялись дольше ttl, удаляются фоновым процессом.
//
//	repo := results.NewRepository(5, time.Hour)
//	go repo.Serve()
//	defer repo.Stop()
//	repo.Merge("mass_z", mapping, true)
type Repository struct {
	depth int
	ttl   time.Duration

	plans   map[string]*utils.RingBuffer[Snapshot]
	updated map[string]time.Time
	mu      sync.RWMutex

	cleanInterval time.Duration
	done          chan struct{}
	stopOnce      sync.Once
	now           func() time.Time
}

// NewRepository создаёт хранилище, удерживающее depth последних снимков каждого плана.
// depth должно быть положительным; ttl <= 0 отключает удаление устаревших планов.
func NewRepository(depth int, ttl time.Duration) *Repository {
	return &Repository{
		depth:         depth,
		ttl:           ttl,
		plans:         make(map[string]*utils.RingBuffer[Snapshot]),
		updated:       make(map[string]time.Time),
		cleanInterval: time.Minute,
		done:          make(chan struct{}),
		now:           time.Now,
	}
}

// Merge записывает новый снимок плана name и возвращает его копию.
// При initialize (или если план ещё не сохранён) снимок равен m; иначе бакеты m
// добавляются к последнему снимку, одноимённые ключи заменяются.
// Слияния сериализуются: параллельные вызовы не теряют ключей.
func (r *Repository) Merge(name string, m binning.Mapping, initialize bool) binning.Mapping {
	r.mu.Lock()
	defer r.mu.Unlock()

	buffer, found := r.plans[name]
	if !found {
		buffer = utils.NewRingBuffer[Snapshot](r.depth)
		r.plans[name] = buffer
	}

	merged := make(binning.Mapping, len(m))
	if last, ok := buffer.Last(); ok && !initialize {
		merged.Merge(last.Mapping)
	}
	merged.Merge(m)

	now := r.now()
	buffer.Push(Snapshot{Time: now, Mapping: merged})
	r.updated[name] = now
	return merged.Clone()
}

// Get возвращает копию последнего снимка плана name.
func (r *Repository) Get(name string) (binning.Mapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	buffer, found := r.plans[name]
	if !found {
		return nil, false
	}
	last, ok := buffer.Last()
	if !ok {
		return nil, false
	}
	return last.Mapping.Clone(), true
}

// History возвращает копии снимков плана name от старых к новым.
func (r *Repository) History(name string) ([]Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	buffer, found := r.plans[name]
	if !found {
		return nil, false
	}
	snapshots := buffer.ToSlice()
	for i := range snapshots {
		snapshots[i].Mapping = snapshots[i].Mapping.Clone()
	}
	return snapshots, true
}

// Names возвращает имена сохранённых планов в лексическом порядке.
func (r *Repository) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plans))
	for name := range r.plans {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Serve периодически удаляет устаревшие планы. Блокирует выполнение до вызова Stop:
//
//	go repo.Serve()
func (r *Repository) Serve() {
	ticker := time.NewTicker(r.cleanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.evict()
		case <-r.done:
			return
		}
	}
}

// Stop останавливает Serve. Повторный вызов безопасен, как и вызов до Serve.
func (r *Repository) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

// evict удаляет планы, не обновлявшиеся дольше ttl, и возвращает их имена.
func (r *Repository) evict() []string {
	if r.ttl <= 0 {
		return nil
	}

	var outdated []string
	r.mu.RLock()
	now := r.now()
	for name, ts := range r.updated {
		if now.Sub(ts) > r.ttl {
			outdated = append(outdated, name)
		}
	}
	r.mu.RUnlock()

	if len(outdated) > 0 {
		r.mu.Lock()
		for _, name := range outdated {
			// план мог обновиться между блокировками
			if now.Sub(r.updated[name]) > r.ttl {
				delete(r.plans, name)
				delete(r.updated, name)
			}
		}
		r.mu.Unlock()
	}
	return outdated
}
