package narration

import (
	"context"
	"sync"
	"time"

	"RaceCommentator/internal/race"
)

// Queue - очередь ожидающих событий в порядке поступления.
// Push вызывается из тика детекции, Wait/Pop/Evict из планировщика.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []race.Event
	closed bool
}

func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push добавляет события в хвост и возвращает новую глубину очереди.
// После Close события отбрасываются.
func (q *Queue) Push(events ...race.Event) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return len(q.items)
	}
	q.items = append(q.items, events...)
	if len(events) > 0 {
		q.cond.Broadcast()
	}
	return len(q.items)
}

// Pop забирает голову очереди без ожидания.
func (q *Queue) Pop() (race.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return race.Event{}, false
	}
	e := q.items[0]
	q.items[0] = race.Event{}
	q.items = q.items[1:]
	return e, true
}

// Wait блокируется, пока в очереди нет событий. Возвращает false, если очередь закрыта
// или контекст отменён.
func (q *Queue) Wait(ctx context.Context) bool {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}
	return len(q.items) > 0 && !q.closed && ctx.Err() == nil
}

// EvictStale удаляет события, которые старше after и чей тип считается малоценным.
// Остальные события сохраняют порядок.
func (q *Queue) EvictStale(now time.Time, after time.Duration, lowValue map[race.Kind]bool) []race.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	var evicted []race.Event
	kept := q.items[:0]
	for _, e := range q.items {
		if lowValue[e.Kind] && e.Age(now) > after {
			evicted = append(evicted, e)
			continue
		}
		kept = append(kept, e)
	}
	clear(q.items[len(kept):])
	q.items = kept
	return evicted
}

// Oldest возвращает время создания головы очереди.
func (q *Queue) Oldest() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].CreatedAt, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close будит все ожидающие Wait. Оставшиеся события не обрабатываются.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}
