package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"RaceCommentator/internal/race"

	"go.uber.org/zap"
)

// ErrEmptyNarration - генератор вернул пустой текст.
var ErrEmptyNarration = errors.New("narration: generator returned empty text")

var errNarrationTimeout = errors.New("narration timeout")

// Generator - контракт генерации текста комментария.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Speaker - контракт озвучки. Возвращается после окончания воспроизведения.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Sink получает каждую успешно озвученную реплику (например, дублирование в чат).
type Sink interface {
	Narrated(ctx context.Context, e race.Event, text string)
}

// Recorder - счётчики планировщика. Реализация в internal/metrics.
type Recorder interface {
	EventDetected(kind race.Kind)
	EventEvicted(kind race.Kind)
	Narration(outcome string)
	QueueDepth(n int)
}

// Исходы озвучки для Recorder.
const (
	OutcomeNarrated = "narrated"
	OutcomeFailed   = "failed"
	OutcomeInvalid  = "invalid"
)

// State - состояние планировщика.
type State int

const (
	Idle State = iota
	Narrating
)

func (s State) String() string {
	if s == Narrating {
		return "narrating"
	}
	return "idle"
}

// LowValue - события, которые можно выбросить, если они залежались в очереди.
func LowValue() map[race.Kind]bool {
	return map[race.Kind]bool{
		race.KindBestLap:       true,
		race.KindShortInterval: true,
		race.KindEnteredPit:    true,
	}
}

type Options struct {
	StaleAfter time.Duration
	Timeout    time.Duration
	LowValue   map[race.Kind]bool
	Renderer   *Renderer
	Camera     race.Camera // может быть nil
	Sinks      []Sink
	Recorder   Recorder
	Now        func() time.Time
}

// Stats - снимок счётчиков планировщика.
type Stats struct {
	Pending      int
	Oldest       time.Time // время создания головы очереди
	State        State
	Current      race.Kind
	CurrentSince time.Time
	Narrated     uint64
	Failed       uint64
	Evicted      uint64
}

// Scheduler - одноместный конвейер озвучки: не больше одной реплики одновременно.
type Scheduler struct {
	gen     Generator
	speaker Speaker
	logger  *zap.SugaredLogger
	queue   *Queue

	staleAfter time.Duration
	timeout    time.Duration
	lowValue   map[race.Kind]bool
	renderer   *Renderer
	camera     race.Camera
	sinks      []Sink
	rec        Recorder
	now        func() time.Time

	narrating atomic.Bool

	mu           sync.Mutex
	current      race.Kind
	currentSince time.Time

	narrated atomic.Uint64
	failed   atomic.Uint64
	evicted  atomic.Uint64
}

func New(gen Generator, speaker Speaker, logger *zap.SugaredLogger, opts Options) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 30 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.LowValue == nil {
		opts.LowValue = LowValue()
	}
	if opts.Renderer == nil {
		opts.Renderer = NewRenderer(DefaultSuffix)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		gen:        gen,
		speaker:    speaker,
		logger:     logger,
		queue:      NewQueue(),
		staleAfter: opts.StaleAfter,
		timeout:    opts.Timeout,
		lowValue:   opts.LowValue,
		renderer:   opts.Renderer,
		camera:     opts.Camera,
		sinks:      opts.Sinks,
		rec:        opts.Recorder,
		now:        opts.Now,
	}
}

// Submit ставит пачку событий тика в очередь. Во время озвучки заодно выбрасывает
// залежавшиеся малоценные события. Никогда не блокируется на озвучке.
func (s *Scheduler) Submit(events []race.Event) {
	for _, e := range events {
		s.logger.Debugw("Event detected", "kind", e.Kind, "drivers", e.Drivers, "id", e.ID)
		if s.rec != nil {
			s.rec.EventDetected(e.Kind)
		}
	}
	depth := s.queue.Push(events...)
	if s.narrating.Load() {
		s.evictStale()
		depth = s.queue.Len()
	}
	if s.rec != nil {
		s.rec.QueueDepth(depth)
	}
}

// State возвращает текущее состояние.
func (s *Scheduler) State() State {
	if s.narrating.Load() {
		return Narrating
	}
	return Idle
}

func (s *Scheduler) Stats() Stats {
	st := Stats{
		Pending:  s.queue.Len(),
		State:    s.State(),
		Narrated: s.narrated.Load(),
		Failed:   s.failed.Load(),
		Evicted:  s.evicted.Load(),
	}
	st.Oldest, _ = s.queue.Oldest()
	s.mu.Lock()
	st.Current, st.CurrentSince = s.current, s.currentSince
	s.mu.Unlock()
	return st
}

// Run обрабатывает очередь до отмены контекста.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Infow("Narration scheduler started", "staleAfter", s.staleAfter.String(), "timeout", s.timeout.String())
	defer s.queue.Close()
	for s.queue.Wait(ctx) {
		s.Step(ctx)
	}
	s.logger.Infow("Narration scheduler stopped", "pending", s.queue.Len())
	return context.Cause(ctx)
}

// Step озвучивает голову очереди, если планировщик свободен. Возвращает false, если
// озвучка уже идёт или очередь пуста.
func (s *Scheduler) Step(ctx context.Context) bool {
	if !s.narrating.CompareAndSwap(false, true) {
		return false
	}
	defer s.narrating.Store(false)

	e, ok := s.queue.Pop()
	if !ok {
		return false
	}
	s.mu.Lock()
	s.current, s.currentSince = e.Kind, s.now()
	s.mu.Unlock()

	s.narrate(ctx, e)

	s.evictStale()
	s.mu.Lock()
	s.current, s.currentSince = "", time.Time{}
	s.mu.Unlock()
	if s.rec != nil {
		s.rec.QueueDepth(s.queue.Len())
	}
	return true
}

func (s *Scheduler) narrate(parent context.Context, e race.Event) {
	prompt, err := s.renderer.Render(e)
	if err != nil {
		s.logger.Errorw("Event dropped, no narration template", "kind", e.Kind, "id", e.ID, "error", err)
		s.record(OutcomeInvalid)
		return
	}

	ctx, cancel := context.WithTimeoutCause(parent, s.timeout, errNarrationTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.speak(ctx, e, prompt)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", err, context.Cause(ctx))
		}
		s.logger.Warnw("Narration failed, event dropped", "kind", e.Kind, "id", e.ID, "error", err)
		s.failed.Add(1)
		s.record(OutcomeFailed)
		return
	}

	s.narrated.Add(1)
	s.record(OutcomeNarrated)
	s.logger.Infow("Narrated", "kind", e.Kind, "text", text, "duration", time.Since(start).String())
	for _, sink := range s.sinks {
		sink.Narrated(parent, e, text)
	}
}

func (s *Scheduler) speak(ctx context.Context, e race.Event, prompt string) (string, error) {
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyNarration
	}

	if s.camera != nil {
		if d, ok := e.Subject(); ok && !s.camera.Focus(d.CarID) {
			s.logger.Debugw("Camera focus failed", "carId", d.CarID)
		}
	}

	if err := s.speaker.Speak(ctx, text); err != nil {
		return "", fmt.Errorf("speak: %w", err)
	}
	return text, nil
}

func (s *Scheduler) evictStale() {
	evicted := s.queue.EvictStale(s.now(), s.staleAfter, s.lowValue)
	for _, e := range evicted {
		s.evicted.Add(1)
		s.logger.Infow("Stale event evicted", "kind", e.Kind, "id", e.ID, "age", e.Age(s.now()).String())
		if s.rec != nil {
			s.rec.EventEvicted(e.Kind)
		}
	}
}

func (s *Scheduler) record(outcome string) {
	if s.rec != nil {
		s.rec.Narration(outcome)
	}
}
