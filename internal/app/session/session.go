package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"RaceCommentator/internal/race"

	"go.uber.org/zap"
)

// Detector - агрегатор гонки: ростер и один тик детекции.
type Detector interface {
	Sync() int
	Update(now time.Time) []race.Event
}

// Narrator принимает события и озвучивает их в своём цикле.
type Narrator interface {
	Submit(events []race.Event)
	Run(ctx context.Context) error
}

var errNarratorStopped = errors.New("narrator stopped")

type Options struct {
	FrameInterval  time.Duration
	SampleInterval time.Duration
	Now            func() time.Time
}

// Session связывает тики хоста, детекцию и озвучку.
type Session struct {
	detector Detector
	narrator Narrator
	logger   *zap.SugaredLogger
	sampler  *Sampler
	frame    time.Duration
	now      func() time.Time

	last    time.Time
	samples int
}

func New(detector Detector, narrator Narrator, logger *zap.SugaredLogger, opts Options) *Session {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 100 * time.Millisecond
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		detector: detector,
		narrator: narrator,
		logger:   logger,
		sampler:  NewSampler(opts.SampleInterval),
		frame:    opts.FrameInterval,
		now:      opts.Now,
	}
}

// Run крутит кадры до отмены контекста. Озвучка идёт в отдельной горутине,
// детекция не ждёт её.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Infow("Session started", "frame", s.frame.String())

	var wg sync.WaitGroup
	narrErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		narrErr <- s.narrator.Run(ctx)
	}()

	t := time.NewTicker(s.frame)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			s.logger.Infow("Session stopped", "samples", s.samples)
			return context.Cause(ctx)
		case err := <-narrErr:
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			if err == nil {
				err = errNarratorStopped
			}
			return err
		case <-t.C:
			s.Frame()
		}
	}
}

// Frame - один кадр хоста. Возвращает события, если кадр пересёк порог выборки.
func (s *Session) Frame() []race.Event {
	now := s.now()
	var dt time.Duration
	if !s.last.IsZero() {
		dt = now.Sub(s.last)
	}
	s.last = now
	if !s.sampler.Advance(dt) {
		return nil
	}
	return s.Sample(now)
}

// Sample выполняет детекцию и передаёт события в озвучку.
func (s *Session) Sample(now time.Time) []race.Event {
	s.samples++
	s.detector.Sync()
	events := s.detector.Update(now)
	if len(events) > 0 {
		s.narrator.Submit(events)
	}
	return events
}
