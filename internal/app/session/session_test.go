package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"RaceCommentator/internal/narration"
	"RaceCommentator/internal/race"
	"RaceCommentator/internal/telemetry"

	"github.com/aarondl/opt/omit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSampler(t *testing.T) {
	s := NewSampler(time.Second)
	steps := []struct {
		dt   time.Duration
		fire bool
	}{
		{dt: 400 * time.Millisecond},
		{dt: 400 * time.Millisecond},
		{dt: -time.Second},
		{dt: 300 * time.Millisecond, fire: true},
		{dt: 999 * time.Millisecond},
		{dt: time.Millisecond, fire: true},
		{dt: 5 * time.Second, fire: true},
		{dt: 0},
	}
	for i, st := range steps {
		assert.Equal(t, st.fire, s.Advance(st.dt), "step %d", i)
	}
}

type fakeDetector struct {
	syncs   int
	updates []time.Time
	events  []race.Event
}

func (d *fakeDetector) Sync() int { d.syncs++; return 0 }

func (d *fakeDetector) Update(now time.Time) []race.Event {
	d.updates = append(d.updates, now)
	return d.events
}

type fakeNarrator struct {
	mu        sync.Mutex
	submitted [][]race.Event
	err       error
}

func (n *fakeNarrator) Submit(events []race.Event) {
	n.mu.Lock()
	n.submitted = append(n.submitted, events)
	n.mu.Unlock()
}

func (n *fakeNarrator) Batches() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.submitted)
}

func (n *fakeNarrator) Run(ctx context.Context) error {
	if n.err != nil {
		return n.err
	}
	<-ctx.Done()
	return context.Cause(ctx)
}

func TestSession_FrameSamplesOnThreshold(t *testing.T) {
	t0 := time.Date(2025, 7, 6, 14, 0, 0, 0, time.UTC)
	now := t0
	ev, err := race.NewEvent(race.KindSafetyCarStart, nil, race.SafetyCar{Lap: 5}, t0, "race")
	require.NoError(t, err)
	det := &fakeDetector{events: []race.Event{ev}}
	narr := &fakeNarrator{}
	s := New(det, narr, nil, Options{SampleInterval: time.Second, Now: func() time.Time { return now }})

	var fired []time.Time
	for range 25 {
		if events := s.Frame(); events != nil {
			fired = append(fired, now)
		}
		now = now.Add(100 * time.Millisecond)
	}

	assert.Equal(t, []time.Time{t0.Add(time.Second), t0.Add(2 * time.Second)}, fired)
	assert.Equal(t, fired, det.updates)
	assert.Equal(t, 2, det.syncs)
	assert.Equal(t, 2, narr.Batches())
}

func TestSession_EmptySampleNotSubmitted(t *testing.T) {
	narr := &fakeNarrator{}
	s := New(&fakeDetector{}, narr, nil, Options{})
	assert.Empty(t, s.Sample(time.Now()))
	assert.Zero(t, narr.Batches())
}

func TestSession_Run(t *testing.T) {
	ev, err := race.NewEvent(race.KindSafetyCarEnd, nil, race.SafetyCar{Lap: 7}, time.Now(), "race")
	require.NoError(t, err)
	narr := &fakeNarrator{}
	s := New(&fakeDetector{events: []race.Event{ev}}, narr, nil, Options{FrameInterval: time.Millisecond, SampleInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return narr.Batches() >= 2 }, 2*time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestSession_RunStopsWhenNarratorFails(t *testing.T) {
	boom := errors.New("audio device lost")
	s := New(&fakeDetector{}, &fakeNarrator{err: boom}, nil, Options{})
	assert.ErrorIs(t, s.Run(context.Background()), boom)
}

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, prompt string) (string, error) { return prompt, nil }

type collectSpeaker struct {
	mu    sync.Mutex
	lines []string
}

func (s *collectSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	s.lines = append(s.lines, text)
	s.mu.Unlock()
	return nil
}

func (s *collectSpeaker) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Полный путь: кадры телеметрии -> детекция -> озвучка.
func TestSession_EndToEnd(t *testing.T) {
	feed := telemetry.NewFeed()
	apply := func(leader, second float64) {
		require.NoError(t, feed.Apply(telemetry.Frame{Mode: "race", Cars: []telemetry.CarFrame{
			carFrame(t, 0, "Oscar Piastri", leader),
			carFrame(t, 1, "Lando Norris", second),
		}}))
	}
	apply(4.6, 4.5)

	state := race.New(feed, zap.NewNop().Sugar(), race.DefaultOptions())
	speaker := &collectSpeaker{}
	sched := narration.New(echoGenerator{}, speaker, nil, narration.Options{Renderer: narration.NewRenderer("")})
	s := New(state, sched, nil, Options{})

	t0 := time.Date(2025, 7, 6, 14, 0, 0, 0, time.UTC)
	assert.Empty(t, s.Sample(t0))
	apply(4.7, 4.75)
	events := s.Sample(t0.Add(time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, race.KindOvertake, events[0].Kind)

	require.True(t, sched.Step(context.Background()))
	assert.Equal(t, []string{"Lando Norris has overtaken Oscar Piastri and is now in position 1."}, speaker.Lines())
}

func carFrame(t *testing.T, id int, name string, distance float64) telemetry.CarFrame {
	t.Helper()
	lap := int(distance)
	return telemetry.CarFrame{
		CarID: omit.From(id),
		Name:  name,
		Snapshot: race.Snapshot{
			Connected: omit.From(true),
			LapCount:  omit.From(lap),
			Spline:    omit.From(distance - float64(lap)),
			Speed:     omit.From(200.0),
		},
	}
}
