package narration

import (
	"context"
	"sync"
	"testing"
	"time"

	"RaceCommentator/internal/race"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 5, 25, 15, 0, 0, 0, time.UTC)

var (
	hamilton   = race.DriverRef{CarID: 44, Name: "Lewis Hamilton", Nation: "GBR"}
	verstappen = race.DriverRef{CarID: 1, Name: "Max Verstappen", Nation: "NED"}
)

func newEvent(t *testing.T, kind race.Kind, at time.Time, payload race.Payload, drivers ...race.DriverRef) race.Event {
	t.Helper()
	e, err := race.NewEvent(kind, drivers, payload, at, "race")
	require.NoError(t, err)
	return e
}

// clock - управляемые часы.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// blockingGenerator держит каждый вызов, пока тест не отпустит его через release.
type blockingGenerator struct {
	started chan string
	release chan struct{}
}

func newBlockingGenerator() *blockingGenerator {
	return &blockingGenerator{started: make(chan string, 16), release: make(chan struct{})}
}

func (g *blockingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.started <- prompt
	select {
	case <-g.release:
		return "What a move!", nil
	case <-ctx.Done():
		return "", context.Cause(ctx)
	}
}

type funcGenerator func(ctx context.Context, prompt string) (string, error)

func (f funcGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type recordingSpeaker struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *recordingSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	return nil
}

func (s *recordingSpeaker) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type recordingCamera struct {
	focused []int
}

func (c *recordingCamera) Focus(carID int) bool {
	c.focused = append(c.focused, carID)
	return true
}

func (c *recordingCamera) SetMode(string) {}

type recordingSink struct {
	mu    sync.Mutex
	kinds []race.Kind
	texts []string
}

func (s *recordingSink) Narrated(_ context.Context, e race.Event, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, e.Kind)
	s.texts = append(s.texts, text)
}

type countingRecorder struct {
	mu       sync.Mutex
	detected map[race.Kind]int
	evicted  map[race.Kind]int
	outcomes map[string]int
	depth    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{detected: map[race.Kind]int{}, evicted: map[race.Kind]int{}, outcomes: map[string]int{}}
}

func (r *countingRecorder) EventDetected(k race.Kind) { r.mu.Lock(); r.detected[k]++; r.mu.Unlock() }
func (r *countingRecorder) EventEvicted(k race.Kind)  { r.mu.Lock(); r.evicted[k]++; r.mu.Unlock() }
func (r *countingRecorder) Narration(o string)        { r.mu.Lock(); r.outcomes[o]++; r.mu.Unlock() }
func (r *countingRecorder) QueueDepth(n int)          { r.mu.Lock(); r.depth = n; r.mu.Unlock() }
