package telemetry

import (
	"fmt"
	"sync"
	"time"

	"RaceCommentator/internal/race"

	"github.com/aarondl/opt/omit"
)

var _ race.Provider = (*Feed)(nil)

type carState struct {
	ident race.Identity
	snap  race.Snapshot
	seen  time.Time
}

// Feed хранит последние известные значения каждой машины и отдаёт их по запросу (race.Provider).
// Кадры пишутся источником телеметрии, читаются тиком сессии.
type Feed struct {
	mu        sync.RWMutex
	mode      string
	cars      map[int]*carState
	count     int
	updatedAt time.Time
	now       func() time.Time
}

func NewFeed() *Feed {
	return &Feed{cars: map[int]*carState{}, now: time.Now}
}

// Apply накладывает кадр поверх известного состояния: заданные поля заменяются,
// незаданные остаются прежними. Машины, отсутствующие в кадре, не трогаются.
func (f *Feed) Apply(fr Frame) error {
	if err := fr.validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if fr.Mode != "" {
		f.mode = fr.Mode
	}
	for _, c := range fr.Cars {
		id := c.CarID.GetOrZero()
		st, ok := f.cars[id]
		if !ok {
			st = &carState{}
			f.cars[id] = st
		}
		if c.Name != "" {
			st.ident.Name = c.Name
		}
		if c.Nation != "" {
			st.ident.Nation = c.Nation
		}
		if c.CarName != "" {
			st.ident.CarName = c.CarName
		}
		overlaySnapshot(&st.snap, c.Snapshot)
		st.seen = now
		f.count = max(f.count, id+1)
	}
	f.updatedAt = now
	return nil
}

func (f *Feed) CarCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

func (f *Feed) Identity(carID int) (race.Identity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st, ok := f.cars[carID]
	if !ok {
		return race.Identity{}, fmt.Errorf("%w: %d", race.ErrUnknownCar, carID)
	}
	id := st.ident
	if id.Name == "" {
		id.Name = fmt.Sprintf("Car %d", carID)
	}
	return id, nil
}

func (f *Feed) Snapshot(carID int) (race.Snapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st, ok := f.cars[carID]
	if !ok {
		return race.Snapshot{}, fmt.Errorf("%w: %d", race.ErrUnknownCar, carID)
	}
	return st.snap, nil
}

func (f *Feed) Mode() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.mode
}

// UpdatedAt - время последнего принятого кадра.
func (f *Feed) UpdatedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updatedAt
}

func overlaySnapshot(dst *race.Snapshot, src race.Snapshot) {
	overlay(&dst.Connected, src.Connected)
	overlay(&dst.LastLap, src.LastLap)
	overlay(&dst.BestLap, src.BestLap)
	overlay(&dst.LapCount, src.LapCount)
	overlay(&dst.Speed, src.Speed)
	overlay(&dst.Spline, src.Spline)
	overlay(&dst.Compound, src.Compound)
	overlay(&dst.InPit, src.InPit)
	overlay(&dst.DRS, src.DRS)
}

func overlay[T any](dst *omit.Val[T], src omit.Val[T]) {
	if src.IsValue() {
		*dst = src
	}
}
