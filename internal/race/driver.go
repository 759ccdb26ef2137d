package race

import (
	"fmt"
	"time"
)

const (
	longPitThreshold  = 60 * time.Second
	quickPitThreshold = 30 * time.Second
	longStintLaps     = 15
)

// Driver - последний снимок телеметрии одной машины и производные поля.
type Driver struct {
	CarID   int
	Name    string
	Nation  string
	CarName string

	Connected bool
	LastLap   float64
	BestLap   float64
	LapCount  int
	Speed     float64
	Spline    float64
	Compound  string
	InPit     bool
	DRS       bool

	// Distance = LapCount + Spline, прогресс по дистанции гонки.
	Distance     float64
	TireAge      int
	PitStops     int
	PitEnteredAt time.Time

	compoundChangeLap int
	primed            bool
	ledger            *Ledger
}

// NewDriver создаёт пилота. ledger общий с RaceState.
func NewDriver(carID int, id Identity, ledger *Ledger) *Driver {
	if ledger == nil {
		ledger = NewLedger()
	}
	return &Driver{
		CarID:   carID,
		Name:    id.Name,
		Nation:  id.Nation,
		CarName: id.CarName,
		ledger:  ledger,
	}
}

func (d *Driver) Ref() DriverRef {
	return DriverRef{CarID: d.CarID, Name: d.Name, Nation: d.Nation}
}

// Refresh читает свежий снимок у хоста и возвращает события, полученные сравнением с предыдущим снимком.
// Первый успешный снимок только инициализирует состояние.
func (d *Driver) Refresh(p Provider, now time.Time, mode string) ([]Event, error) {
	snap, err := p.Snapshot(d.CarID)
	if err != nil {
		return nil, fmt.Errorf("car %d snapshot: %w", d.CarID, err)
	}
	return d.apply(snap, now, mode), nil
}

func (d *Driver) apply(snap Snapshot, now time.Time, mode string) []Event {
	prev := *d
	d.merge(snap)

	if !d.primed {
		d.primed = true
		d.Distance = float64(d.LapCount) + d.Spline
		d.compoundChangeLap = d.LapCount
		if d.InPit {
			d.PitEnteredAt = now
		}
		return nil
	}

	compoundChanged := prev.Compound != "" && d.Compound != prev.Compound
	pitTransition := prev.InPit != d.InPit
	d.clampDistance(prev, compoundChanged || pitTransition)

	var events []Event
	emit := func(kind Kind, p Payload) {
		if d.ledger.Allow(d.CarID, kind, d.LapCount) {
			events = append(events, mustEvent(kind, []DriverRef{d.Ref()}, p, now, mode))
		}
	}

	if prev.Connected && !d.Connected {
		emit(KindDNF, DNF{Reason: "disconnected"})
	}
	if !d.Connected {
		return events
	}

	if !prev.InPit && d.InPit {
		d.PitEnteredAt = now
		d.PitStops++
		emit(KindEnteredPit, EnteredPit{Lap: d.LapCount, LastLapTime: d.LastLap, Compound: d.Compound})
	}

	if prev.InPit && !d.InPit && !d.PitEnteredAt.IsZero() {
		duration := now.Sub(d.PitEnteredAt)
		switch {
		case duration > longPitThreshold:
			emit(KindLongPit, PitDuration{Duration: duration, Compound: d.Compound})
		case duration < quickPitThreshold:
			emit(KindQuickPit, PitDuration{Duration: duration, Compound: d.Compound})
		}
		d.PitEnteredAt = time.Time{}
	}

	// Личный рекорд только в момент, когда время круга обновилось.
	lapChanged := d.LastLap != prev.LastLap || d.BestLap != prev.BestLap
	if d.LastLap > 0 && d.LastLap == d.BestLap && lapChanged {
		emit(KindBestLap, LapTime{LapTime: d.LastLap})
	}

	if compoundChanged {
		d.TireAge = 0
		d.compoundChangeLap = d.LapCount
	} else {
		d.TireAge = max(0, d.LapCount-d.compoundChangeLap)
		if d.TireAge > longStintLaps {
			emit(KindLongStint, LongStint{TireAge: d.TireAge, Compound: d.Compound, LastLapTime: d.LastLap})
		}
	}
	return events
}

// merge переносит заданные поля снимка. Невалидные значения пропускаются.
func (d *Driver) merge(snap Snapshot) {
	if v, ok := snap.Connected.Get(); ok {
		d.Connected = v
	}
	if v, ok := snap.LastLap.Get(); ok && v >= 0 {
		d.LastLap = v
	}
	if v, ok := snap.BestLap.Get(); ok && v >= 0 {
		d.BestLap = v
	}
	if v, ok := snap.LapCount.Get(); ok && v >= 0 {
		d.LapCount = v
	}
	if v, ok := snap.Speed.Get(); ok && v >= 0 {
		d.Speed = v
	}
	if v, ok := snap.Spline.Get(); ok && v >= 0 && v <= 1 {
		d.Spline = v
	}
	if v, ok := snap.Compound.Get(); ok && v != "" {
		d.Compound = v
	}
	if v, ok := snap.InPit.Get(); ok {
		d.InPit = v
	}
	if v, ok := snap.DRS.Get(); ok {
		d.DRS = v
	}
}

// clampDistance не даёт дистанции уменьшаться у подключённой машины без пит/шинного перехода:
// откатываем круг и положение на круге к предыдущим значениям.
func (d *Driver) clampDistance(prev Driver, transition bool) {
	distance := float64(d.LapCount) + d.Spline
	if prev.Connected && d.Connected && !transition && distance < prev.Distance {
		d.LapCount = prev.LapCount
		d.Spline = prev.Spline
		d.Distance = prev.Distance
		return
	}
	d.Distance = distance
}
