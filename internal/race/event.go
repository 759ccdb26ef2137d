package race

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind - тип гоночного события. Набор закрыт.
type Kind string

const (
	KindDNF            Kind = "dnf"
	KindEnteredPit     Kind = "entered_pit"
	KindLongPit        Kind = "long_pit"
	KindQuickPit       Kind = "quick_pit"
	KindBestLap        Kind = "best_lap"
	KindFastestLap     Kind = "fastest_lap"
	KindLongStint      Kind = "long_stint"
	KindOvertake       Kind = "overtake"
	KindShortInterval  Kind = "short_interval"
	KindDRSRange       Kind = "drs_range"
	KindSafetyCarStart Kind = "safety_car_start"
	KindSafetyCarEnd   Kind = "safety_car_end"
	// KindCollision зарезервирован: детектора пока нет.
	KindCollision Kind = "collision"
)

// Kinds перечисляет все типы событий в стабильном порядке.
var Kinds = []Kind{
	KindDNF, KindEnteredPit, KindLongPit, KindQuickPit, KindBestLap, KindFastestLap,
	KindLongStint, KindOvertake, KindShortInterval, KindDRSRange,
	KindSafetyCarStart, KindSafetyCarEnd, KindCollision,
}

// ErrPayloadMismatch возвращается, если полезная нагрузка или число участников не подходит к типу события.
var ErrPayloadMismatch = errors.New("race: payload does not match event kind")

// Payload - параметры конкретного типа события. Реализации есть только в этом пакете.
type Payload interface {
	accepts(k Kind) bool
}

// DNF - машина сошла с дистанции.
type DNF struct {
	Reason string
}

// EnteredPit - заезд на пит-лейн.
type EnteredPit struct {
	Lap         int
	LastLapTime float64 // секунды
	Compound    string
}

// PitDuration - длительность пит-стопа (LONG_PIT / QUICK_PIT).
type PitDuration struct {
	Duration time.Duration
	Compound string
}

// LapTime - время круга (BEST_LAP / FASTEST_LAP), секунды.
type LapTime struct {
	LapTime float64
}

// LongStint - затянувшийся отрезок на одном комплекте шин.
type LongStint struct {
	TireAge     int
	Compound    string
	LastLapTime float64
}

// Overtake - обгон. Drivers[0] - обогнавший, Drivers[1] - обогнанный.
type Overtake struct {
	Position int // новая позиция обогнавшего, с единицы
}

// Interval - интервал между соседями. Drivers[0] - догоняющий, Drivers[1] - впереди идущий.
type Interval struct {
	Interval float64 // секунды
}

// SafetyCar - начало или конец фазы машины безопасности.
type SafetyCar struct {
	Lap int
}

// Collision - столкновение двух машин.
type Collision struct{}

func (DNF) accepts(k Kind) bool        { return k == KindDNF }
func (EnteredPit) accepts(k Kind) bool { return k == KindEnteredPit }
func (PitDuration) accepts(k Kind) bool {
	return k == KindLongPit || k == KindQuickPit
}
func (LapTime) accepts(k Kind) bool {
	return k == KindBestLap || k == KindFastestLap
}
func (LongStint) accepts(k Kind) bool { return k == KindLongStint }
func (Overtake) accepts(k Kind) bool  { return k == KindOvertake }
func (Interval) accepts(k Kind) bool {
	return k == KindShortInterval || k == KindDRSRange
}
func (SafetyCar) accepts(k Kind) bool {
	return k == KindSafetyCarStart || k == KindSafetyCarEnd
}
func (Collision) accepts(k Kind) bool { return k == KindCollision }

// subjects возвращает ожидаемое число участников события.
func subjects(k Kind) int {
	switch k {
	case KindOvertake, KindShortInterval, KindDRSRange, KindCollision:
		return 2
	case KindSafetyCarStart, KindSafetyCarEnd:
		return 0
	default:
		return 1
	}
}

// DriverRef - снимок идентичности пилота на момент события.
type DriverRef struct {
	CarID  int
	Name   string
	Nation string
}

// Event - неизменяемое событие, созданное во время обновления состояния гонки.
type Event struct {
	ID        uuid.UUID
	Kind      Kind
	Drivers   []DriverRef
	CreatedAt time.Time
	Mode      string // режим сессии на момент события
	Payload   Payload
}

// NewEvent создаёт событие, проверяя соответствие нагрузки и числа участников типу.
func NewEvent(kind Kind, drivers []DriverRef, payload Payload, at time.Time, mode string) (Event, error) {
	if payload == nil || !payload.accepts(kind) {
		return Event{}, fmt.Errorf("%w: kind=%s payload=%T", ErrPayloadMismatch, kind, payload)
	}
	if want := subjects(kind); len(drivers) != want {
		return Event{}, fmt.Errorf("%w: kind=%s wants %d drivers, got %d", ErrPayloadMismatch, kind, want, len(drivers))
	}
	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		Drivers:   append([]DriverRef(nil), drivers...),
		CreatedAt: at,
		Mode:      mode,
		Payload:   payload,
	}, nil
}

// mustEvent используется детекторами, которые сами собирают корректную нагрузку.
func mustEvent(kind Kind, drivers []DriverRef, payload Payload, at time.Time, mode string) Event {
	e, err := NewEvent(kind, drivers, payload, at, mode)
	if err != nil {
		panic(err)
	}
	return e
}

// Subject возвращает первого участника события.
func (e Event) Subject() (DriverRef, bool) {
	if len(e.Drivers) == 0 {
		return DriverRef{}, false
	}
	return e.Drivers[0], true
}

// Age - возраст события относительно now.
func (e Event) Age(now time.Time) time.Duration { return now.Sub(e.CreatedAt) }
