package race

import (
	"errors"

	"github.com/aarondl/opt/omit"
)

// ErrUnknownCar - у хоста нет машины с таким id.
var ErrUnknownCar = errors.New("race: unknown car")

// Identity - неизменная на сессию информация о машине.
type Identity struct {
	Name    string `json:"name"`
	Nation  string `json:"nation"`
	CarName string `json:"carName"`
}

// Snapshot - одно чтение телеметрии машины. Незаданное поле означает «без изменений» на этом тике.
// Времена кругов в секундах, скорость в км/ч.
type Snapshot struct {
	Connected omit.Val[bool]    `json:"connected"`
	LastLap   omit.Val[float64] `json:"lastLap"`
	BestLap   omit.Val[float64] `json:"bestLap"`
	LapCount  omit.Val[int]     `json:"lapCount"`
	Speed     omit.Val[float64] `json:"speed"`
	Spline    omit.Val[float64] `json:"spline"`
	Compound  omit.Val[string]  `json:"compound"`
	InPit     omit.Val[bool]    `json:"inPit"`
	DRS       omit.Val[bool]    `json:"drs"`
}

// Provider - pull-интерфейс хоста симуляции.
type Provider interface {
	// CarCount возвращает размер ростера; id машин - 0..CarCount()-1.
	CarCount() int
	Identity(carID int) (Identity, error)
	Snapshot(carID int) (Snapshot, error)
	// Mode возвращает тег текущего режима сессии (race, qualify, ...).
	Mode() string
}

// Camera - необязательное управление камерой хоста.
type Camera interface {
	Focus(carID int) bool
	SetMode(mode string)
}
