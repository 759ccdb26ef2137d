package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"RaceCommentator/internal/race"

	"github.com/aarondl/opt/omit"
)

// ErrInvalidFrame - кадр не удалось разобрать или он содержит некорректные машины.
var ErrInvalidFrame = errors.New("telemetry: invalid frame")

const (
	// maxFrameBytes ограничивает размер одного кадра.
	maxFrameBytes = 1 << 20
	// MaxCars - верхняя граница carId: идентификаторы плотные, и CarCount растёт до id+1.
	MaxCars = 64
)

// Frame - кадр телеметрии от моста симулятора. Все поля машины необязательны, кроме carId.
type Frame struct {
	Mode string     `json:"mode"`
	Cars []CarFrame `json:"cars"`
}

type CarFrame struct {
	CarID   omit.Val[int] `json:"carId"`
	Name    string        `json:"name,omitempty"`
	Nation  string        `json:"nation,omitempty"`
	CarName string        `json:"carName,omitempty"`
	race.Snapshot
}

// DecodeFrame читает один кадр и проверяет идентификаторы машин.
func DecodeFrame(r io.Reader) (Frame, error) {
	var f Frame
	dec := json.NewDecoder(io.LimitReader(r, maxFrameBytes))
	if err := dec.Decode(&f); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	if err := f.validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func (f Frame) validate() error {
	for i, c := range f.Cars {
		id, ok := c.CarID.Get()
		if !ok {
			return fmt.Errorf("%w: car #%d has no carId", ErrInvalidFrame, i)
		}
		if id < 0 {
			return fmt.Errorf("%w: car #%d has negative carId %d", ErrInvalidFrame, i, id)
		}
		if id >= MaxCars {
			return fmt.Errorf("%w: car #%d has carId %d, limit is %d", ErrInvalidFrame, i, id, MaxCars)
		}
	}
	return nil
}
