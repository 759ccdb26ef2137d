package session

import "time"

// Sampler копит время кадров и срабатывает, когда накоплено не меньше интервала.
// Кадры короче порога ничего не делают.
type Sampler struct {
	interval time.Duration
	acc      time.Duration
}

func NewSampler(interval time.Duration) *Sampler {
	return &Sampler{interval: interval}
}

// Advance добавляет длительность кадра. true - пора выполнить детекцию, накопитель сброшен.
func (s *Sampler) Advance(dt time.Duration) bool {
	if dt > 0 {
		s.acc += dt
	}
	if s.acc < s.interval {
		return false
	}
	s.acc = 0
	return true
}
