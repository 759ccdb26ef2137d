package race

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Options - пороги агрегатора.
type Options struct {
	// FastestLapWarmup - FASTEST_LAP сообщается только когда текущий круг больше этого значения.
	FastestLapWarmup int
	// SafetyCarSlow / SafetyCarClear - гистерезис средней скорости поля (км/ч).
	SafetyCarSlow  float64
	SafetyCarClear float64
	// ShortInterval - порог SHORT_INTERVAL, секунды.
	ShortInterval float64
}

func DefaultOptions() Options {
	return Options{
		FastestLapWarmup: 2,
		SafetyCarSlow:    30,
		SafetyCarClear:   160,
		ShortInterval:    3,
	}
}

// RaceState - состояние гонки на всю сессию. Обновляется только из одного места (тик сессии).
type RaceState struct {
	provider Provider
	logger   *zap.SugaredLogger
	opts     Options
	ledger   *Ledger

	drivers    []*Driver
	fastestLap float64
	fastestBy  *Driver
	safetyCar  bool
	mode       string
	lastLap    int
}

func New(provider Provider, logger *zap.SugaredLogger, opts Options) *RaceState {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RaceState{
		provider: provider,
		logger:   logger,
		opts:     opts,
		ledger:   NewLedger(),
	}
}

// Sync добавляет в ростер машины, которых ещё нет. Машины, для которых хост не отдаёт
// идентичность, пропускаются до следующего вызова.
func (s *RaceState) Sync() int {
	known := lo.SliceToMap(s.drivers, func(d *Driver) (int, struct{}) { return d.CarID, struct{}{} })
	added := 0
	for id := range s.provider.CarCount() {
		if _, ok := known[id]; ok {
			continue
		}
		ident, err := s.provider.Identity(id)
		if err != nil {
			s.logger.Debugw("Car identity unavailable", "carId", id, "error", err)
			continue
		}
		s.drivers = append(s.drivers, NewDriver(id, ident, s.ledger))
		added++
	}
	if added > 0 {
		s.logger.Infow("Roster updated", "added", added, "drivers", len(s.drivers))
	}
	return added
}

// Drivers возвращает текущий порядок (классификацию) пилотов.
func (s *RaceState) Drivers() []*Driver { return slices.Clone(s.drivers) }

// FastestLap возвращает рекорд сессии и его владельца.
func (s *RaceState) FastestLap() (float64, *Driver) { return s.fastestLap, s.fastestBy }

func (s *RaceState) SafetyCar() bool { return s.safetyCar }

func (s *RaceState) Ledger() *Ledger { return s.ledger }

// Lap - текущий круг гонки (круг лидера на последнем обновлении).
func (s *RaceState) Lap() int { return s.lastLap }

// Update выполняет один тик детекции и возвращает события в детерминированном порядке:
// сначала события пилотов, затем события всего поля.
func (s *RaceState) Update(now time.Time) []Event {
	mode := s.provider.Mode()
	if s.mode != "" && mode != s.mode {
		s.logger.Infow("Session mode changed, fastest lap reset", "from", s.mode, "to", mode)
		s.fastestLap, s.fastestBy = 0, nil
	}
	s.mode = mode

	var events []Event
	refreshed := make([]*Driver, 0, len(s.drivers))
	fresh := map[*Driver]bool{}
	for _, d := range s.drivers {
		if !d.primed {
			fresh[d] = true
		}
		evs, err := d.Refresh(s.provider, now, mode)
		if err != nil {
			s.logger.Warnw("Driver refresh skipped", "carId", d.CarID, "error", err)
			continue
		}
		events = append(events, evs...)
		refreshed = append(refreshed, d)
	}
	if len(s.drivers) == 0 {
		return events
	}

	sorted := slices.Clone(s.drivers)
	slices.SortStableFunc(sorted, func(a, b *Driver) int { return cmp.Compare(b.Distance, a.Distance) })
	lap := sorted[0].LapCount
	s.lastLap = lap

	events = append(events, s.detectOvertakes(sorted, fresh, lap, now, mode)...)
	events = append(events, s.detectIntervals(sorted, lap, now, mode)...)
	s.drivers = sorted

	running := lo.Filter(refreshed, func(d *Driver, _ int) bool { return d.Connected })
	if len(running) > 0 {
		avg := lo.SumBy(running, func(d *Driver) float64 { return d.Speed }) / float64(len(running))
		events = append(events, s.detectSafetyCar(avg, lap, now, mode)...)
	}

	events = append(events, s.detectFastestLap(sorted, fresh, lap, now, mode)...)
	return events
}

// detectOvertakes сравнивает соседние пары прежнего порядка с новым. Ловятся только обмены
// непосредственных соседей. Пилоты, получившие первый снимок на этом тике, не участвуют.
func (s *RaceState) detectOvertakes(sorted []*Driver, fresh map[*Driver]bool, lap int, now time.Time, mode string) []Event {
	index := make(map[*Driver]int, len(sorted))
	for i, d := range sorted {
		index[d] = i
	}
	var events []Event
	for i := 0; i+1 < len(s.drivers); i++ {
		ahead, behind := s.drivers[i], s.drivers[i+1]
		if fresh[ahead] || fresh[behind] {
			continue
		}
		ia, okA := index[ahead]
		ib, okB := index[behind]
		if !okA || !okB || ib+1 != ia {
			continue
		}
		if !s.ledger.Allow(RaceSubject, KindOvertake, lap) {
			continue
		}
		events = append(events, mustEvent(KindOvertake,
			[]DriverRef{behind.Ref(), ahead.Ref()},
			Overtake{Position: ib + 1}, now, mode))
	}
	return events
}

// detectIntervals считает приблизительный интервал между соседями в новом порядке:
// leader.last - follower.last * (1 - |leader.distance - follower.distance|).
func (s *RaceState) detectIntervals(sorted []*Driver, lap int, now time.Time, mode string) []Event {
	var events []Event
	for i := 0; i+1 < len(sorted); i++ {
		leader, follower := sorted[i], sorted[i+1]
		if !leader.Connected || !follower.Connected || leader.LastLap <= 0 || follower.LastLap <= 0 {
			continue
		}
		interval := IntervalBetween(leader, follower)
		pair := []DriverRef{follower.Ref(), leader.Ref()}
		switch {
		case follower.DRS:
			if s.ledger.Allow(RaceSubject, KindDRSRange, lap) {
				events = append(events, mustEvent(KindDRSRange, pair, Interval{Interval: interval}, now, mode))
			}
		case interval < s.opts.ShortInterval:
			if s.ledger.Allow(RaceSubject, KindShortInterval, lap) {
				events = append(events, mustEvent(KindShortInterval, pair, Interval{Interval: interval}, now, mode))
			}
		}
	}
	return events
}

// IntervalBetween - эвристика интервала, не физическое время отставания.
func IntervalBetween(leader, follower *Driver) float64 {
	return leader.LastLap - follower.LastLap*(1-math.Abs(leader.Distance-follower.Distance))
}

func (s *RaceState) detectSafetyCar(avgSpeed float64, lap int, now time.Time, mode string) []Event {
	switch {
	case !s.safetyCar && lap > 1 && avgSpeed < s.opts.SafetyCarSlow:
		if !s.ledger.Allow(RaceSubject, KindSafetyCarStart, lap) {
			return nil
		}
		s.safetyCar = true
		s.logger.Infow("Safety car phase started", "lap", lap, "avgSpeed", avgSpeed)
		return []Event{mustEvent(KindSafetyCarStart, nil, SafetyCar{Lap: lap}, now, mode)}
	case s.safetyCar && avgSpeed > s.opts.SafetyCarClear:
		// Без ledger: повтор END исключён флагом safetyCar, а START второй раз на круге не пройдёт.
		s.safetyCar = false
		s.logger.Infow("Safety car phase ended", "lap", lap, "avgSpeed", avgSpeed)
		return []Event{mustEvent(KindSafetyCarEnd, nil, SafetyCar{Lap: lap}, now, mode)}
	}
	return nil
}

// detectFastestLap обновляет рекорд сессии по лучшему кругу поля и сообщает не более одного
// FASTEST_LAP за тик. Рекорд пилота, только что получившего первый снимок, принимается молча.
func (s *RaceState) detectFastestLap(sorted []*Driver, fresh map[*Driver]bool, lap int, now time.Time, mode string) []Event {
	timed := lo.Filter(sorted, func(d *Driver, _ int) bool { return d.BestLap > 0 })
	if len(timed) == 0 {
		return nil
	}
	best := lo.MinBy(timed, func(a, b *Driver) bool { return a.BestLap < b.BestLap })
	if s.fastestLap > 0 && best.BestLap >= s.fastestLap {
		return nil
	}
	s.fastestLap, s.fastestBy = best.BestLap, best
	if lap <= s.opts.FastestLapWarmup || fresh[best] {
		return nil
	}
	return []Event{mustEvent(KindFastestLap, []DriverRef{best.Ref()}, LapTime{LapTime: best.BestLap}, now, mode)}
}
