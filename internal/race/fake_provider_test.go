package race

import (
	"fmt"
	"time"

	"github.com/aarondl/opt/omit"
)

// fakeProvider - управляемый хост для тестов: снимки задаются вручную перед каждым тиком.
type fakeProvider struct {
	mode   string
	idents map[int]Identity
	snaps  map[int]Snapshot
	fail   map[int]error
}

func newFakeProvider(names ...string) *fakeProvider {
	p := &fakeProvider{
		mode:   "race",
		idents: map[int]Identity{},
		snaps:  map[int]Snapshot{},
		fail:   map[int]error{},
	}
	for i, n := range names {
		p.idents[i] = Identity{Name: n, Nation: "GBR", CarName: "ks_formula"}
	}
	return p
}

func (p *fakeProvider) CarCount() int { return len(p.idents) }

func (p *fakeProvider) Identity(carID int) (Identity, error) {
	id, ok := p.idents[carID]
	if !ok {
		return Identity{}, fmt.Errorf("%w: %d", ErrUnknownCar, carID)
	}
	return id, nil
}

func (p *fakeProvider) Snapshot(carID int) (Snapshot, error) {
	if err := p.fail[carID]; err != nil {
		return Snapshot{}, err
	}
	s, ok := p.snaps[carID]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnknownCar, carID)
	}
	return s, nil
}

func (p *fakeProvider) Mode() string { return p.mode }

// car - компактный конструктор полного снимка.
type car struct {
	lap      int
	spline   float64
	speed    float64
	last     float64
	best     float64
	compound string
	inPit    bool
	drs      bool
	offline  bool
}

func (c car) snapshot() Snapshot {
	compound := c.compound
	if compound == "" {
		compound = "M"
	}
	return Snapshot{
		Connected: omit.From(!c.offline),
		LastLap:   omit.From(c.last),
		BestLap:   omit.From(c.best),
		LapCount:  omit.From(c.lap),
		Speed:     omit.From(c.speed),
		Spline:    omit.From(c.spline),
		Compound:  omit.From(compound),
		InPit:     omit.From(c.inPit),
		DRS:       omit.From(c.drs),
	}
}

func (p *fakeProvider) set(carID int, c car) { p.snaps[carID] = c.snapshot() }

var t0 = time.Date(2025, 3, 16, 14, 0, 0, 0, time.UTC)

func kinds(events []Event) []Kind {
	out := make([]Kind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func countKind(events []Event, k Kind) int {
	n := 0
	for _, e := range events {
		if e.Kind == k {
			n++
		}
	}
	return n
}
