package telemetry

import (
	"strings"
	"testing"

	"RaceCommentator/internal/race"

	"github.com/aarondl/opt/omit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const raceFrame = `{"mode":"race","cars":[
	{"carId":0,"name":"Lando Norris","nation":"GBR","carName":"mcl38","connected":true,"lastLap":90.1,"bestLap":89.9,"lapCount":3,"speed":210.4,"spline":0.42,"compound":"M","inPit":false,"drs":false},
	{"carId":2,"name":"Oscar Piastri","connected":true,"lapCount":3,"spline":0.40}
]}`

func decode(t *testing.T, s string) Frame {
	t.Helper()
	f, err := DecodeFrame(strings.NewReader(s))
	require.NoError(t, err)
	return f
}

func TestDecodeFrame_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "lap 3"},
		{name: "missing car id", body: `{"cars":[{"name":"Ghost"}]}`},
		{name: "negative car id", body: `{"cars":[{"carId":-1}]}`},
		{name: "car id out of range", body: `{"cars":[{"carId":20000000}]}`},
		{name: "car id at limit", body: `{"cars":[{"carId":64}]}`},
		{name: "wrong type", body: `{"cars":[{"carId":1,"speed":"fast"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(strings.NewReader(tt.body))
			assert.ErrorIs(t, err, ErrInvalidFrame)
		})
	}
}

func TestFeed_Provider(t *testing.T) {
	f := NewFeed()
	require.NoError(t, f.Apply(decode(t, raceFrame)))

	assert.Equal(t, "race", f.Mode())
	assert.Equal(t, 3, f.CarCount(), "ids are dense up to the highest seen")
	assert.False(t, f.UpdatedAt().IsZero())

	id, err := f.Identity(0)
	require.NoError(t, err)
	assert.Equal(t, race.Identity{Name: "Lando Norris", Nation: "GBR", CarName: "mcl38"}, id)

	_, err = f.Identity(1)
	assert.ErrorIs(t, err, race.ErrUnknownCar)
	_, err = f.Snapshot(1)
	assert.ErrorIs(t, err, race.ErrUnknownCar)

	snap, err := f.Snapshot(2)
	require.NoError(t, err)
	lap, ok := snap.LapCount.Get()
	assert.True(t, ok)
	assert.Equal(t, 3, lap)
	assert.True(t, snap.Speed.IsUnset(), "field not sent stays unset")
}

func TestFeed_ApplyRejectsHugeCarID(t *testing.T) {
	f := NewFeed()
	require.NoError(t, f.Apply(decode(t, raceFrame)))

	fr := Frame{Mode: "race", Cars: []CarFrame{{CarID: omit.From(20_000_000)}}}
	assert.ErrorIs(t, f.Apply(fr), ErrInvalidFrame)
	assert.Equal(t, 3, f.CarCount(), "rejected frame must not grow the id range")

	last := decode(t, `{"cars":[{"carId":63,"name":"Backmarker"}]}`)
	require.NoError(t, f.Apply(last))
	assert.Equal(t, MaxCars, f.CarCount())
}

func TestFeed_ApplyOverlaysFields(t *testing.T) {
	f := NewFeed()
	require.NoError(t, f.Apply(decode(t, raceFrame)))
	require.NoError(t, f.Apply(decode(t, `{"cars":[{"carId":0,"spline":0.55,"inPit":true}]}`)))

	assert.Equal(t, "race", f.Mode(), "empty mode keeps previous")
	snap, err := f.Snapshot(0)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, snap.Spline.GetOrZero(), 1e-9)
	assert.True(t, snap.InPit.GetOrZero())
	assert.InDelta(t, 90.1, snap.LastLap.GetOrZero(), 1e-9, "previous value kept")
	assert.Equal(t, "M", snap.Compound.GetOrZero())

	id, err := f.Identity(0)
	require.NoError(t, err)
	assert.Equal(t, "Lando Norris", id.Name)
}

func TestFeed_UnnamedCar(t *testing.T) {
	f := NewFeed()
	require.NoError(t, f.Apply(decode(t, `{"cars":[{"carId":4,"lapCount":1}]}`)))
	id, err := f.Identity(4)
	require.NoError(t, err)
	assert.Equal(t, "Car 4", id.Name)
}

func TestFeed_DrivesRaceState(t *testing.T) {
	f := NewFeed()
	require.NoError(t, f.Apply(decode(t, `{"mode":"race","cars":[
		{"carId":0,"name":"A","connected":true,"lapCount":4,"spline":0.50,"speed":200},
		{"carId":1,"name":"B","connected":true,"lapCount":4,"spline":0.60,"speed":200}]}`)))

	st := race.New(f, nil, race.DefaultOptions())
	require.Equal(t, 2, st.Sync())
	assert.Empty(t, st.Update(f.UpdatedAt()))

	require.NoError(t, f.Apply(decode(t, `{"cars":[{"carId":0,"spline":0.70},{"carId":1,"spline":0.65}]}`)))
	events := st.Update(f.UpdatedAt())
	require.Len(t, events, 1)
	assert.Equal(t, race.KindOvertake, events[0].Kind)
	assert.Equal(t, "A", events[0].Drivers[0].Name)
}
