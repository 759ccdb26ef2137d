package narration

import (
	"testing"
	"time"

	"RaceCommentator/internal/race"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name  string
		event race.Event
		want  string
	}{
		{
			name:  "overtake",
			event: newEvent(t, race.KindOvertake, t0, race.Overtake{Position: 2}, hamilton, verstappen),
			want:  "Lewis Hamilton has overtaken Max Verstappen and is now in position 2.",
		},
		{
			name:  "fastest lap",
			event: newEvent(t, race.KindFastestLap, t0, race.LapTime{LapTime: 82.3456}, verstappen),
			want:  "Max Verstappen has set the fastest lap of the race with a 1:22.346.",
		},
		{
			name:  "quick pit",
			event: newEvent(t, race.KindQuickPit, t0, race.PitDuration{Duration: 21500 * time.Millisecond, Compound: "H"}, hamilton),
			want:  "Lewis Hamilton has had a lightning quick pit stop of 21.5 seconds and rejoins on hard tyres.",
		},
		{
			name:  "drs range",
			event: newEvent(t, race.KindDRSRange, t0, race.Interval{Interval: 0.84}, hamilton, verstappen),
			want:  "Lewis Hamilton is within DRS range of Max Verstappen, 0.8 seconds behind.",
		},
		{
			name:  "safety car",
			event: newEvent(t, race.KindSafetyCarStart, t0, race.SafetyCar{Lap: 3}),
			want:  "The safety car has been deployed on lap 3.",
		},
		{
			name:  "dnf",
			event: newEvent(t, race.KindDNF, t0, race.DNF{Reason: "disconnected"}, verstappen),
			want:  "Max Verstappen is out of the race (disconnected).",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Describe(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribe_EveryKindHasTemplate(t *testing.T) {
	payloads := map[race.Kind]race.Payload{
		race.KindDNF:            race.DNF{Reason: "disconnected"},
		race.KindEnteredPit:     race.EnteredPit{Lap: 12, LastLapTime: 91.2, Compound: "S"},
		race.KindLongPit:        race.PitDuration{Duration: 75 * time.Second, Compound: "M"},
		race.KindQuickPit:       race.PitDuration{Duration: 19 * time.Second, Compound: "M"},
		race.KindBestLap:        race.LapTime{LapTime: 90.1},
		race.KindFastestLap:     race.LapTime{LapTime: 89.9},
		race.KindLongStint:      race.LongStint{TireAge: 17, Compound: "H", LastLapTime: 93.4},
		race.KindOvertake:       race.Overtake{Position: 4},
		race.KindShortInterval:  race.Interval{Interval: 1.2},
		race.KindDRSRange:       race.Interval{Interval: 0.7},
		race.KindSafetyCarStart: race.SafetyCar{Lap: 5},
		race.KindSafetyCarEnd:   race.SafetyCar{Lap: 8},
		race.KindCollision:      race.Collision{},
	}
	require.Len(t, payloads, len(race.Kinds))

	for _, kind := range race.Kinds {
		var drivers []race.DriverRef
		switch kind {
		case race.KindSafetyCarStart, race.KindSafetyCarEnd:
		case race.KindOvertake, race.KindShortInterval, race.KindDRSRange, race.KindCollision:
			drivers = []race.DriverRef{hamilton, verstappen}
		default:
			drivers = []race.DriverRef{hamilton}
		}
		e := newEvent(t, kind, t0, payloads[kind], drivers...)
		text, err := Describe(e)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, text, kind)
	}
}

func TestDescribe_PayloadMismatch(t *testing.T) {
	e := race.Event{Kind: race.KindOvertake, Payload: race.LapTime{LapTime: 90}}
	_, err := Describe(e)
	assert.ErrorIs(t, err, race.ErrPayloadMismatch)
}

func TestRenderer_Suffix(t *testing.T) {
	e := newEvent(t, race.KindBestLap, t0, race.LapTime{LapTime: 90.5}, hamilton)

	got, err := NewRenderer(DefaultSuffix).Render(e)
	require.NoError(t, err)
	assert.Equal(t, "Lewis Hamilton has just set a personal best lap of 1:30.500. "+DefaultSuffix+".", got)

	got, err = NewRenderer("  ").Render(e)
	require.NoError(t, err)
	assert.Equal(t, "Lewis Hamilton has just set a personal best lap of 1:30.500.", got)
}

func TestFormatLapTime(t *testing.T) {
	assert.Equal(t, "1:29.999", FormatLapTime(89.9994))
	assert.Equal(t, "0:59.000", FormatLapTime(59))
	assert.Equal(t, "2:00.000", FormatLapTime(119.9999))
	assert.Equal(t, "no time", FormatLapTime(0))
}
