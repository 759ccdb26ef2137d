package narration

import (
	"fmt"
	"math"
	"strings"
	"time"

	"RaceCommentator/internal/race"
)

// DefaultSuffix - стиль комментатора по умолчанию.
const DefaultSuffix = "In the style of Jeremy Clarkson working as an F1 commentator"

// Renderer превращает событие в текст запроса к генератору.
type Renderer struct {
	suffix string
}

func NewRenderer(suffix string) *Renderer {
	return &Renderer{suffix: strings.TrimSpace(suffix)}
}

// Render возвращает строку запроса: шаблон события плюс стилистический суффикс.
func (r *Renderer) Render(e race.Event) (string, error) {
	line, err := Describe(e)
	if err != nil {
		return "", err
	}
	if r == nil || r.suffix == "" {
		return line, nil
	}
	return line + " " + r.suffix + ".", nil
}

// Describe - шаблон конкретного типа события без суффикса.
func Describe(e race.Event) (string, error) {
	name := func(i int) string {
		if i < len(e.Drivers) {
			return e.Drivers[i].Name
		}
		return ""
	}

	switch p := e.Payload.(type) {
	case race.DNF:
		if e.Kind == race.KindDNF {
			return fmt.Sprintf("%s is out of the race (%s).", name(0), p.Reason), nil
		}
	case race.EnteredPit:
		if e.Kind == race.KindEnteredPit {
			return fmt.Sprintf("%s has entered the pit lane on lap %d after a %s lap on the %s tyres.",
				name(0), p.Lap, FormatLapTime(p.LastLapTime), compoundName(p.Compound)), nil
		}
	case race.PitDuration:
		switch e.Kind {
		case race.KindLongPit:
			return fmt.Sprintf("%s has had a painfully long pit stop of %s and rejoins on %s tyres.",
				name(0), formatSeconds(p.Duration), compoundName(p.Compound)), nil
		case race.KindQuickPit:
			return fmt.Sprintf("%s has had a lightning quick pit stop of %s and rejoins on %s tyres.",
				name(0), formatSeconds(p.Duration), compoundName(p.Compound)), nil
		}
	case race.LapTime:
		switch e.Kind {
		case race.KindBestLap:
			return fmt.Sprintf("%s has just set a personal best lap of %s.", name(0), FormatLapTime(p.LapTime)), nil
		case race.KindFastestLap:
			return fmt.Sprintf("%s has set the fastest lap of the race with a %s.", name(0), FormatLapTime(p.LapTime)), nil
		}
	case race.LongStint:
		if e.Kind == race.KindLongStint {
			return fmt.Sprintf("%s has been on the same set of %s tyres for %d laps, last lap %s.",
				name(0), compoundName(p.Compound), p.TireAge, FormatLapTime(p.LastLapTime)), nil
		}
	case race.Overtake:
		if e.Kind == race.KindOvertake {
			return fmt.Sprintf("%s has overtaken %s and is now in position %d.", name(0), name(1), p.Position), nil
		}
	case race.Interval:
		switch e.Kind {
		case race.KindShortInterval:
			return fmt.Sprintf("%s is only %.1f seconds behind %s.", name(0), p.Interval, name(1)), nil
		case race.KindDRSRange:
			return fmt.Sprintf("%s is within DRS range of %s, %.1f seconds behind.", name(0), name(1), p.Interval), nil
		}
	case race.SafetyCar:
		switch e.Kind {
		case race.KindSafetyCarStart:
			return fmt.Sprintf("The safety car has been deployed on lap %d.", p.Lap), nil
		case race.KindSafetyCarEnd:
			return fmt.Sprintf("The safety car is coming in at the end of lap %d, racing resumes.", p.Lap), nil
		}
	case race.Collision:
		if e.Kind == race.KindCollision {
			return fmt.Sprintf("%s and %s have collided.", name(0), name(1)), nil
		}
	}
	return "", fmt.Errorf("%w: kind=%s payload=%T", race.ErrPayloadMismatch, e.Kind, e.Payload)
}

// FormatLapTime форматирует время круга в секундах как m:ss.mmm.
func FormatLapTime(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "no time"
	}
	ms := int64(math.Round(seconds * 1000))
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1f seconds", d.Seconds())
}

func compoundName(c string) string {
	switch strings.ToUpper(strings.TrimSpace(c)) {
	case "S", "SOFT":
		return "soft"
	case "M", "MEDIUM":
		return "medium"
	case "H", "HARD":
		return "hard"
	case "I", "INTER", "INTERMEDIATE":
		return "intermediate"
	case "W", "WET":
		return "wet"
	case "":
		return "unknown"
	}
	return c
}
