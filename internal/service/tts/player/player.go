package player

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

var ErrUnsupportedFormat = errors.New("unsupported format for direct playback; use mp3 or wav")

// Player воспроизводит аудио потоком в зависимости от формата. Возвращается после окончания звука.
type Player interface {
	Play(ctx context.Context, format string, r io.ReadCloser) error
}

// Default реализует Player и поддерживает mp3 и wav.
type Default struct {
	volumeDB float64
	silent   bool

	// speaker в beep глобальный, одновременно играет только один поток
	mu   sync.Mutex
	rate beep.SampleRate
}

// New создаёт плеер без изменения громкости (0 dB).
func New() *Default { return &Default{volumeDB: 0} }

// NewWithVolume создаёт плеер с предустановленной громкостью в dB (отрицательные - тише).
func NewWithVolume(db float64) *Default { return &Default{volumeDB: db} }

// NewWithPercent создаёт плеер с громкостью в процентах (как в настройках Yandex TTS).
func NewWithPercent(percent int) *Default {
	db, silent := PercentToDB(percent)
	return &Default{volumeDB: db, silent: silent}
}

// PercentToDB переводит громкость 0-100 в dB для effects.Volume с основанием 2.
// 100 и выше - без изменений, 0 - тишина.
func PercentToDB(percent int) (db float64, silent bool) {
	switch {
	case percent >= 100:
		return 0, false
	case percent <= 0:
		return 0, true
	default:
		return math.Log2(float64(percent) / 100), false
	}
}

func (d *Default) Play(ctx context.Context, format string, r io.ReadCloser) error {
	streamer, f, err := decode(format, r)
	if err != nil {
		return err
	}
	defer streamer.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rate != f.SampleRate {
		if err := speaker.Init(f.SampleRate, f.SampleRate.N(time.Second/10)); err != nil {
			return err
		}
		d.rate = f.SampleRate
	}
	vol := &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   d.volumeDB,
		Silent:   d.silent,
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() { close(done) })))
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return context.Cause(ctx)
	}
}

func decode(format string, r io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch format {
	case "wav", "WAV":
		return wav.Decode(r)
	case "mp3", "MP3":
		return mp3.Decode(r)
	default:
		_ = r.Close()
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}
