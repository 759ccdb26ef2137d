package tts

import (
	"context"
	"errors"
	"testing"

	"RaceCommentator/internal/config"
	"RaceCommentator/internal/service/tts/gemini"
	"RaceCommentator/internal/service/tts/google"
	"RaceCommentator/internal/service/tts/yandex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		service string
		want    any
	}{
		{service: "google", want: &google.Client{}},
		{service: "Yandex", want: &yandex.Client{}},
		{service: "gemini", want: &gemini.Client{}},
		{service: "stub", want: &LogSpeaker{}},
	}
	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.TTSService = tt.service
			s, err := New(cfg, nil)
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}

	cfg := config.Defaults()
	cfg.TTSService = "stub"
	cfg.CueSoundPath = "sound/cue.mp3"
	s, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &cueSpeaker{}, s)

	cfg.TTSService = "espeak"
	_, err = New(cfg, nil)
	assert.Error(t, err)
}

type orderCue struct{ calls *[]string }

func (c orderCue) Play(context.Context) error {
	*c.calls = append(*c.calls, "cue")
	return errors.New("no audio device")
}

type orderSpeaker struct{ calls *[]string }

func (s orderSpeaker) Speak(_ context.Context, text string) error {
	*s.calls = append(*s.calls, text)
	return nil
}

func TestWithCue(t *testing.T) {
	var calls []string
	s := WithCue(orderSpeaker{calls: &calls}, orderCue{calls: &calls})
	require.NoError(t, s.Speak(context.Background(), "Purple sector"))
	assert.Equal(t, []string{"cue", "Purple sector"}, calls)
}

func TestLogSpeaker(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSpeaker(zap.New(core).Sugar())
	require.NoError(t, s.Speak(context.Background(), "Into the lead!"))

	entries := logs.FilterMessage("Commentary").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Into the lead!", entries[0].ContextMap()["text"])
}
