package tts

import (
	"context"
	"fmt"
	"strings"

	"RaceCommentator/internal/config"
	"RaceCommentator/internal/service/notify"
	"RaceCommentator/internal/service/tts/gemini"
	"RaceCommentator/internal/service/tts/google"
	"RaceCommentator/internal/service/tts/player"
	"RaceCommentator/internal/service/tts/yandex"

	"go.uber.org/zap"
)

// Speaker озвучивает текст и возвращается после окончания воспроизведения.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// New собирает Speaker по cfg.TTSService. Если задан CueSoundPath, перед каждой репликой играет звук.
func New(cfg *config.Config, logger *zap.SugaredLogger) (Speaker, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	var s Speaker
	switch strings.ToLower(strings.TrimSpace(cfg.TTSService)) {
	case "google":
		s = google.New(cfg.GoogleTTS, player.New(), logger)
	case "yandex":
		s = yandex.New(cfg.YandexTTS, player.NewWithPercent(cfg.YandexTTS.Volume))
	case "gemini":
		s = gemini.New(cfg.GeminiTTS, player.New(), logger)
	case "stub":
		s = NewLogSpeaker(logger)
	default:
		return nil, fmt.Errorf("unknown tts service %q", cfg.TTSService)
	}
	if strings.TrimSpace(cfg.CueSoundPath) != "" {
		s = WithCue(s, notify.NewSoundNotifier(logger, cfg.CueSoundPath, nil))
	}
	return s, nil
}

// Cue - короткий звук перед репликой.
type Cue interface {
	Play(ctx context.Context) error
}

type cueSpeaker struct {
	Speaker
	cue Cue
}

// WithCue оборачивает Speaker звуком-подсказкой. Ошибка звука не мешает реплике.
func WithCue(s Speaker, cue Cue) Speaker {
	return &cueSpeaker{Speaker: s, cue: cue}
}

func (c *cueSpeaker) Speak(ctx context.Context, text string) error {
	_ = c.cue.Play(ctx)
	return c.Speaker.Speak(ctx, text)
}

// LogSpeaker пишет реплику в лог вместо озвучки.
type LogSpeaker struct {
	logger *zap.SugaredLogger
}

func NewLogSpeaker(logger *zap.SugaredLogger) *LogSpeaker {
	return &LogSpeaker{logger: logger}
}

func (s *LogSpeaker) Speak(_ context.Context, text string) error {
	s.logger.Infow("Commentary", "text", text)
	return nil
}
