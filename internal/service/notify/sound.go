package notify

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	ttsplayer "RaceCommentator/internal/service/tts/player"

	"go.uber.org/zap"
)

// SoundNotifier проигрывает короткий звук перед репликой комментатора.
type SoundNotifier struct {
	logger *zap.SugaredLogger
	path   string
	ply    ttsplayer.Player
}

// NewSoundNotifier создаёт нотификатор. Пустой путь - sound/cue.mp3 (сначала ищем рядом с бинарём).
func NewSoundNotifier(logger *zap.SugaredLogger, path string, ply ttsplayer.Player) *SoundNotifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if strings.TrimSpace(path) == "" {
		path = resolve(filepath.Join("sound", "cue.mp3"))
	}
	if ply == nil {
		ply = ttsplayer.New()
	}
	return &SoundNotifier{logger: logger, path: path, ply: ply}
}

func resolve(def string) string {
	if exe, err := os.Executable(); err == nil {
		cand := filepath.Join(filepath.Dir(exe), def)
		if _, statErr := os.Stat(cand); statErr == nil {
			return cand
		}
	}
	// fallback: от текущей рабочей директории
	return filepath.FromSlash(def)
}

func (n *SoundNotifier) Path() string { return n.path }

// Play проигрывает звук. Ошибки логируются и возвращаются,
// вызывающий может их проигнорировать.
func (n *SoundNotifier) Play(ctx context.Context) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}

	f, err := os.Open(n.path)
	if err != nil {
		n.logger.Warnw("Не удалось открыть звуковой файл уведомления", "path", n.path, "error", err)
		return err
	}
	var rc io.ReadCloser = f
	defer rc.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(n.path), "."))
	if ext == "" {
		ext = "mp3"
	}
	if err := n.ply.Play(ctx, ext, rc); err != nil {
		n.logger.Warnw("Не удалось воспроизвести звуковое уведомление", "path", n.path, "error", err)
		return err
	}
	return nil
}
