package ai

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"RaceCommentator/internal/config"

	"go.uber.org/zap"
)

const defaultPoll = 500 * time.Millisecond

// FileBridgeGenerator отдаёт запрос внешнему процессу через файлы:
// пишет prompt, ждёт появления response, читает и удаляет его.
type FileBridgeGenerator struct {
	promptPath   string
	responsePath string
	poll         time.Duration
	logger       *zap.SugaredLogger
}

func NewFileBridgeGenerator(cfg config.FileBridgeConfig, logger *zap.SugaredLogger) *FileBridgeGenerator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	poll := cfg.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	return &FileBridgeGenerator{
		promptPath:   cfg.PromptPath,
		responsePath: cfg.ResponsePath,
		poll:         poll,
		logger:       logger,
	}
}

func (g *FileBridgeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errEmptyPrompt
	}
	// ответ от прошлого, уже отменённого запроса не должен попасть в этот
	if err := os.Remove(g.responsePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("clear response: %w", err)
	}
	if err := writeAtomic(g.promptPath, prompt); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	g.logger.Debugw("Prompt handed to file bridge", "path", g.promptPath)

	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()
	for {
		text, ok, err := takeFile(g.responsePath)
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		if ok {
			return text, nil
		}
		select {
		case <-ctx.Done():
			_ = os.Remove(g.promptPath)
			return "", context.Cause(ctx)
		case <-ticker.C:
		}
	}
}

// FileBridgeWorker - вторая сторона моста: забирает prompt, генерирует ответ и пишет response.
type FileBridgeWorker struct {
	promptPath   string
	responsePath string
	poll         time.Duration
	gen          Generator
	logger       *zap.SugaredLogger
}

func NewFileBridgeWorker(cfg config.FileBridgeConfig, gen Generator, logger *zap.SugaredLogger) *FileBridgeWorker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	poll := cfg.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	return &FileBridgeWorker{
		promptPath:   cfg.PromptPath,
		responsePath: cfg.ResponsePath,
		poll:         poll,
		gen:          gen,
		logger:       logger,
	}
}

// Run обслуживает запросы, пока жив контекст. Ошибка генерации не останавливает цикл.
func (w *FileBridgeWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		if err := w.serveOnce(ctx); err != nil {
			w.logger.Warnw("File bridge request failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-ticker.C:
		}
	}
}

func (w *FileBridgeWorker) serveOnce(ctx context.Context) error {
	prompt, ok, err := takeFile(w.promptPath)
	if err != nil || !ok {
		return err
	}
	w.logger.Infow("File bridge prompt received", "prompt", prompt)
	text, err := w.gen.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return writeAtomic(w.responsePath, strings.TrimSpace(text))
}

// takeFile читает непустой файл и удаляет его. ok=false, если файла нет или он пуст.
func takeFile(path string) (string, bool, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", false, nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", false, err
	}
	return text, true, nil
}

// writeAtomic пишет через временный файл и rename, чтобы читатель не увидел половину текста.
func writeAtomic(path, text string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
