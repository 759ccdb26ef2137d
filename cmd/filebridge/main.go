package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"RaceCommentator/internal/ai"
	"RaceCommentator/internal/config"

	"go.uber.org/zap"
)

// Вторая сторона файлового моста: забирает prompt.txt, генерирует ответ и пишет response.txt.
// Генератор берётся из -llm-service (кроме file).
//
//	go run ./cmd/filebridge -llm-service ollama -ollama-model gemma3:4b
func main() {
	cfg := config.NewConfig()

	zl, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	logger := zl.Sugar()
	defer zl.Sync() // flush

	if cfg.LLMService == "file" {
		logger.Errorw("File bridge cannot serve itself, choose openai, ollama or stub", "llm", cfg.LLMService)
		os.Exit(2)
	}
	gen, err := ai.NewGenerator(cfg, logger)
	if err != nil {
		logger.Errorw("Generator init failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infow("File bridge started",
		"prompt", cfg.FileBridge.PromptPath,
		"response", cfg.FileBridge.ResponsePath,
		"llm", cfg.LLMService,
	)
	worker := ai.NewFileBridgeWorker(cfg.FileBridge, gen, logger)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorw("File bridge stopped", "error", err)
	}
}
