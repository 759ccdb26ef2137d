package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"RaceCommentator/internal/config"
	"RaceCommentator/internal/service/tts"

	"go.uber.org/zap"
)

// Тестовый скрипт для проверки выбранного TTS: озвучивает одну реплику.
// Пример запуска:
//
//	go run ./cmd/say -tts-service gemini -text "And it's lights out and away we go!"
func main() {
	text := flag.String("text", "And it's lights out and away we go!", "текст для озвучки")
	timeout := flag.Duration("timeout", 30*time.Second, "таймаут синтеза и воспроизведения")

	// Базовая конфигурация приложения (подтягивает .env, ENV и флаги)
	cfg := config.NewConfig()

	zl, _ := zap.NewDevelopment()
	logger := zl.Sugar()
	defer zl.Sync() // flush

	speaker, err := tts.New(cfg, logger)
	if err != nil {
		fmt.Println("Ошибка:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeoutCause(context.Background(), *timeout, errors.New("say timeout"))
	defer cancel()

	start := time.Now()
	if err := speaker.Speak(ctx, *text); err != nil {
		logger.Errorw("Speak failed", "service", cfg.TTSService, "error", err)
		os.Exit(1)
	}
	logger.Infow("Speak done", "service", cfg.TTSService, "took", time.Since(start).String())
}
