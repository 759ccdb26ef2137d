package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"RaceCommentator/internal/config"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// Generator превращает текст события в реплику комментатора. Все реализации взаимозаменяемы.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var errEmptyPrompt = errors.New("ai: empty prompt")

// NewGenerator собирает генератор по cfg.LLMService.
func NewGenerator(cfg *config.Config, logger *zap.SugaredLogger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.LLMService)) {
	case "openai":
		client := openai.NewClient()
		return NewOpenAIGenerator(&client, openai.ChatModel(cfg.OpenAIModel), cfg.NarratorInstructions), nil
	case "ollama":
		client := openai.NewClient(
			option.WithBaseURL(cfg.Ollama.BaseURL),
			option.WithAPIKey("ollama"),
		)
		return NewOllamaGenerator(&client, cfg.Ollama.Model, cfg.NarratorInstructions), nil
	case "file":
		return NewFileBridgeGenerator(cfg.FileBridge, logger), nil
	case "stub":
		return NewStubGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown llm service %q", cfg.LLMService)
	}
}
