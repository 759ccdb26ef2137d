package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
)

// DefaultOllamaModel - небольшая локальная модель, которой хватает на одну-две фразы.
const DefaultOllamaModel = "gemma3:4b"

// OllamaGenerator ходит в локальную Ollama через её OpenAI-совместимый chat completions.
type OllamaGenerator struct {
	client       *openai.Client
	model        string
	instructions string
}

func NewOllamaGenerator(client *openai.Client, model, instructions string) *OllamaGenerator {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaGenerator{client: client, model: model, instructions: instructions}
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", errors.New("nil openai client")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errEmptyPrompt
	}
	var messages []openai.ChatCompletionMessageParamUnion
	if g.instructions != "" {
		messages = append(messages, openai.SystemMessage(g.instructions))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ollama: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
