package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
)

// OpenAIGenerator генерирует реплику через Responses API
type OpenAIGenerator struct {
	client       *openai.Client
	model        openai.ChatModel
	instructions string
}

func NewOpenAIGenerator(client *openai.Client, model openai.ChatModel, instructions string) *OpenAIGenerator {
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &OpenAIGenerator{
		client:       client,
		model:        model,
		instructions: instructions,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", errors.New("nil openai client")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errEmptyPrompt
	}
	params := responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						{
							OfInputText: &responses.ResponseInputTextParam{
								Text: prompt,
							},
						},
					},
					responses.EasyInputMessageRoleUser,
				),
			},
		},
	}
	if g.instructions != "" {
		params.Instructions = openai.String(g.instructions)
	}
	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		return "", err
	}

	return resp.OutputText(), nil
}
