package ai

import "context"

// StubGenerator заглушка, которая не делает реальных запросов и возвращает сам запрос
type StubGenerator struct{}

func NewStubGenerator() *StubGenerator { return &StubGenerator{} }

func (g *StubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	return prompt, nil
}
