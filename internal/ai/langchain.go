package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// LangChainModel adapts any langchaingo model to ChatModel.
type LangChainModel struct {
	llm  llms.Model
	name string
}

func NewLangChainModel(llm llms.Model, name string) *LangChainModel {
	return &LangChainModel{llm: llm, name: name}
}

// NewGoogleAIModel talks to Gemini through the native generative language API.
func NewGoogleAIModel(ctx context.Context, cfg ChatConfig) (*LangChainModel, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init googleai model failed: %w", err)
	}
	return NewLangChainModel(llm, cfg.Model), nil
}

func (m *LangChainModel) Name() string { return m.name }

func (m *LangChainModel) Invoke(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("llm generate failed: %w", err)
	}
	return out, nil
}

func (m *LangChainModel) Stream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if onChunk == nil || len(chunk) == 0 {
				return nil
			}
			return onChunk(string(chunk))
		}),
	)
	if err != nil {
		return out, fmt.Errorf("llm stream failed: %w", err)
	}
	return out, nil
}
