package retrieval

import (
	"context"
	"fmt"

	"docqa-assistant/internal/ai"
	"docqa-assistant/internal/model"
)

const (
	EmbeddingProviderLocal  = "local"
	EmbeddingProviderRemote = "openai_compatible"
)

// Embedder turns text into vectors. Implementations may be fitted to one
// document's chunks.
type Embedder interface {
	Name() string
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFactory builds the embedder for one document.
type EmbedderFactory interface {
	New(modelName string, corpus []string) (Embedder, error)
}

// LocalFactory fits a TF-IDF embedder on each document. The model name is
// only recorded.
type LocalFactory struct{}

func (LocalFactory) New(modelName string, corpus []string) (Embedder, error) {
	e := NewTFIDF(modelName)
	if err := e.Fit(corpus); err != nil {
		return nil, err
	}
	return e, nil
}

// RemoteFactory embeds through an OpenAI-compatible /embeddings endpoint
// using the sentence-transformers model id of the selected option.
type RemoteFactory struct {
	Client  *ai.OpenAICompatibleClient
	BaseURL string
	APIKey  string
}

func (f RemoteFactory) New(modelName string, _ []string) (Embedder, error) {
	id, ok := model.EmbeddingModelID(modelName)
	if !ok {
		return nil, fmt.Errorf("unknown embedding model %q", modelName)
	}
	return &RemoteEmbedder{
		client: f.Client,
		cfg:    ai.EmbeddingConfig{BaseURL: f.BaseURL, APIKey: f.APIKey, Model: id},
	}, nil
}

// NewFactory selects the factory for the configured embedding provider.
func NewFactory(provider string, client *ai.OpenAICompatibleClient, baseURL, apiKey string) (EmbedderFactory, error) {
	switch provider {
	case "", EmbeddingProviderLocal:
		return LocalFactory{}, nil
	case EmbeddingProviderRemote:
		if baseURL == "" {
			return nil, fmt.Errorf("embedding base url is required for provider %q", provider)
		}
		return RemoteFactory{Client: client, BaseURL: baseURL, APIKey: apiKey}, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", provider)
	}
}

type RemoteEmbedder struct {
	client *ai.OpenAICompatibleClient
	cfg    ai.EmbeddingConfig
}

func (e *RemoteEmbedder) Name() string { return e.cfg.Model }

func (e *RemoteEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.client.EmbedBatch(ctx, e.cfg, texts)
}

func (e *RemoteEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, e.cfg, text)
}
