package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Environment variables consulted when no explicit key is given.
const (
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
)

// OpenAIDimension is the vector width of text-embedding-3-small.
const OpenAIDimension = 1536

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey  string // default: $OPENAI_API_KEY
	BaseURL string // default: api.openai.com, or $OPENAI_BASE_URL
	Model   openai.EmbeddingModel
	Retry   RetryConfig
	Logger  *slog.Logger
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings
// API (or any compatible endpoint via BaseURL). Batches are served
// from the LRU cache where possible; only misses hit the API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	retry  RetryConfig
	cache  *Cache
	log    *slog.Logger
}

// NewOpenAIEmbedder creates an embedder. A nil cache disables caching.
func NewOpenAIEmbedder(cfg OpenAIConfig, cache *Cache) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoAPIKey, EnvOpenAIAPIKey)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv(EnvOpenAIBaseURL)
	}
	if cfg.Model == "" {
		cfg.Model = openai.SmallEmbedding3
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		retry:  cfg.Retry,
		cache:  cache,
		log:    cfg.Logger,
	}, nil
}

// Embed returns one vector per input text, in input order. Cached
// texts are filled in locally; only misses are sent to the API.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	misses := make([]int, 0, len(texts))
	hashes := make([]string, len(texts))

	for i, text := range texts {
		hashes[i] = ComputeHash(text)
		if e.cache != nil {
			if vec, ok := e.cache.Get(hashes[i]); ok {
				vectors[i] = vec
				continue
			}
		}
		misses = append(misses, i)
	}
	if len(misses) == 0 {
		return vectors, nil
	}

	input := make([]string, len(misses))
	for j, i := range misses {
		input[j] = texts[i]
	}

	resp, err := embedWithRetry(ctx, e.retry, func() (openai.EmbeddingResponse, error) {
		return e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: input,
			Model: e.model,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(resp.Data) != len(misses) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(resp.Data), len(misses))
	}

	e.log.Debug("embedded batch", "texts", len(texts), "cache_hits", len(texts)-len(misses), "model", e.model)

	for j, i := range misses {
		vec := resp.Data[j].Embedding
		vectors[i] = vec
		if e.cache != nil {
			e.cache.Set(hashes[i], vec)
		}
	}
	return vectors, nil
}

// Dimension returns the vector width this embedder produces.
func (e *OpenAIEmbedder) Dimension() int {
	return OpenAIDimension
}

// Close releases resources. The HTTP client needs no teardown.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
