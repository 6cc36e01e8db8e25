package embedder

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// RetryConfig bounds how hard the embedder leans on a flaky endpoint.
type RetryConfig struct {
	MaxAttempts int           // total tries, including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // ceiling for any single delay
}

// DefaultRetryConfig suits a remote embeddings API reached over the
// public internet.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// retryableEmbedError reports whether repeating the call can help.
// Rate limits and server-side failures are transient; auth and request
// validation errors are not, and fail fast.
func retryableEmbedError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return true
}

// embedWithRetry runs one embeddings call, backing off between
// attempts. Each delay doubles and carries jitter in its upper half so
// concurrent scanners do not hammer the endpoint in lockstep.
func embedWithRetry(ctx context.Context, cfg RetryConfig, call func() (openai.EmbeddingResponse, error)) (openai.EmbeddingResponse, error) {
	delay := cfg.BaseDelay
	for attempt := 1; ; attempt++ {
		resp, err := call()
		if err == nil || attempt >= cfg.MaxAttempts || !retryableEmbedError(err) {
			return resp, err
		}

		sleep := delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1))
		select {
		case <-ctx.Done():
			return resp, ctx.Err()
		case <-time.After(sleep):
		}
		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}
