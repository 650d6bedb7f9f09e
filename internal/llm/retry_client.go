package llm

import (
	"context"
	"errors"
	"net"
	"time"

	openai "github.com/openai/openai-go"

	"github.com/reagent-dev/reagent/internal/logger"
)

const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

// retryClient wraps another Client and retries transient transport failures
// with capped exponential backoff. Request semantics are unchanged: the same
// request is resent verbatim.
type retryClient struct {
	delegate   Client
	maxRetries int
}

// NewRetryClient returns a Client that retries transient failures up to
// maxRetries times. A non-positive maxRetries returns the base client
// unchanged.
func NewRetryClient(base Client, maxRetries int) Client {
	if base == nil || maxRetries <= 0 {
		return base
	}
	return &retryClient{delegate: base, maxRetries: maxRetries}
}

func (c *retryClient) GetModelName() string {
	return c.delegate.GetModelName()
}

func (c *retryClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.CompleteWithRequest(ctx, &CompletionRequest{
		Messages: []*Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *retryClient) CompleteWithRequest(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	delay := retryBaseDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("llm: transient failure, retrying in %s (attempt %d/%d): %v",
				delay, attempt, c.maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
		}

		resp, err := c.delegate.CompleteWithRequest(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// isRetryable reports whether a transport error is worth resending the same
// request for. Rate limits and server-side failures are; everything the
// caller did wrong is not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return retryableStatus(httpErr.StatusCode)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

func retryableStatus(status int) bool {
	return status == 429 || status >= 500
}
