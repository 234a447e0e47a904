// Package ai delegates bookmark categorization to an OpenAI compatible chat
// completion API.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"

	"github.com/nikbrunner/bmlens/internal/model"
)

var (
	ErrNoAPIKey        = errors.New("AI API key not configured")
	ErrAPIRequest      = errors.New("API request failed")
	ErrInvalidResponse = errors.New("invalid API response")

	// errPermanent marks failures a retry cannot fix.
	errPermanent = errors.New("permanent failure")
)

// Options tune request behavior. Zero values select the defaults.
type Options struct {
	Attempts   int
	RetryDelay time.Duration
	ChunkSize  int
	Timeout    time.Duration
	MaxTokens  int
	HTTPClient *http.Client
}

const (
	defaultAttempts   = 3
	defaultRetryDelay = 500 * time.Millisecond
	defaultChunkSize  = 100
	defaultTimeout    = 60 * time.Second
	defaultMaxTokens  = 4096
)

// Client handles communication with the chat completion API.
type Client struct {
	api     *openai.Client
	model   string
	opts    Options
	library string
	breaker *gobreaker.CircuitBreaker[map[string][]string]
}

// NewClient creates a client for the configured provider.
// Returns ErrNoAPIKey if no key is set.
func NewClient(s Settings, opts Options) (*Client, error) {
	if s.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	baseURL, modelName, err := s.endpoint()
	if err != nil {
		return nil, err
	}

	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}

	cfg := openai.DefaultConfig(s.APIKey)
	cfg.BaseURL = baseURL
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	} else {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   modelName,
		opts:    opts,
		breaker: newBreaker(string(s.Provider)),
	}, nil
}

func newBreaker(name string) *gobreaker.CircuitBreaker[map[string][]string] {
	if name == "" {
		name = string(ProviderOpenAI)
	}
	return gobreaker.NewCircuitBreaker[map[string][]string](gobreaker.Settings{
		Name:        "ai-" + name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[WARN] circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

// WithLibrary returns a copy of the client whose prompts include the folder
// structure of store.
func (c *Client) WithLibrary(store *model.Store) *Client {
	cp := *c
	cp.library = BuildContext(store)
	return &cp
}

// Model returns the model name requests are sent with.
func (c *Client) Model() string {
	return c.model
}

// Categorize asks the model to sort bookmarks into the vocabulary. Large
// inputs are split into chunks, one request each. The result maps category
// to bookmark IDs or URLs.
func (c *Client) Categorize(ctx context.Context, bookmarks []model.Bookmark, vocabulary []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for start := 0; start < len(bookmarks); start += c.opts.ChunkSize {
		end := min(start+c.opts.ChunkSize, len(bookmarks))
		chunk := bookmarks[start:end]

		res, err := c.breaker.Execute(func() (map[string][]string, error) {
			return c.categorizeChunk(ctx, chunk, vocabulary)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, fmt.Errorf("%w: %v", ErrAPIRequest, err)
			}
			return nil, err
		}
		for cat, refs := range res {
			out[cat] = append(out[cat], refs...)
		}
		log.Printf("[DEBUG] categorized %d/%d bookmarks with %s", end, len(bookmarks), c.model)
	}
	return out, nil
}

// categorizeChunk sends one request, retrying transport failures and
// unparseable replies.
func (c *Client) categorizeChunk(ctx context.Context, bookmarks []model.Bookmark, vocabulary []string) (map[string][]string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		MaxTokens:   c.opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildCategorizePrompt(bookmarks, vocabulary, c.library)},
		},
	}

	var result map[string][]string
	retrier := repeater.NewBackoff(c.opts.Attempts, c.opts.RetryDelay, repeater.WithMaxDelay(10*time.Second))
	err := retrier.Do(ctx, func() error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			if isPermanent(err) {
				return fmt.Errorf("%w: %w: %v", errPermanent, ErrAPIRequest, err)
			}
			log.Printf("[DEBUG] ai request failed, may retry: %v", err)
			return fmt.Errorf("%w: %v", ErrAPIRequest, err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("%w: no choices", ErrInvalidResponse)
		}
		parsed, err := parseCategories(resp.Choices[0].Message.Content)
		if err != nil {
			log.Printf("[DEBUG] unparseable ai reply, may retry: %v", err)
			return err
		}
		result = parsed
		return nil
	}, errPermanent)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// isPermanent reports client errors other than rate limiting.
func isPermanent(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout
}
