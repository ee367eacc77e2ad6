// Package openai talks to the OpenAI REST API on behalf of a user-supplied key.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gogpt "github.com/sashabaranov/go-openai"

	"imagestudio/internal/domain"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultChatModel  = gogpt.GPT4o
	DefaultImageModel = gogpt.CreateImageModelDallE3

	// ImageSize is the only size the studio requests.
	ImageSize = gogpt.CreateImageSize1024x1024
	// MaxRefineTokens caps the refined prompt completion.
	MaxRefineTokens = 1000
)

// Options configures the client. The API key is not part of it: every call
// carries the key of the session that issued it.
type Options struct {
	BaseURL    string
	ChatModel  string
	ImageModel string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client issues the validation, refinement, synthesis and download calls.
type Client struct {
	baseURL    string
	chatModel  string
	imageModel string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient constructs a client. No timeout is set on the default HTTP
// client; calls run until the transport gives up.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	chatModel := strings.TrimSpace(opts.ChatModel)
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = DefaultImageModel
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		baseURL:    baseURL,
		chatModel:  chatModel,
		imageModel: imageModel,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ChatModel returns the configured multimodal model identifier.
func (c *Client) ChatModel() string {
	return c.chatModel
}

// ImageModel returns the configured image model identifier.
func (c *Client) ImageModel() string {
	return c.imageModel
}

// ValidateKey lists models with key. Any 2xx means the key is usable.
func (c *Client) ValidateKey(ctx context.Context, key string) error {
	sdk, rec := c.sdk(key)
	start := time.Now()
	_, err := sdk.ListModels(ctx)
	err = rec.check(err)
	c.logger.Debug().Int("status", rec.status).Dur("took", time.Since(start)).Msg("openai: list models")
	if err == nil {
		return nil
	}
	de := classify(err, rec.status, domain.CodeInvalidKey)
	if de.Kind == domain.KindProvider {
		// The provider's wording is replaced by the fixed invalid-key message.
		de.Detail = ""
	}
	return de
}

// RefinePrompt sends the uploaded images and the user prompt to the chat
// model and returns the first completion's text.
func (c *Client) RefinePrompt(ctx context.Context, key string, images []string, prompt string) (string, error) {
	parts := make([]gogpt.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, gogpt.ChatMessagePart{
		Type: gogpt.ChatMessagePartTypeText,
		Text: BuildInstruction(len(images), prompt),
	})
	for _, img := range images {
		parts = append(parts, gogpt.ChatMessagePart{
			Type:     gogpt.ChatMessagePartTypeImageURL,
			ImageURL: &gogpt.ChatMessageImageURL{URL: img},
		})
	}
	req := gogpt.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []gogpt.ChatCompletionMessage{{
			Role:         gogpt.ChatMessageRoleUser,
			MultiContent: parts,
		}},
		MaxTokens: MaxRefineTokens,
	}

	sdk, rec := c.sdk(key)
	start := time.Now()
	resp, err := sdk.CreateChatCompletion(ctx, req)
	err = rec.check(err)
	c.logger.Debug().
		Str("model", c.chatModel).
		Int("images", len(images)).
		Int("status", rec.status).
		Dur("took", time.Since(start)).
		Msg("openai: chat completion")
	if err != nil {
		return "", classify(err, rec.status, domain.CodeRefineFailed)
	}
	if len(resp.Choices) == 0 {
		return "", domain.Unexpected(errors.New("openai: chat completion returned no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateImage renders prompt as one square image and returns its URL.
func (c *Client) GenerateImage(ctx context.Context, key string, prompt string) (string, error) {
	req := gogpt.ImageRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		N:      1,
		Size:   ImageSize,
	}

	sdk, rec := c.sdk(key)
	start := time.Now()
	resp, err := sdk.CreateImage(ctx, req)
	err = rec.check(err)
	c.logger.Debug().
		Str("model", c.imageModel).
		Int("status", rec.status).
		Dur("took", time.Since(start)).
		Msg("openai: image generation")
	if err != nil {
		return "", classify(err, rec.status, domain.CodeGenerateFailed)
	}
	if len(resp.Data) == 0 {
		return "", domain.Unexpected(errors.New("openai: image generation returned no data"))
	}
	return resp.Data[0].URL, nil
}

// FetchImage downloads a generated image. The caller closes the body.
func (c *Client) FetchImage(ctx context.Context, imageURL string) (io.ReadCloser, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, "", &domain.Error{Kind: domain.KindUnexpected, Code: domain.CodeDownloadFailed, Err: fmt.Errorf("openai: invalid image url %q", imageURL)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", domain.Unexpected(fmt.Errorf("openai: build download request: %w", err))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", domain.Network(fmt.Errorf("openai: download image: %w", err))
	}
	if resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, "", &domain.Error{Kind: domain.KindProvider, Code: domain.CodeDownloadFailed, Err: fmt.Errorf("openai: download status %d", resp.StatusCode)}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return resp.Body, contentType, nil
}

// sdk builds a go-openai client bound to key. The returned recorder sees the
// HTTP status of the call so failures can be told apart by whether the
// provider answered at all.
func (c *Client) sdk(key string) (*gogpt.Client, *statusRecorder) {
	next := c.httpClient.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	rec := &statusRecorder{next: next}
	cfg := gogpt.DefaultConfig(strings.TrimSpace(key))
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = &http.Client{
		Transport:     rec,
		CheckRedirect: c.httpClient.CheckRedirect,
		Jar:           c.httpClient.Jar,
		Timeout:       c.httpClient.Timeout,
	}
	return gogpt.NewClientWithConfig(cfg), rec
}

type statusRecorder struct {
	next   http.RoundTripper
	status int
}

// check turns a call the SDK accepted into an error when the status was not
// 2xx. The SDK only fails on 4xx and 5xx, so a decodable 3xx body would
// otherwise pass as a result.
func (s *statusRecorder) check(err error) error {
	if err == nil && (s.status < 200 || s.status >= 300) {
		return fmt.Errorf("openai: unexpected status %d", s.status)
	}
	return err
}

func (s *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := s.next.RoundTrip(req)
	if err == nil {
		s.status = resp.StatusCode
	}
	return resp, err
}
