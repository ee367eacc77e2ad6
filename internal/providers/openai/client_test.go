package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"imagestudio/internal/domain"
)

type wirePart struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

type wireChatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string     `json:"role"`
		Content []wirePart `json:"content"`
	} `json:"messages"`
	MaxTokens int `json:"max_tokens"`
}

type wireImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(Options{BaseURL: ts.URL + "/v1", HTTPClient: ts.Client()})
}

func writeProviderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "invalid_request_error"},
	})
}

func asDomainError(t *testing.T, err error) *domain.Error {
	t.Helper()
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *domain.Error, got %T: %v", err, err)
	}
	return de
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Options{})
	if c.ChatModel() != "gpt-4o" {
		t.Fatalf("chat model = %q", c.ChatModel())
	}
	if c.ImageModel() != "dall-e-3" {
		t.Fatalf("image model = %q", c.ImageModel())
	}
	if c.baseURL != DefaultBaseURL {
		t.Fatalf("base url = %q", c.baseURL)
	}
}

func TestValidateKey(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"gpt-4o","object":"model"}]}`)
	})

	if err := client.ValidateKey(context.Background(), "sk-test"); err != nil {
		t.Fatalf("ValidateKey error: %v", err)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotMethod != http.MethodGet || gotPath != "/v1/models" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
}

func TestValidateKeyRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeProviderError(w, http.StatusUnauthorized, "Incorrect API key provided: sk-bad.")
	})

	de := asDomainError(t, client.ValidateKey(context.Background(), "sk-bad"))
	if de.Kind != domain.KindProvider || de.Code != domain.CodeInvalidKey {
		t.Fatalf("error = %+v, want provider/invalid_key", de)
	}
	if de.Detail != "" {
		t.Fatalf("detail = %q, want fixed message only", de.Detail)
	}
}

func TestValidateKeyNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := ts.URL
	ts.Close()

	client := NewClient(Options{BaseURL: base + "/v1"})
	de := asDomainError(t, client.ValidateKey(context.Background(), "sk-test"))
	if de.Kind != domain.KindNetwork || de.Code != domain.CodeNetwork {
		t.Fatalf("error = %+v, want network", de)
	}
}

func TestRefinePromptPayload(t *testing.T) {
	images := []string{"data:image/png;base64,AAAA", "data:image/jpeg;base64,BBBB"}
	var captured wireChatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"A watercolor fox"},"finish_reason":"stop"}]}`)
	})

	got, err := client.RefinePrompt(context.Background(), "sk-test", images, "make it a fox")
	if err != nil {
		t.Fatalf("RefinePrompt error: %v", err)
	}
	if got != "A watercolor fox" {
		t.Fatalf("refined prompt = %q", got)
	}
	if captured.Model != "gpt-4o" || captured.MaxTokens != MaxRefineTokens {
		t.Fatalf("model/max_tokens = %q/%d", captured.Model, captured.MaxTokens)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", captured.Messages)
	}
	content := captured.Messages[0].Content
	if len(content) != 3 {
		t.Fatalf("content parts = %d, want 3", len(content))
	}
	if content[0].Type != "text" || !strings.Contains(content[0].Text, "2 images") || !strings.Contains(content[0].Text, "make it a fox") {
		t.Fatalf("text part = %+v", content[0])
	}
	for i, img := range images {
		part := content[i+1]
		if part.Type != "image_url" || part.ImageURL == nil || part.ImageURL.URL != img {
			t.Fatalf("image part %d = %+v", i, part)
		}
	}
}

func TestRefinePromptErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantKind   domain.Kind
		wantCode   string
		wantDetail string
	}{
		{
			name: "provider message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeProviderError(w, http.StatusBadRequest, "Invalid image data")
			},
			wantKind:   domain.KindProvider,
			wantCode:   domain.CodeRefineFailed,
			wantDetail: "Invalid image data",
		},
		{
			name: "provider without payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(http.StatusBadGateway)
				_, _ = io.WriteString(w, "upstream down")
			},
			wantKind: domain.KindProvider,
			wantCode: domain.CodeRefineFailed,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"id":"c1","choices":[]}`)
			},
			wantKind: domain.KindUnexpected,
			wantCode: domain.CodeUnexpected,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"choices":`)
			},
			wantKind: domain.KindUnexpected,
			wantCode: domain.CodeUnexpected,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, tc.handler)
			_, err := client.RefinePrompt(context.Background(), "sk-test", []string{"data:image/png;base64,AAAA"}, "p")
			de := asDomainError(t, err)
			if de.Kind != tc.wantKind || de.Code != tc.wantCode {
				t.Fatalf("error = %+v, want %s/%s", de, tc.wantKind, tc.wantCode)
			}
			if de.Detail != tc.wantDetail {
				t.Fatalf("detail = %q, want %q", de.Detail, tc.wantDetail)
			}
		})
	}
}

func TestGenerateImagePayload(t *testing.T) {
	var captured wireImageRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/generations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":1700000000,"data":[{"url":"https://images.example.com/out.png"}]}`)
	})

	got, err := client.GenerateImage(context.Background(), "sk-test", "A watercolor fox")
	if err != nil {
		t.Fatalf("GenerateImage error: %v", err)
	}
	if got != "https://images.example.com/out.png" {
		t.Fatalf("url = %q", got)
	}
	if captured.Model != "dall-e-3" || captured.Prompt != "A watercolor fox" || captured.N != 1 || captured.Size != "1024x1024" {
		t.Fatalf("payload = %+v", captured)
	}
}

func TestGenerateImageProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeProviderError(w, http.StatusBadRequest, "Your request was rejected by the safety system.")
	})

	_, err := client.GenerateImage(context.Background(), "sk-test", "p")
	de := asDomainError(t, err)
	if de.Kind != domain.KindProvider || de.Code != domain.CodeGenerateFailed {
		t.Fatalf("error = %+v", de)
	}
	if de.Detail != "Your request was rejected by the safety system." {
		t.Fatalf("detail = %q", de.Detail)
	}
}

func TestFetchImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write([]byte("RIFF....WEBP"))
	}))
	defer ts.Close()
	client := NewClient(Options{HTTPClient: ts.Client()})

	body, contentType, err := client.FetchImage(context.Background(), ts.URL+"/out.webp")
	if err != nil {
		t.Fatalf("FetchImage error: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "RIFF....WEBP" || contentType != "image/webp" {
		t.Fatalf("got %q (%s)", data, contentType)
	}

	_, _, err = client.FetchImage(context.Background(), ts.URL+"/missing.png")
	if de := asDomainError(t, err); de.Code != domain.CodeDownloadFailed {
		t.Fatalf("error = %+v", de)
	}

	_, _, err = client.FetchImage(context.Background(), "ftp://example.com/x.png")
	if de := asDomainError(t, err); de.Code != domain.CodeDownloadFailed {
		t.Fatalf("error = %+v", de)
	}
}

func TestNonSuccessStatusWithDecodableBody(t *testing.T) {
	bodies := map[string]string{
		"/v1/models":             `{"object":"list","data":[]}`,
		"/v1/chat/completions":   `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"a cat"}}]}`,
		"/v1/images/generations": `{"created":1,"data":[{"url":"https://cdn.example/a.png"}]}`,
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMultipleChoices)
		_, _ = io.WriteString(w, bodies[r.URL.Path])
	})
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() error
		wantCode string
	}{
		{
			name:     "validate key",
			call:     func() error { return client.ValidateKey(ctx, "sk") },
			wantCode: domain.CodeInvalidKey,
		},
		{
			name: "refine prompt",
			call: func() error {
				_, err := client.RefinePrompt(ctx, "sk", []string{"data:image/png;base64,AAAA"}, "cat")
				return err
			},
			wantCode: domain.CodeRefineFailed,
		},
		{
			name: "generate image",
			call: func() error {
				_, err := client.GenerateImage(ctx, "sk", "cat")
				return err
			},
			wantCode: domain.CodeGenerateFailed,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			de := asDomainError(t, tc.call())
			if de.Kind != domain.KindProvider || de.Code != tc.wantCode {
				t.Fatalf("error = %+v, want provider/%s", de, tc.wantCode)
			}
		})
	}
}
