package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `id="key-screen"`) {
		t.Fatalf("index missing key screen")
	}
}

func TestAssets(t *testing.T) {
	for _, path := range []string{"/static/app.js", "/static/app.css"} {
		rec := httptest.NewRecorder()
		Assets().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestAppScriptGuards(t *testing.T) {
	rec := httptest.NewRecorder()
	Assets().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	body := rec.Body.String()

	// The prompt limit is in characters, which maxLength does not count.
	if strings.Contains(body, "maxLength") {
		t.Fatalf("app.js limits the prompt with maxLength")
	}
	for _, want := range []string{
		"chars.slice(0, state.max_prompt_length)",
		`call("GET", "/api/state", undefined, () => settled)`,
		"if (isStale && isStale()) return;",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("app.js missing %q", want)
		}
	}
}
