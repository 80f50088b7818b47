package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeProvider records the models it was called with and fails every
// model except those in succeed.
type fakeProvider struct {
	mu      sync.Mutex
	calls   []string
	succeed map[string]string // model -> content to return
}

func (f *fakeProvider) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.calls = append(f.calls, req.Model)
		content, ok := f.succeed[req.Model]
		f.mu.Unlock()

		if !ok {
			http.Error(w, `{"error":"model unavailable"}`, http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
			"usage": map[string]int{"total_tokens": 10},
		})
	}
}

func newTestClient(t *testing.T, f *fakeProvider) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return New(Config{
		Endpoint: srv.URL,
		APIKey:   "test-key",
		Timeout:  5 * time.Second,
	}), srv
}

func TestExtractText_FallbackStopsAtFirstSuccess(t *testing.T) {
	f := &fakeProvider{succeed: map[string]string{"model-c": "extracted text"}}
	c, _ := newTestClient(t, f)

	res, err := c.ExtractText(context.Background(), OCRRequest{
		Data:     []byte("fake image"),
		Filename: "scan.png",
		Language: "en",
		Models:   []string{"model-a", "model-b", "model-c", "model-d"},
	})
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if res.Text != "extracted text" {
		t.Errorf("text: got %q", res.Text)
	}
	if res.Model != "model-c" {
		t.Errorf("model: got %q, want model-c", res.Model)
	}
	want := []string{"model-a", "model-b", "model-c"}
	if len(f.calls) != len(want) {
		t.Fatalf("calls: got %v, want %v", f.calls, want)
	}
	for i := range want {
		if f.calls[i] != want[i] {
			t.Errorf("call[%d]: got %s, want %s", i, f.calls[i], want[i])
		}
	}
}

func TestExtractText_AllModelsExhausted(t *testing.T) {
	f := &fakeProvider{succeed: map[string]string{}}
	c, _ := newTestClient(t, f)

	_, err := c.ExtractText(context.Background(), OCRRequest{
		Data:   []byte("x"),
		Models: []string{"a", "b"},
	})
	if err == nil {
		t.Fatal("want error when every model fails")
	}
	exhausted, ok := err.(*ErrAllModelsFailed)
	if !ok {
		t.Fatalf("error: got %T (%v), want *ErrAllModelsFailed", err, err)
	}
	if exhausted.Last == nil {
		t.Error("exhausted error should carry the last failure")
	}
}

func TestExtractText_SizeLimit(t *testing.T) {
	c := New(Config{APIKey: "k", MaxFileBytes: 10})

	_, err := c.ExtractText(context.Background(), OCRRequest{
		Data:   make([]byte, 11),
		Models: []string{"a"},
	})
	if _, ok := err.(*ErrFileTooLarge); !ok {
		t.Errorf("error: got %T (%v), want *ErrFileTooLarge", err, err)
	}
}

func TestExtractText_NoAPIKey(t *testing.T) {
	c := New(Config{})
	_, err := c.ExtractText(context.Background(), OCRRequest{Data: []byte("x"), Models: []string{"a"}})
	if _, ok := err.(*ErrNoAPIKey); !ok {
		t.Errorf("error: got %T (%v), want *ErrNoAPIKey", err, err)
	}
}

func TestExtractText_PDFMimeType(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		json.NewDecoder(r.Body).Decode(&raw)
		b, _ := json.Marshal(raw)
		gotBody = string(b)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "k"})
	if _, err := c.ExtractText(context.Background(), OCRRequest{
		Data:   []byte("%PDF"),
		IsPDF:  true,
		Models: []string{"m"},
	}); err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(gotBody, "data:application/pdf;base64,") {
		t.Error("PDF data URL should use application/pdf MIME type")
	}
}

func TestStructureMarkdown_StripsFence(t *testing.T) {
	f := &fakeProvider{succeed: map[string]string{"text-model": "```markdown\n# Title\n\nBody.\n```"}}
	c, _ := newTestClient(t, f)

	md, err := c.StructureMarkdown(context.Background(), "raw", "en", "text-model", PositionComplete)
	if err != nil {
		t.Fatalf("StructureMarkdown: %v", err)
	}
	if md != "# Title\n\nBody." {
		t.Errorf("markdown: got %q", md)
	}
}

func TestStructureMarkdown_RemoteFailureFallsBack(t *testing.T) {
	f := &fakeProvider{succeed: map[string]string{}}
	c, _ := newTestClient(t, f)

	md, err := c.StructureMarkdown(context.Background(), "SECTION ONE\nsome body text", "en", "m", PositionComplete)
	if err != nil {
		t.Fatalf("StructureMarkdown should fall back, got error: %v", err)
	}
	if !strings.Contains(md, "## SECTION ONE") {
		t.Errorf("fallback formatting missing heading: %q", md)
	}
}

func TestStructureMarkdown_NoKeyUsesHeuristic(t *testing.T) {
	c := New(Config{})
	md, err := c.StructureMarkdown(context.Background(), "plain text here", "en", "m", PositionComplete)
	if err != nil {
		t.Fatalf("StructureMarkdown: %v", err)
	}
	if md != "plain text here" {
		t.Errorf("markdown: got %q", md)
	}
}

func TestStripCodeFence_Idempotent(t *testing.T) {
	cases := []string{
		"# Title\n\nParagraph.",
		"plain text",
		"- a list\n- of items",
	}
	for _, s := range cases {
		once := StripCodeFence(s)
		twice := StripCodeFence(once)
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", s, once, twice)
		}
		if once != s {
			t.Errorf("unwrapped input should be a no-op: %q -> %q", s, once)
		}
	}
}

func TestStripCodeFence_Backticks(t *testing.T) {
	if got := StripCodeFence("`` `# Doc` ``"); strings.Contains(got, "``") {
		t.Errorf("stray backticks survive: %q", got)
	}
	if got := StripCodeFence("```markdown\ncontent\n```"); got != "content" {
		t.Errorf("fence strip: got %q, want content", got)
	}
}

func TestFormatPlainText(t *testing.T) {
	text := "CHAPTER ONE\nIt was a dark night.\nThe rain fell.\n\n- first item\n- second item\n\n1. numbered"
	got := FormatPlainText(text)

	if !strings.Contains(got, "## CHAPTER ONE") {
		t.Errorf("heading missing: %q", got)
	}
	if !strings.Contains(got, "It was a dark night. The rain fell.") {
		t.Errorf("paragraph not joined: %q", got)
	}
	if !strings.Contains(got, "- first item") || !strings.Contains(got, "1. numbered") {
		t.Errorf("list lines should pass through: %q", got)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	if err := New(Config{Endpoint: srv.URL, APIKey: "good"}).Ping(context.Background()); err != nil {
		t.Errorf("Ping with valid key: %v", err)
	}
	if err := New(Config{Endpoint: srv.URL, APIKey: "bad"}).Ping(context.Background()); err == nil {
		t.Error("Ping with invalid key should fail")
	}
}
