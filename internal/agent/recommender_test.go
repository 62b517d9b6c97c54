package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"book-discovery/internal/agent/deps"
	"book-discovery/internal/agent/response"
	"book-discovery/internal/cache"
	"book-discovery/internal/config"

	"github.com/google/go-cmp/cmp"
)

type fakeLLM struct {
	calls   atomic.Int32
	reply   string
	err     error
	started chan struct{}
	release chan struct{}
	lastReq deps.CompletionRequest
	mu      sync.Mutex
}

func (f *fakeLLM) Model() string { return "fake-model" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req deps.CompletionRequest) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()

	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

const validReply = "```json\n" + `{"enhancedQuery":"stoic philosophy for beginners","recommendations":["Meditations by Marcus Aurelius","Letters from a Stoic by Seneca"],"searchTerms":["stoicism","philosophy"]}` + "\n```"

func TestFetchParsesAndCaches(t *testing.T) {
	llm := &fakeLLM{reply: validReply}
	c := cache.New(time.Minute)
	r := NewRecommender(llm, c, DefaultOptions())

	rec, err := r.Fetch(context.Background(), "Stoicism")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []string{"Meditations by Marcus Aurelius", "Letters from a Stoic by Seneca"}
	if diff := cmp.Diff(want, rec.Recommendations); diff != "" {
		t.Fatalf("recommendations mismatch (-want +got):\n%s", diff)
	}
	if rec.EnhancedQuery != "stoic philosophy for beginners" {
		t.Fatalf("unexpected enhanced query %q", rec.EnhancedQuery)
	}

	if _, err := r.Fetch(context.Background(), "  stoicism "); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if n := llm.calls.Load(); n != 1 {
		t.Fatalf("expected 1 upstream call, got %d", n)
	}
}

func TestFetchSendsPrompts(t *testing.T) {
	llm := &fakeLLM{reply: validReply}
	r := NewRecommender(llm, nil, Options{Temperature: 0.5, MaxTokens: 300, TopP: 0.8, Timeout: time.Second})

	if _, err := r.Fetch(context.Background(), "books on habits"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	req := llm.lastReq
	if !strings.Contains(req.SystemPrompt, "ONLY a JSON object") {
		t.Fatalf("system prompt missing JSON instruction: %s", req.SystemPrompt)
	}
	if !strings.Contains(req.UserPrompt, "books on habits") {
		t.Fatalf("user prompt missing query: %s", req.UserPrompt)
	}
	if req.Temperature != 0.5 || req.MaxTokens != 300 || req.TopP != 0.8 {
		t.Fatalf("sampling options not forwarded: %+v", req)
	}
}

func TestFetchMalformedReplyIsParseError(t *testing.T) {
	for _, reply := range []string{"I cannot help with that", "```json\n{\"recommendations\": [\n```", `{"foo": 1}`, `{"enhancedQuery":"x","recommendations":[]}`} {
		r := NewRecommender(&fakeLLM{reply: reply}, nil, DefaultOptions())
		_, err := r.Fetch(context.Background(), "anything")

		var up *UpstreamError
		if !errors.As(err, &up) {
			t.Fatalf("reply %q: expected UpstreamError, got %v", reply, err)
		}
		var pe *response.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("reply %q: expected ParseError, got %v", reply, err)
		}
	}
}

func TestFetchUpstreamFailureNotCached(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection reset")}
	c := cache.New(time.Minute)
	r := NewRecommender(llm, c, DefaultOptions())

	_, err := r.Fetch(context.Background(), "q")
	var up *UpstreamError
	if !errors.As(err, &up) || up.Op != "request" {
		t.Fatalf("expected request UpstreamError, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatal("failures must not be cached")
	}
}

func TestFetchTimeout(t *testing.T) {
	llm := &fakeLLM{release: make(chan struct{})}
	r := NewRecommender(llm, nil, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := r.Fetch(context.Background(), "slow")
	if time.Since(start) > time.Second {
		t.Fatal("timeout was not applied")
	}
	var up *UpstreamError
	if !errors.As(err, &up) || up.Op != "timeout" {
		t.Fatalf("expected timeout UpstreamError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped DeadlineExceeded, got %v", err)
	}
}

func TestFetchWithoutClient(t *testing.T) {
	r := NewRecommender(nil, nil, DefaultOptions())
	_, err := r.Fetch(context.Background(), "q")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	var up *UpstreamError
	if !errors.As(err, &up) {
		t.Fatalf("expected UpstreamError, got %T", err)
	}
}

func TestFetchCoalescesConcurrentRequests(t *testing.T) {
	llm := &fakeLLM{reply: validReply, started: make(chan struct{}, 1), release: make(chan struct{})}
	r := NewRecommender(llm, nil, Options{Timeout: 5 * time.Second})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, q := range []string{"Stoicism", "stoicism "} {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			_, err := r.Fetch(context.Background(), q)
			errs <- err
		}(q)
	}

	<-llm.started
	time.Sleep(50 * time.Millisecond)
	close(llm.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}
	if n := llm.calls.Load(); n != 1 {
		t.Fatalf("expected 1 upstream call, got %d", n)
	}
}

func TestFetchCallerCancelDoesNotAffectSharedCall(t *testing.T) {
	llm := &fakeLLM{reply: validReply, started: make(chan struct{}, 1), release: make(chan struct{})}
	r := NewRecommender(llm, nil, Options{Timeout: 5 * time.Second})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := r.Fetch(ctxA, "stoicism")
		errA <- err
	}()
	<-llm.started

	errB := make(chan error, 1)
	go func() {
		_, err := r.Fetch(context.Background(), "Stoicism")
		errB <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared call")
	}

	close(llm.release)
	select {
	case err := <-errB:
		if err != nil {
			t.Fatalf("live caller got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("live caller never returned")
	}
	if n := llm.calls.Load(); n != 1 {
		t.Fatalf("expected 1 upstream call, got %d", n)
	}
}

func TestOpenAILLMClientRequestShape(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","model":"test-model","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewOpenAILLMClient("sk-test", srv.URL+"/v1", "test-model", srv.Client())
	text, err := client.GenerateContent(context.Background(), deps.CompletionRequest{
		SystemPrompt: "sys",
		UserPrompt:   "user",
		Temperature:  0.5,
		TopP:         0.5,
		MaxTokens:    100,
	})
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if text != "hello" {
		t.Fatalf("unexpected text %q", text)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if got["model"] != "test-model" || got["max_tokens"] != float64(100) || got["temperature"] != 0.5 || got["top_p"] != 0.5 {
		t.Fatalf("unexpected request body: %v", got)
	}
	msgs, ok := got["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %v", got["messages"])
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "sys" {
		t.Fatalf("unexpected system message %v", first)
	}
}

func TestOpenAILLMClientRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	client := NewOpenAILLMClient("sk-test", srv.URL+"/v1", "test-model", srv.Client())
	_, err := client.GenerateContent(context.Background(), deps.CompletionRequest{UserPrompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRateLimited(err) {
		t.Fatalf("expected rate-limit classification for %v", err)
	}
}

func TestIsRateLimited(t *testing.T) {
	if IsRateLimited(nil) {
		t.Fatal("nil is not rate limited")
	}
	if IsRateLimited(errors.New("connection refused")) {
		t.Fatal("plain error is not rate limited")
	}
	if !IsRateLimited(errors.New("Error 429, Message: quota, Status: RESOURCE_EXHAUSTED")) {
		t.Fatal("gemini quota error should be rate limited")
	}
}

func TestNewLLMClientRequiresKey(t *testing.T) {
	if _, err := NewLLMClient(context.Background(), configWithKey(""), nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	client, err := NewLLMClient(context.Background(), configWithKey("sk"), nil)
	if err != nil {
		t.Fatalf("NewLLMClient: %v", err)
	}
	if client.Model() != DefaultOpenAIModel {
		t.Fatalf("expected default model, got %s", client.Model())
	}
}

func configWithKey(key string) config.LLMConfig {
	cfg := config.Default().LLM
	cfg.APIKey = key
	return cfg
}
