package pdf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func newSearchServer(t *testing.T, status int, body string, gotQuery *url.Values, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if gotQuery != nil {
			*gotQuery = r.URL.Query()
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLocateDisabledWithoutCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := newSearchServer(t, http.StatusOK, `{}`, nil, &calls)

	for _, opts := range []Options{
		{Endpoint: srv.URL},
		{Endpoint: srv.URL, APIKey: "k"},
		{Endpoint: srv.URL, EngineID: "cx"},
	} {
		l := NewLocator(srv.Client(), opts)
		if l.Enabled() {
			t.Fatalf("locator should be disabled for %+v", opts)
		}
		if _, ok := l.Locate(context.Background(), "Dune", "Frank Herbert"); ok {
			t.Fatal("expected absent")
		}
	}
	if n := calls.Load(); n != 0 {
		t.Fatalf("expected no network calls, got %d", n)
	}
}

func TestLocateRequestShape(t *testing.T) {
	var calls atomic.Int32
	var q url.Values
	srv := newSearchServer(t, http.StatusOK, `{"items":[]}`, &q, &calls)

	l := NewLocator(srv.Client(), Options{APIKey: "key-1", EngineID: "cx-1", Endpoint: srv.URL})
	l.Locate(context.Background(), `The "Hobbit"`, "J.R.R. Tolkien")

	want := map[string]string{
		"key":  "key-1",
		"cx":   "cx-1",
		"q":    `"The Hobbit" J.R.R. Tolkien filetype:pdf`,
		"num":  "5",
		"safe": "active",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Fatalf("param %s = %q, want %q", k, got, v)
		}
	}
}

func TestLocateSelection(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name:   "pdf suffix wins over earlier mention",
			body:   `{"items":[{"link":"https://a.example/pdf-viewer","snippet":"read the PDF"},{"link":"https://b.example/books/dune.PDF?dl=1"}]}`,
			want:   "https://b.example/books/dune.PDF?dl=1",
			wantOK: true,
		},
		{
			name:   "mention in display link",
			body:   `{"items":[{"link":"https://a.example/page","displayLink":"a.example"},{"link":"https://b.example/view","displayLink":"pdfdrive.example"}]}`,
			want:   "https://b.example/view",
			wantOK: true,
		},
		{
			name:   "mention in snippet",
			body:   `{"items":[{"link":"https://a.example/page","snippet":"Download PDF free"}]}`,
			want:   "https://a.example/page",
			wantOK: true,
		},
		{
			name: "nothing relevant",
			body: `{"items":[{"link":"https://a.example/page","snippet":"a review"}]}`,
		},
		{
			name: "no items",
			body: `{}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := newSearchServer(t, http.StatusOK, tt.body, nil, &calls)
			l := NewLocator(srv.Client(), Options{APIKey: "k", EngineID: "cx", Endpoint: srv.URL})

			got, ok := l.Locate(context.Background(), "Dune", "Frank Herbert")
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Locate() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLocateUpstreamErrorIsAbsent(t *testing.T) {
	var calls atomic.Int32
	srv := newSearchServer(t, http.StatusForbidden, `{"error":{"message":"quota"}}`, nil, &calls)
	l := NewLocator(srv.Client(), Options{APIKey: "k", EngineID: "cx", Endpoint: srv.URL})

	if _, ok := l.Locate(context.Background(), "Dune", ""); ok {
		t.Fatal("expected absent on upstream error")
	}
}

func TestLocateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	l := NewLocator(srv.Client(), Options{APIKey: "k", EngineID: "cx", Endpoint: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	if _, ok := l.Locate(context.Background(), "Dune", ""); ok {
		t.Fatal("expected absent on timeout")
	}
	if time.Since(start) > time.Second {
		t.Fatal("timeout was not applied")
	}
}

func TestIsPDFPath(t *testing.T) {
	tests := map[string]bool{
		"https://x.example/a.pdf":           true,
		"https://x.example/a.Pdf?x=1#p=2":   true,
		"https://x.example/a.pdf.html":      false,
		"https://x.example/view?file=a.pdf": false,
		"":                                  false,
	}
	for link, want := range tests {
		if got := isPDFPath(link); got != want {
			t.Fatalf("isPDFPath(%q) = %v, want %v", link, got, want)
		}
	}
}
