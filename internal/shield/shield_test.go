package shield

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/panelread/kit"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time                       { return c.now }
func (c *stepClock) After(time.Duration) <-chan time.Time { return nil }

func TestSecurityHeaders(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HeadToGet, SecurityHeaders(DefaultHeaders()))
	r.Get("/x", func(w http.ResponseWriter, _ *http.Request) {})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("HEAD", "/x", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("HEAD: got %d, want 200", w.Code)
	}
	for header, want := range map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "no-store",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s: got %q, want %q", header, got, want)
		}
	}
}

func TestTraceID(t *testing.T) {
	var gotID, gotTransport string
	h := TraceID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = kit.GetRequestID(r.Context())
		gotTransport = kit.GetTransport(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if len(gotID) != 16 || w.Header().Get("X-Request-ID") != gotID {
		t.Errorf("generated id: got %q, header %q", gotID, w.Header().Get("X-Request-ID"))
	}
	if gotTransport != "http" {
		t.Errorf("transport: got %q", gotTransport)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotID != "abc" {
		t.Errorf("propagated id: got %q", gotID)
	}
}

func TestRateLimiter(t *testing.T) {
	clk := &stepClock{now: time.Unix(1000, 0)}
	rl := NewRateLimiter(2, time.Minute, clk)
	h := rl.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	do := func(ip string) int {
		req := httptest.NewRequest("POST", "/panels/a/read", nil)
		req.RemoteAddr = ip + ":4000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	for i, want := range []int{200, 200, 429} {
		if got := do("10.0.0.1"); got != want {
			t.Errorf("request %d: got %d, want %d", i, got, want)
		}
	}
	if got := do("10.0.0.2"); got != 200 {
		t.Errorf("other client: got %d", got)
	}

	clk.now = clk.now.Add(61 * time.Second)
	if got := do("10.0.0.1"); got != 200 {
		t.Errorf("after window: got %d", got)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 0, nil)
	for i := 0; i < 10; i++ {
		if !rl.Allow("x") {
			t.Fatal("disabled limiter blocked")
		}
	}
}

func TestExtractIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := ExtractIP(req); got != "1.2.3.4" {
		t.Errorf("xff: got %q", got)
	}
	req = httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "5.6.7.8:999"
	if got := ExtractIP(req); got != "5.6.7.8" {
		t.Errorf("remote: got %q", got)
	}
}

func TestMaxBody(t *testing.T) {
	h := MaxBody(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader("0123456789")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body: got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader("0123")))
	if w.Code != http.StatusOK {
		t.Errorf("small body: got %d", w.Code)
	}
}
