package keepalive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPingHandlerReturnsUp(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)

	Ping(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "UP" {
		t.Fatalf("expected body %q, got %q", "UP", rec.Body.String())
	}
}

func TestProberPingsServerOnTick(t *testing.T) {
	hits := make(chan struct{}, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
		Ping(w, r)
	}))
	defer server.Close()

	p := New(server.URL, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	select {
	case <-hits:
	case <-time.After(2 * time.Second):
		t.Fatal("prober did not ping the server in time")
	}
}

func TestRunIsNoOpForNonPositiveInterval(t *testing.T) {
	p := New("http://example.invalid", 0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Run with a non-positive interval should return immediately")
	}
}
