package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recordingLog struct {
	lines []string
}

func (l *recordingLog) Logf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func newTestClient() (*Client, *[]time.Duration) {
	c := NewClient("test-agent")
	var waits []time.Duration
	c.SetSleep(func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	})
	return c, &waits
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("Expected user agent 'test-agent', got: %q", ua)
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c, _ := newTestClient()
	resp, err := c.Fetch(context.Background(), nil, Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("Expected body 'hello', got: %q", resp.Body)
	}
}

func TestFetchRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, waits := newTestClient()
	log := &recordingLog{}

	resp, err := c.Fetch(context.Background(), log, Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Expected success on third attempt, got: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("Expected body 'ok', got: %q", resp.Body)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got: %d", calls)
	}
	if len(*waits) != 2 {
		t.Fatalf("Expected 2 backoff waits, got: %d", len(*waits))
	}
	for _, d := range *waits {
		if d != c.RateCooldown {
			t.Errorf("Expected cooldown %s, got: %s", c.RateCooldown, d)
		}
	}
	if len(log.lines) != 2 {
		t.Errorf("Expected 2 logged backoffs, got: %v", log.lines)
	}
}

func TestFetchNotFoundIsTerminal(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, waits := newTestClient()
	_, err := c.Fetch(context.Background(), &recordingLog{}, Request{URL: srv.URL})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !IsTerminalStatus(err) {
		t.Errorf("Expected terminal status error, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected no retries for 404, got %d calls", calls)
	}
	if len(*waits) != 0 {
		t.Errorf("Expected no waits for 404, got: %v", *waits)
	}
}

func TestFetchServerErrorRetriesWithShortDelay(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, waits := newTestClient()
	_, err := c.Fetch(context.Background(), &recordingLog{}, Request{URL: srv.URL})
	if err == nil {
		t.Fatal("Expected an error after exhausting retries")
	}
	if calls != c.MaxRetries+1 {
		t.Errorf("Expected %d attempts, got: %d", c.MaxRetries+1, calls)
	}
	for _, d := range *waits {
		if d != c.ErrRetryWait {
			t.Errorf("Expected short delay %s, got: %s", c.ErrRetryWait, d)
		}
	}
}

func TestFetchSendsCookiesAndForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("LOFTER-PHONE-LOGIN-AUTH"); err != nil || c.Value != "tok" {
			t.Errorf("Expected auth cookie, got: %v", r.Cookies())
		}
		r.ParseForm()
		if r.PostFormValue("c0-param0") != "number:1" {
			t.Errorf("Expected form field, got: %v", r.PostForm)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := newTestClient()
	form := map[string][]string{"c0-param0": {"number:1"}}
	_, err := c.Fetch(context.Background(), nil, Request{
		URL:     srv.URL,
		Method:  http.MethodPost,
		Cookies: map[string]string{"LOFTER-PHONE-LOGIN-AUTH": "tok"},
		Form:    form,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}
