package netutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Test"); got != "yes" {
			t.Errorf("missing custom header, got %q", got)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}

	body, err := Fetch(context.Background(), client, srv.URL, map[string]string{"X-Test": "yes"})
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = Fetch(context.Background(), client, srv.URL, nil)
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", statusErr.StatusCode)
	}
}

func TestFetch_ContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := Fetch(ctx, client, srv.URL, nil); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestNewClient_UnsupportedProxyScheme(t *testing.T) {
	u := mustParse(t, "ftp://proxy.local:21")
	if _, err := NewClient(ClientOptions{ProxyURL: u}); err == nil {
		t.Fatal("expected error for unsupported proxy scheme")
	}
}

func TestNewClient_HTTPProxy(t *testing.T) {
	u := mustParse(t, "http://proxy.local:8080")
	client, err := NewClient(ClientOptions{ProxyURL: u})
	if err != nil {
		t.Fatal(err)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok || transport.Proxy == nil {
		t.Fatal("http proxy should be set on transport")
	}
}
