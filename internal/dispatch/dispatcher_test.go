package dispatch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"dymgr/internal/services"
)

func TestDispatcherAttachesBearerWhenTokenPresent(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	token := "tok-abc"
	d := New(server.URL, WithTokenSource(TokenFunc(func() (string, bool) { return token, token != "" })))

	if err := d.Get(context.Background(), "/auth/me", nil, nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := gotAuth.Load().(string); got != "Bearer tok-abc" {
		t.Fatalf("expected bearer header, got %q", got)
	}

	token = ""
	if err := d.Get(context.Background(), "/auth/me", nil, nil); err != nil {
		t.Fatalf("get without token: %v", err)
	}
	if got := gotAuth.Load().(string); got != "" {
		t.Fatalf("expected no authorization header, got %q", got)
	}
}

func TestDispatcherWithoutTokenSourceSendsNoHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := New(server.URL)
	if err := d.Delete(context.Background(), "/videos/1", nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestDispatcherSetTokenSourceTakesEffect(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
	}))
	defer server.Close()

	d := New(server.URL)
	d.SetTokenSource(TokenFunc(func() (string, bool) { return "late", true }))
	if err := d.Get(context.Background(), "/auth/me", nil, nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := gotAuth.Load().(string); got != "Bearer late" {
		t.Fatalf("expected late-bound token, got %q", got)
	}
}

func TestDispatcherResolvesPathsAndQuery(t *testing.T) {
	var gotURL atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL.Store(r.URL.String())
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("expected json accept header, got %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("User-Agent") != "dymgr-test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
	}))
	defer server.Close()

	d := New(server.URL+"/api/v1/", WithUserAgent("dymgr-test"))
	query := url.Values{"skip": {"20"}, "limit": {"10"}}
	if err := d.Get(context.Background(), "videos", query, nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := gotURL.Load().(string); got != "/api/v1/videos?limit=10&skip=20" {
		t.Fatalf("unexpected url %q", got)
	}

	if err := d.Get(context.Background(), server.URL+"/health", nil, nil); err != nil {
		t.Fatalf("absolute get: %v", err)
	}
	if got := gotURL.Load().(string); got != "/health" {
		t.Fatalf("absolute path should bypass base, got %q", got)
	}
}

func TestDispatcherEncodesFormBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "u1303" || r.PostForm.Get("password") != "p" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-abc","token_type":"bearer"}`))
	}))
	defer server.Close()

	var out struct {
		AccessToken string `json:"access_token"`
	}
	d := New(server.URL)
	form := url.Values{"username": {"u1303"}, "password": {"p"}}
	if err := d.PostForm(context.Background(), "/auth/token", form, &out); err != nil {
		t.Fatalf("post form: %v", err)
	}
	if out.AccessToken != "tok-abc" {
		t.Fatalf("unexpected decoded token %q", out.AccessToken)
	}
}

func TestDispatcherStreamsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("title") != "clip" {
			t.Errorf("unexpected title %q", r.FormValue("title"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "clip.mp4" || string(data) != "frames" {
			t.Errorf("unexpected file %q %q", header.Filename, data)
		}
	}))
	defer server.Close()

	d := New(server.URL)
	payload := &Multipart{
		Fields: []Field{{Name: "title", Value: "clip"}},
		Files:  []File{{Field: "file", Filename: "clip.mp4", Content: strings.NewReader("frames")}},
	}
	if err := d.PostMultipart(context.Background(), "/videos/upload", payload, nil); err != nil {
		t.Fatalf("post multipart: %v", err)
	}
}

func TestDispatcherReleasesMultipartWriterOnBuildFailure(t *testing.T) {
	d := New("http://127.0.0.1:1")
	baseline := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		err := d.Do(context.Background(), Request{
			Method: "BAD METHOD",
			Path:   "/videos/upload",
			Multipart: &Multipart{
				Fields: []Field{{Name: "title", Value: "clip"}},
				Files:  []File{{Field: "file", Filename: "clip.mp4", Content: strings.NewReader("frames")}},
			},
		}, nil)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for invalid method, got %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > baseline {
		if time.Now().After(deadline) {
			t.Fatalf("multipart writers still running: %d goroutines, baseline %d", runtime.NumGoroutine(), baseline)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDispatcherPropagatesRequestID(t *testing.T) {
	var gotID atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID.Store(r.Header.Get(RequestIDHeader))
	}))
	defer server.Close()

	d := New(server.URL)
	ctx := services.WithRequestID(context.Background(), "req-42")
	if err := d.Get(ctx, "/auth/me", nil, nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := gotID.Load().(string); got != "req-42" {
		t.Fatalf("expected propagated request id, got %q", got)
	}

	if err := d.Get(context.Background(), "/auth/me", nil, nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := gotID.Load().(string); len(got) != 36 {
		t.Fatalf("expected generated uuid request id, got %q", got)
	}
}

func TestDispatcherTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	d := New(server.URL, WithTimeout(50*time.Millisecond))
	err := d.Get(context.Background(), "/videos", nil, nil)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestDispatcherNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	d := New(base)
	err := d.Get(context.Background(), "/videos", nil, nil)
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network marker, got %v", err)
	}
}

func TestDispatcherReturnsCallerCancellation(t *testing.T) {
	d := New("http://127.0.0.1:1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Get(ctx, "/videos", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDispatcherHTTPErrorCarriesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/token":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"invalid credentials"}`))
		case "/videos/9":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"video missing"}`))
		case "/ai/text":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":[{"loc":["query","prompt"],"msg":"field required","type":"value_error.missing"}]}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`upstream exploded`))
		}
	}))
	defer server.Close()

	hookCalls := 0
	d := New(server.URL, WithUnauthorizedHook(func() { hookCalls++ }))

	err := d.PostForm(context.Background(), "/auth/token", url.Values{}, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T %v", err, err)
	}
	if httpErr.StatusCode != http.StatusUnauthorized || httpErr.Detail != "invalid credentials" {
		t.Fatalf("unexpected http error %+v", httpErr)
	}
	if !errors.Is(err, services.ErrUnauthorized) {
		t.Fatal("expected 401 to unwrap to ErrUnauthorized")
	}
	if hookCalls != 1 {
		t.Fatalf("expected unauthorized hook once, got %d", hookCalls)
	}

	err = d.Get(context.Background(), "/videos/9", nil, nil)
	if !errors.Is(err, services.ErrNotFound) || DetailOf(err) != "video missing" {
		t.Fatalf("unexpected 404 handling: %v", err)
	}

	err = d.PostJSON(context.Background(), "/ai/text", map[string]string{}, nil)
	if DetailOf(err) != "field required" || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected first validation message, got %v", err)
	}

	err = d.Get(context.Background(), "/boom", nil, nil)
	if DetailOf(err) != "" || !strings.Contains(err.Error(), "upstream exploded") {
		t.Fatalf("expected raw body in error, got %v", err)
	}
	if hookCalls != 1 {
		t.Fatalf("hook must only run for 401 responses, got %d calls", hookCalls)
	}
}

func TestExtractDetail(t *testing.T) {
	cases := map[string]string{
		`{"detail":"用户名已存在"}`:            "用户名已存在",
		`{"detail":null}`:                   "",
		`{"message":"no detail"}`:           "",
		`not json`:                          "",
		`{"detail":{"code":"quota"}}`:       `{"code":"quota"}`,
		`{"detail":[{"msg":""},{"msg":"x"}]}`: "x",
	}
	for body, want := range cases {
		if got := extractDetail([]byte(body)); got != want {
			t.Fatalf("extractDetail(%s) = %q, want %q", body, got, want)
		}
	}
}
