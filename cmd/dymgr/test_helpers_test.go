package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"dymgr/internal/testsupport"
)

type cliTestEnv struct {
	server     *httptest.Server
	configPath string
	stateDir   string

	mu       sync.Mutex
	requests []string
	auth     []string
}

func (e *cliTestEnv) record(r *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, r.Method+" "+r.URL.RequestURI())
	e.auth = append(e.auth, r.Header.Get("Authorization"))
}

func (e *cliTestEnv) lastAuth() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.auth) == 0 {
		return ""
	}
	return e.auth[len(e.auth)-1]
}

func (e *cliTestEnv) lastRequest() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.requests) == 0 {
		return ""
	}
	return e.requests[len(e.requests)-1]
}

// setupCLITestEnv starts a fake backend and writes a config pointing at it.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	homeDir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{}
	env.server = httptest.NewServer(http.HandlerFunc(env.serve))
	t.Cleanup(env.server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(env.server.URL+"/api/v1"))
	env.stateDir = cfg.Paths.StateDir
	env.configPath = testsupport.WriteConfig(t, cfg)
	return env
}

func (e *cliTestEnv) serve(w http.ResponseWriter, r *http.Request) {
	e.record(r)
	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	authorized := r.Header.Get("Authorization") == "Bearer tok-abc"

	switch {
	case r.URL.Path == "/health":
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	case path == "/auth/token":
		_ = r.ParseForm()
		if r.PostForm.Get("username") != "u1303" || r.PostForm.Get("password") != "p" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-abc","token_type":"bearer"}`))
	case path == "/auth/register":
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"username":"taken"`) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"用户名已存在"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":2,"username":"neo","email":"neo@example.com","is_active":true,"created_at":"2024-05-01T08:00:00"}`))
	case !authorized:
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	case path == "/auth/me":
		_, _ = w.Write([]byte(`{"id":1,"username":"u1303","email":"u@example.com","douyin_user_id":null,"is_active":true,"created_at":"2024-05-01T08:00:00"}`))
	case path == "/videos" && r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`[{"id":1,"title":"First clip","description":null,"status":"draft","publish_status":"pending","douyin_url":null,"created_at":"2024-05-01T08:00:00","updated_at":"2024-05-02T08:00:00"}]`))
	case path == "/videos/upload":
		_, _ = w.Write([]byte(`{"id":5,"title":"clip","file_path":"uploads/clip.mp4"}`))
	case path == "/videos/1" && r.Method == http.MethodPut:
		_ = r.ParseForm()
		_, _ = fmt.Fprintf(w, `{"id":1,"title":%q,"description":null}`, r.PostForm.Get("title"))
	case path == "/videos/1" && r.Method == http.MethodDelete:
		_, _ = w.Write([]byte(`{"message":"删除成功"}`))
	case strings.HasPrefix(path, "/videos/"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"视频不存在"}`))
	case path == "/ai/image":
		_, _ = fmt.Fprintf(w, `{"success":true,"result":"图像生成成功","file_path":"generated/x.png","model":%q}`, r.URL.Query().Get("model"))
	case path == "/ai/text":
		_, _ = w.Write([]byte(`{"success":false,"error":"OpenAI API密钥未配置"}`))
	case path == "/douyin/publish/1":
		_, _ = w.Write([]byte(`{"message":"发布任务已创建","task_id":"task-9"}`))
	case path == "/douyin/publish/status/task-9":
		_, _ = w.Write([]byte(`{"data":{"status":"processing"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
	}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func login(t *testing.T, env *cliTestEnv) {
	t.Helper()
	out, _, err := runCLI(t, []string{"login", "u1303", "--password", "p"}, env.configPath, "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	requireContains(t, out, "Logged in as u1303")
}
