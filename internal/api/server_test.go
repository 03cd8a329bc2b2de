package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/paneldeck/paneldeck/internal/config"
	"github.com/paneldeck/paneldeck/internal/logger"
	"github.com/paneldeck/paneldeck/internal/testutil"
	"github.com/paneldeck/paneldeck/internal/websocket"
)

type testServer struct {
	*Server
	home string
}

func newTestConfig(home string) *config.Config {
	cfg := &config.Config{}
	cfg.Panels.Rows = 1
	cfg.Panels.Cols = 2
	cfg.Panels.Home = home
	cfg.Panels.ShowHidden = false
	cfg.Transfer.Collision = "rename"
	cfg.History.RetentionDays = 30
	return cfg
}

func setupTestServer(t *testing.T, authEnabled bool) (*testServer, func()) {
	t.Helper()

	tdb := testutil.NewTestDB(t)
	home := t.TempDir()

	cfg := newTestConfig(home)
	cfg.Auth.Enabled = authEnabled

	log := logger.New(logger.Config{Level: "error", EnableStreaming: true})
	hub := websocket.NewHub(tdb.Logger)
	go hub.Run()

	server, err := NewServer(tdb.DB, hub, cfg, log)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}

	if err := server.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("failed to apply initial layout: %v", err)
	}

	cleanup := func() {
		_ = server.scheduler.Stop()
	}

	return &testServer{Server: server, home: home}, cleanup
}

func (ts *testServer) request(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	ts, cleanup := setupTestServer(t, false)
	defer cleanup()

	rec := ts.request(t, http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", rec.Code, http.StatusOK)
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("health status = %q, want %q", response["status"], "ok")
	}
}

func TestGetStatus(t *testing.T) {
	ts, cleanup := setupTestServer(t, false)
	defer cleanup()

	rec := ts.request(t, http.MethodGet, "/api/v1/status", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if response["version"] == "" {
		t.Error("status missing version")
	}
	if response["requiresAuth"] != false {
		t.Error("requiresAuth should be false with auth disabled")
	}
	if response["panelCount"] != float64(2) {
		t.Errorf("panelCount = %v, want 2", response["panelCount"])
	}
}

func TestPanelStateRoute(t *testing.T) {
	ts, cleanup := setupTestServer(t, false)
	defer cleanup()

	rec := ts.request(t, http.MethodGet, "/api/v1/panels", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("panels status = %d, want %d. Body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var snap struct {
		Layout struct {
			Rows int `json:"rows"`
			Cols int `json:"cols"`
		} `json:"layout"`
		ActivePanel string `json:"activePanel"`
		Panels      []struct {
			ID          string `json:"id"`
			CurrentPath string `json:"currentPath"`
		} `json:"panels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to parse snapshot: %v", err)
	}

	if snap.Layout.Rows != 1 || snap.Layout.Cols != 2 {
		t.Errorf("layout = %dx%d, want 1x2", snap.Layout.Rows, snap.Layout.Cols)
	}
	if len(snap.Panels) != 2 {
		t.Fatalf("panel count = %d, want 2", len(snap.Panels))
	}
	if snap.Panels[0].CurrentPath != ts.home {
		t.Errorf("panel path = %q, want %q", snap.Panels[0].CurrentPath, ts.home)
	}
	if snap.ActivePanel == "" {
		t.Error("no active panel set")
	}
}

func TestCommandSearchRoute(t *testing.T) {
	ts, cleanup := setupTestServer(t, false)
	defer cleanup()

	rec := ts.request(t, http.MethodGet, "/api/v1/commands?query=copy", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("commands status = %d, want %d", rec.Code, http.StatusOK)
	}

	var response struct {
		Commands []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"commands"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse results: %v", err)
	}
	if len(response.Commands) == 0 {
		t.Fatal("expected matches for query 'copy'")
	}
	for _, cmd := range response.Commands {
		if cmd.ID == "" {
			t.Error("search result missing command id")
		}
	}
}

func TestClipboardFlowOverHTTP(t *testing.T) {
	ts, cleanup := setupTestServer(t, false)
	defer cleanup()

	path := filepath.Join(ts.home, "report.txt")
	if err := os.WriteFile(path, []byte("quarterly numbers"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	rec := ts.request(t, http.MethodPost, "/api/v1/panels/panel-1/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d. Body: %s", rec.Code, rec.Body.String())
	}

	rec = ts.request(t, http.MethodPost, "/api/v1/transfers/clipboard/copy",
		`{"panel": "panel-1", "files": ["report.txt"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("copy status = %d. Body: %s", rec.Code, rec.Body.String())
	}

	rec = ts.request(t, http.MethodGet, "/api/v1/transfers/clipboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clipboard status = %d", rec.Code)
	}

	var clip struct {
		HasFiles  bool   `json:"hasFiles"`
		Operation string `json:"operation"`
		Files     []struct {
			Name string `json:"name"`
		} `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &clip); err != nil {
		t.Fatalf("failed to parse clipboard: %v", err)
	}
	if !clip.HasFiles || clip.Operation != "copy" {
		t.Errorf("clipboard = %+v, want staged copy", clip)
	}
	if len(clip.Files) != 1 || clip.Files[0].Name != "report.txt" {
		t.Errorf("clipboard files = %+v, want report.txt", clip.Files)
	}
}

func TestLayoutPresetsRoute(t *testing.T) {
	ts, cleanup := setupTestServer(t, false)
	defer cleanup()

	rec := ts.request(t, http.MethodGet, "/api/v1/layouts", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("layouts status = %d, want %d", rec.Code, http.StatusOK)
	}

	var presets []struct {
		Name string `json:"name"`
		Rows int    `json:"rows"`
		Cols int    `json:"cols"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &presets); err != nil {
		t.Fatalf("failed to parse presets: %v", err)
	}
	if len(presets) == 0 {
		t.Fatal("expected built-in presets")
	}
	if presets[0].Name != "single" {
		t.Errorf("first preset = %q, want single", presets[0].Name)
	}
}

func TestTasksRoutes(t *testing.T) {
	ts, cleanup := setupTestServer(t, false)
	defer cleanup()

	rec := ts.request(t, http.MethodGet, "/api/v1/system/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("tasks status = %d, want %d", rec.Code, http.StatusOK)
	}

	var taskList []struct {
		ID   string `json:"id"`
		Cron string `json:"cron"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &taskList); err != nil {
		t.Fatalf("failed to parse tasks: %v", err)
	}
	if len(taskList) != 1 || taskList[0].ID != "history-prune" {
		t.Fatalf("tasks = %+v, want the history prune task", taskList)
	}

	rec = ts.request(t, http.MethodPost, "/api/v1/system/tasks/history-prune/run", "")
	if rec.Code != http.StatusAccepted {
		t.Errorf("run task status = %d, want %d. Body: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	rec = ts.request(t, http.MethodPost, "/api/v1/system/tasks/no-such-task/run", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown task status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSystemHealthRoute(t *testing.T) {
	ts, cleanup := setupTestServer(t, false)
	defer cleanup()

	rec := ts.request(t, http.MethodGet, "/api/v1/system/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("health report status = %d, want %d", rec.Code, http.StatusOK)
	}

	var report struct {
		Status string `json:"status"`
		Items  []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to parse report: %v", err)
	}

	if report.Status != "ok" {
		t.Errorf("rollup = %q, want ok. Body: %s", report.Status, rec.Body.String())
	}
	ids := make(map[string]bool)
	for _, item := range report.Items {
		ids[item.ID] = true
	}
	for _, want := range []string{"database", "home", "panel-paths"} {
		if !ids[want] {
			t.Errorf("report missing %q check", want)
		}
	}
}

func TestRecentLogsRoute(t *testing.T) {
	ts, cleanup := setupTestServer(t, false)
	defer cleanup()

	rec := ts.request(t, http.MethodGet, "/api/v1/system/logs?limit=50", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("logs status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "[") {
		t.Errorf("logs body should be a JSON array, got %s", rec.Body.String())
	}
}

func TestLogDownloadWithoutFile(t *testing.T) {
	ts, cleanup := setupTestServer(t, false)
	defer cleanup()

	rec := ts.request(t, http.MethodGet, "/api/v1/system/logs/download", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("download status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts, cleanup := setupTestServer(t, true)
	defer cleanup()

	ctx := context.Background()
	if err := ts.authService.SetPassword(ctx, "correct horse battery"); err != nil {
		t.Fatalf("failed to set password: %v", err)
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/panels", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Status stays reachable so the UI can discover the password gate.
	rec = ts.request(t, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status endpoint should stay open, got %d", rec.Code)
	}

	token, err := ts.authService.GenerateToken()
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/panels", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	authed := httptest.NewRecorder()
	ts.echo.ServeHTTP(authed, req)

	if authed.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want %d. Body: %s", authed.Code, http.StatusOK, authed.Body.String())
	}
}

func TestLoginOverHTTP(t *testing.T) {
	ts, cleanup := setupTestServer(t, true)
	defer cleanup()

	ctx := context.Background()
	if err := ts.authService.SetPassword(ctx, "correct horse battery"); err != nil {
		t.Fatalf("failed to set password: %v", err)
	}

	rec := ts.request(t, http.MethodPost, "/api/v1/auth/login", `{"password": "wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = ts.request(t, http.MethodPost, "/api/v1/auth/login", `{"password": "correct horse battery"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d. Body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var response map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse login response: %v", err)
	}
	if response["token"] == nil || response["token"] == "" {
		t.Error("login response missing token")
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	ts, cleanup := setupTestServer(t, false)
	defer cleanup()

	rec := ts.request(t, http.MethodGet, "/api/v1/status", "")

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("Cache-Control = %q, want no-store for api paths", got)
	}
}
