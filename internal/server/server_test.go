package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"strmhook/internal/alist"
	"strmhook/internal/config"
	"strmhook/internal/generator"
	"strmhook/internal/history"
	"strmhook/internal/metrics"
	"strmhook/internal/server"
	"strmhook/internal/testsupport"
)

func newHandler(t *testing.T, cfg *config.Config, opts ...server.Option) http.Handler {
	t.Helper()
	gen := generator.New(cfg, alist.NewFromConfig(cfg, nil))
	return server.New(cfg, gen, opts...).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDirectScenarioResponseBody(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSTRMServer("http://x/d"))
	h := newHandler(t, cfg)

	rec := do(t, h, http.MethodPost, "/webhook/strm/direct", `{"files": ["/A/movie.mkv"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"processed":1,"created":1,"skipped":0,"errors":[]}` {
		t.Fatalf("unexpected body: %s", got)
	}
	if rec.Header().Get("X-Run-ID") == "" {
		t.Fatal("expected X-Run-ID header")
	}
	if got := testsupport.ReadFile(t, filepath.Join(cfg.STRM.SaveDir, "A", "movie.strm")); got != "http://x/d/A/movie.mkv" {
		t.Fatalf("unexpected strm content %q", got)
	}

	rec = do(t, h, http.MethodPost, "/webhook/strm/direct", `{"files": ["/A/movie.mkv"]}`)
	if got := strings.TrimSpace(rec.Body.String()); got != `{"processed":1,"created":0,"skipped":1,"errors":[]}` {
		t.Fatalf("unexpected body on repeat: %s", got)
	}
}

func TestBadRequestsWriteNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHandler(t, cfg)

	cases := []struct {
		name   string
		target string
		body   string
	}{
		{"missing path", "/webhook/strm", `{}`},
		{"blank path", "/webhook/strm", `{"path": "  "}`},
		{"malformed json", "/webhook/strm", `{"path":`},
		{"wrong type", "/webhook/strm", `{"path": 5}`},
		{"missing files", "/webhook/strm/direct", `{}`},
		{"empty files", "/webhook/strm/direct", `{"files": []}`},
		{"blank entry", "/webhook/strm/direct", `{"files": ["/a.mkv", ""]}`},
		{"empty body", "/webhook/strm/direct", ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tc.target, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var payload map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload["error"] == "" {
				t.Fatalf("expected error body, got %s", rec.Body.String())
			}
		})
	}
	if files := testsupport.ListFiles(t, cfg.STRM.SaveDir); len(files) != 0 {
		t.Fatalf("expected no files, got %v", files)
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHandler(t, cfg)

	body := `{"files": ["/A/` + strings.Repeat("a", 2<<20) + `.mkv"]}`
	rec := do(t, h, http.MethodPost, "/webhook/strm/direct", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if files := testsupport.ListFiles(t, cfg.STRM.SaveDir); len(files) != 0 {
		t.Fatalf("expected no files, got %v", files)
	}
}

func TestConcurrentDirectRequestsCreateOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSTRMServer("http://x/d"))
	h := newHandler(t, cfg)

	const requests = 8
	results := make([]generator.Result, requests)
	codes := make([]int, requests)
	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := do(t, h, http.MethodPost, "/webhook/strm/direct", `{"files": ["/A/m.mkv"]}`)
			codes[i] = rec.Code
			_ = json.Unmarshal(rec.Body.Bytes(), &results[i])
		}()
	}
	wg.Wait()

	created, skipped := 0, 0
	for i := range requests {
		if codes[i] != http.StatusOK {
			t.Fatalf("request %d: status %d", i, codes[i])
		}
		created += results[i].Created
		skipped += results[i].Skipped
	}
	if created != 1 || skipped != requests-1 {
		t.Fatalf("expected 1 created and %d skipped, got %d/%d", requests-1, created, skipped)
	}
	if got := testsupport.ReadFile(t, filepath.Join(cfg.STRM.SaveDir, "A", "m.strm")); got != "http://x/d/A/m.mkv" {
		t.Fatalf("unexpected strm content %q", got)
	}
}

func TestDirectoryModeWithAliases(t *testing.T) {
	fake := testsupport.NewAListServer(t, "/115/电影/a.mkv", "/115/电影/sub/b.mp4", "/115/电影/b.nfo")
	cfg := testsupport.NewConfig(t, testsupport.WithAListURL(fake.URL))
	h := newHandler(t, cfg)

	rec := do(t, h, http.MethodPost, "/webhook/strm", `{"savepath": "115/电影"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result generator.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Processed != 2 || result.Created != 2 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	want := []string{"115/电影/a.strm", "115/电影/sub/b.strm"}
	if got := testsupport.ListFiles(t, cfg.STRM.SaveDir); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected files: %v", got)
	}
}

func TestDirectoryModeUnreachableAList(t *testing.T) {
	unreachable := httptest.NewServer(http.NotFoundHandler())
	url := unreachable.URL
	unreachable.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAListURL(url))
	h := newHandler(t, cfg)

	rec := do(t, h, http.MethodPost, "/webhook/strm", `{"path": "/115/电影"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	if files := testsupport.ListFiles(t, cfg.STRM.SaveDir); len(files) != 0 {
		t.Fatalf("expected no files, got %v", files)
	}
}

func TestDirectoryModeMissingRemotePath(t *testing.T) {
	fake := testsupport.NewAListServer(t, "/115/a.mkv")
	cfg := testsupport.NewConfig(t, testsupport.WithAListURL(fake.URL))
	h := newHandler(t, cfg)

	rec := do(t, h, http.MethodPost, "/webhook/strm", `{"path": "/nope"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "not found") {
		t.Fatalf("expected not found message, got %s", rec.Body.String())
	}
}

func TestHealthAndMethodChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithServerToken("secret"))
	h := newHandler(t, cfg)

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodPost, "/health", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST /health, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/webhook/strm", "", "Authorization", "Bearer secret")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET webhook, got %d", rec.Code)
	}
}

func TestAuthRequiredWhenTokenSet(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithServerToken("secret"))
	h := newHandler(t, cfg)

	for _, target := range []string{"/webhook/strm/direct", "/config"} {
		method := http.MethodPost
		if target == "/config" {
			method = http.MethodGet
		}
		if rec := do(t, h, method, target, `{"files":["/a.mkv"]}`); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token, got %d", target, rec.Code)
		}
		if rec := do(t, h, method, target, `{"files":["/a.mkv"]}`, "Authorization", "Bearer wrong"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 with wrong token, got %d", target, rec.Code)
		}
	}
	rec := do(t, h, http.MethodPost, "/webhook/strm/direct", `{"files":["/a.mkv"]}`, "Authorization", "Bearer secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestConfigIsRedacted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.AList.Token = "alist-secret"
	h := newHandler(t, cfg)

	rec := do(t, h, http.MethodGet, "/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "alist-secret") {
		t.Fatalf("token leaked: %s", rec.Body.String())
	}
	var snap config.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.AListToken != "***" || snap.STRMSaveDir != cfg.STRM.SaveDir {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestHistoryRoute(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	gen := generator.New(cfg, alist.NewFromConfig(cfg, nil), generator.WithRecorder(store))
	h := server.New(cfg, gen, server.WithHistory(store)).Handler()

	for i := 0; i < 3; i++ {
		do(t, h, http.MethodPost, "/webhook/strm/direct", `{"files":["/a.mkv"]}`)
	}

	rec := do(t, h, http.MethodGet, "/history?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Runs []history.Run `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(payload.Runs))
	}
	if payload.Runs[0].Mode != history.ModeDirect || payload.Runs[0].Skipped != 1 {
		t.Fatalf("unexpected newest run: %+v", payload.Runs[0])
	}

	if rec := do(t, h, http.MethodGet, "/history?limit=zero", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
	if rec := do(t, newHandler(t, cfg), http.MethodGet, "/history", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when history disabled, got %d", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	m := metrics.New()
	gen := generator.New(cfg, alist.NewFromConfig(cfg, nil), generator.WithMetrics(m))
	h := server.New(cfg, gen, server.WithMetrics(m)).Handler()

	do(t, h, http.MethodPost, "/webhook/strm/direct", `{"files":["/a.mkv","/b.txt"]}`)
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`strmhook_files_total{outcome="created"} 1`,
		`strmhook_runs_total{mode="direct",status="ok"} 1`,
		`route="/webhook/strm/direct",status="200"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

type stubGenerator struct{}

func (stubGenerator) FromDirectory(context.Context, string) (generator.Result, error) {
	return generator.Result{RunID: "run-x", Errors: []generator.FileError{}}, context.DeadlineExceeded
}

func (stubGenerator) FromFiles(context.Context, []string) generator.Result {
	return generator.Result{}
}

func TestUnexpectedGeneratorErrorIs500(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := server.New(cfg, stubGenerator{}).Handler()

	rec := do(t, h, http.MethodPost, "/webhook/strm", `{"full_path": "/x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec.Header().Get("X-Run-ID") != "run-x" {
		t.Fatalf("expected run id header, got %q", rec.Header().Get("X-Run-ID"))
	}
}

func TestStartServesOnBind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := server.New(cfg, stubGenerator{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}
