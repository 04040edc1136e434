package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rthomann/docmill/internal/config"
	"github.com/rthomann/docmill/internal/docmodel"
	"github.com/rthomann/docmill/internal/pipeline"
)

func testConfig() config.Config {
	return config.Config{
		Host:                "127.0.0.1",
		Port:                "0",
		MaxInputBytes:       1 << 20,
		FetchTimeout:        time.Second,
		WorkerCount:         1,
		MaxQueueSize:        4,
		MaxConcurrentImages: 1,
		JobTTL:              time.Minute,
		OCREngine:           "tesseract",
		OCRLanguages:        []string{"eng"},
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*httptest.Server, *pipeline.Orchestrator) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	orch := pipeline.NewOrchestrator(cfg, log)
	orch.Start()
	t.Cleanup(orch.Stop)

	srv := httptest.NewServer(NewServer(orch, log, cfg))
	t.Cleanup(srv.Close)
	return srv, orch
}

func uploadRequest(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()

	req, err := http.NewRequest(http.MethodPost, url+"/api/convert", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestIndexServesUploadPage(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<form") {
		t.Error("expected an upload form on the index page")
	}
}

func TestConvert_FullFlowWithTextUpload(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	req := uploadRequest(t, srv.URL, "notes.txt",
		[]byte("hello world\n\nsecond paragraph"),
		map[string]string{"no_ocr": "true"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, body)
	}

	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatal(err)
	}
	if accepted.JobID == "" {
		t.Fatal("no job id returned")
	}

	// Poll until the worker finishes.
	deadline := time.Now().Add(5 * time.Second)
	var status string
	for time.Now().Before(deadline) {
		r, err := http.Get(srv.URL + accepted.PollURL)
		if err != nil {
			t.Fatal(err)
		}
		var snap struct {
			Status string `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&snap)
		r.Body.Close()
		status = snap.Status
		if status == "completed" || status == "failed" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if status != "completed" {
		t.Fatalf("job did not complete, status %q", status)
	}

	r, err := http.Get(srv.URL + "/api/jobs/" + accepted.JobID + "/result?format=markdown")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Body.Close()
	body, _ := io.ReadAll(r.Body)
	if !strings.Contains(string(body), "hello world") {
		t.Errorf("converted output missing content: %q", body)
	}

	// Same job, different format.
	r2, err := http.Get(srv.URL + "/api/jobs/" + accepted.JobID + "/result?format=json")
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Body.Close()
	if ct := r2.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected json content type, got %q", ct)
	}
}

func TestConvert_RejectsUnsupportedExtension(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	req := uploadRequest(t, srv.URL, "binary.exe", []byte{0, 1, 2}, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestConvert_RejectsBadOptions(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	req := uploadRequest(t, srv.URL, "notes.txt", []byte("x"), map[string]string{"to": "docbook"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad format, got %d", resp.StatusCode)
	}
}

func TestJobStatus_UnknownJob(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	resp, err := http.Get(srv.URL + "/api/jobs/nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestJobResult_NotFinished(t *testing.T) {
	cfg := testConfig()
	log := slog.New(slog.DiscardHandler)
	// Orchestrator not started: the job stays queued.
	orch := pipeline.NewOrchestrator(cfg, log)
	srv := httptest.NewServer(NewServer(orch, log, cfg))
	t.Cleanup(srv.Close)

	job, err := orch.Submit("stub.txt", []byte("x"), pipeline.Options{NoOCR: true})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Get(srv.URL + "/api/jobs/" + job.ID + "/result")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for a queued job, got %d", resp.StatusCode)
	}
}

func TestJobResult_PartialJobServesDocument(t *testing.T) {
	cfg := testConfig()
	log := slog.New(slog.DiscardHandler)
	// Orchestrator not started: the test drives the job state directly.
	orch := pipeline.NewOrchestrator(cfg, log)
	srv := httptest.NewServer(NewServer(orch, log, cfg))
	t.Cleanup(srv.Close)

	job, err := orch.Submit("scan.png", []byte("x"), pipeline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	doc := &docmodel.Document{Meta: docmodel.Metadata{SourceFormat: "png"}}
	doc.AppendText("text that survived", 1)
	job.AddError("ocr scan: engine broke")
	job.SetDocument(doc)
	job.SetStatus(pipeline.StatusPartial, "")

	resp, err := http.Get(srv.URL + "/api/jobs/" + job.ID + "/result")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("partial jobs should serve their result, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "text that survived") {
		t.Errorf("result missing content: %q", body)
	}
}

func TestVLMStats_EmptyAggregate(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	resp, err := http.Get(srv.URL + "/api/stats/vlm")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Model string `json:"model"`
		Stats struct {
			Count int `json:"count"`
		} `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Model == "" {
		t.Error("expected a model name in the stats payload")
	}
	if out.Stats.Count != 0 {
		t.Errorf("expected zero recorded calls, got %d", out.Stats.Count)
	}
}

func TestAuthMiddleware_GuardsAPI(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "topsecret"
	srv, _ := newTestServer(t, cfg)

	// No token.
	resp, err := http.Get(srv.URL + "/api/jobs/any")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	// Wrong token.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/jobs/any", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", resp.StatusCode)
	}

	// Right token reaches the handler (404: job doesn't exist).
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/jobs/any", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 with valid token, got %d", resp.StatusCode)
	}

	// Health stays public.
	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health should not require auth, got %d", resp.StatusCode)
	}
}

func TestConvert_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.WorkerCount = 1
	cfg.MaxQueueSize = 1
	log := slog.New(slog.DiscardHandler)
	orch := pipeline.NewOrchestrator(cfg, log)
	// Deliberately not started: jobs stay queued so the channel fills.
	srv := httptest.NewServer(NewServer(orch, log, cfg))
	t.Cleanup(srv.Close)

	var last int
	for i := 0; i < 3; i++ {
		req := uploadRequest(t, srv.URL, "notes.txt", []byte("x"), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusServiceUnavailable {
		t.Errorf("expected 503 once the queue fills, got %d", last)
	}
}
