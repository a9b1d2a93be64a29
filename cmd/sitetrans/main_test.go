package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/ZaguanLabs/sitetrans"
)

// fakeModelServer answers chat completions with "T:" + the user's text.
func fakeModelServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		text := req.Messages[len(req.Messages)-1].Content
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "T:" + text},
				"finish_reason": "stop",
			}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// setupEnv points configuration at a temp cache dir and a fake model, and
// runs the test from an empty directory so no .env file is picked up.
func setupEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "LOG_LEVEL", "HTTP_HOST", "HTTP_PORT", "CORS_ALLOWED_ORIGINS",
		"CACHE_BACKEND", "CACHE_DIR", "REDIS_URL", "REDIS_KEY_PREFIX",
		"MODEL_ENDPOINT", "MODEL_NAME", "MODEL_API_KEY", "MODEL_MAX_TOKENS", "MODEL_SKIP_CHECK",
		"SOURCE_LANG", "SITETRANS_ENV_FILE",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	srv := fakeModelServer(t)
	dir := t.TempDir()
	chdirForTest(t, t.TempDir())

	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CACHE_BACKEND", "file")
	t.Setenv("CACHE_DIR", dir)
	t.Setenv("MODEL_ENDPOINT", srv.URL+"/v1")
	t.Setenv("MODEL_NAME", "nllb-test")
	t.Setenv("MODEL_SKIP_CHECK", "true")
	return dir
}

func withStdin(t *testing.T, input string) {
	t.Helper()
	prev := stdin
	stdin = strings.NewReader(input)
	t.Cleanup(func() { stdin = prev })
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"--version"}, &stdout, &stderr)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "sitetrans "+sitetrans.Version) {
		t.Errorf("expected version output, got: %s", stdout.String())
	}
}

func TestRun_NoArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(nil, &stdout, &stderr)

	if !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got: %v", err)
	}
	if !strings.Contains(stderr.String(), "Commands:") {
		t.Errorf("expected usage on stderr, got: %s", stderr.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"frobnicate"}, &stdout, &stderr)

	if !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got: %v", err)
	}
	if !strings.Contains(stderr.String(), "unknown command: frobnicate") {
		t.Errorf("unexpected stderr: %s", stderr.String())
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"help"}, &stdout, &stderr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "translate") {
		t.Errorf("help should list commands, got: %s", stdout.String())
	}

	stderr.Reset()
	if err := run([]string{"translate", "-h"}, &stdout, &stderr); err != nil {
		t.Fatalf("-h should not fail: %v", err)
	}
	if !strings.Contains(stderr.String(), "-lang") {
		t.Errorf("command help should list flags, got: %s", stderr.String())
	}
}

func TestRun_TranslateMissingFlags(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"translate", "--site", "x", "Hello"}, "--lang is required"},
		{[]string{"translate", "--lang", "hi", "Hello"}, "--site is required"},
		{[]string{"html", "--site", "x"}, "--lang is required"},
		{[]string{"export"}, "--site is required"},
	}

	for _, tt := range tests {
		var stdout, stderr bytes.Buffer
		err := run(tt.args, &stdout, &stderr)
		if !errors.Is(err, errUsage) {
			t.Errorf("%v: expected usage error, got %v", tt.args, err)
		}
		if !strings.Contains(stderr.String(), tt.want) {
			t.Errorf("%v: expected %q, got: %s", tt.args, tt.want, stderr.String())
		}
	}
}

func TestRun_Translate(t *testing.T) {
	dir := setupEnv(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"translate", "--lang", "hi", "--site", "example.com", "Hello", "World"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("translate failed: %v (%s)", err, stderr.String())
	}

	if got := stdout.String(); got != "T:Hello\nT:World\n" {
		t.Errorf("unexpected output: %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "example.com.json")); err != nil {
		t.Errorf("site document not written: %v", err)
	}

	// The Bengali translations were generated with the Hindi ones.
	stdout.Reset()
	err = run([]string{"translate", "--lang", "bn", "--site", "example.com", "--json", "Hello", "World"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("translate --json failed: %v", err)
	}

	var out translateOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout.String())
	}
	if out.ModelUsed || out.CacheHits != 2 || out.TargetLang != "bn" {
		t.Errorf("expected a cached answer, got %+v", out)
	}
}

func TestRun_TranslateStdin(t *testing.T) {
	setupEnv(t)
	withStdin(t, "Hello\n\nContact us\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"translate", "--lang", "hi", "--site", "example.com"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if got := stdout.String(); got != "T:Hello\nT:Contact us\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestRun_TranslateUnsupportedLanguage(t *testing.T) {
	setupEnv(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"translate", "--lang", "fr", "--site", "example.com", "Hello"}, &stdout, &stderr)

	var langErr *sitetrans.UnsupportedLanguageError
	if !errors.As(err, &langErr) {
		t.Errorf("expected UnsupportedLanguageError, got: %v", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("CACHE_BACKEND", "floppy")

	var stdout, stderr bytes.Buffer
	err := run([]string{"translate", "--lang", "hi", "--site", "example.com", "Hello"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "CACHE_BACKEND") {
		t.Errorf("expected config error, got: %v", err)
	}
}

func TestRun_HTML(t *testing.T) {
	setupEnv(t)

	tmpDir := t.TempDir()
	inputFile := filepath.Join(tmpDir, "index.html")
	outputFile := filepath.Join(tmpDir, "index.hi.html")
	page := `<html><head><title>Salon</title></head><body><h1>Welcome</h1><script>init()</script></body></html>`
	if err := os.WriteFile(inputFile, []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{"html", "--lang", "hi", "--site", "salon.example", "-o", outputFile, inputFile}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("html failed: %v", err)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatal(err)
	}
	result := string(data)
	for _, want := range []string{`<html lang="hi">`, "<h1>T:Welcome</h1>", "<script>init()</script>", "<title>Salon</title>"} {
		if !strings.Contains(result, want) {
			t.Errorf("output missing %q:\n%s", want, result)
		}
	}
	if !strings.Contains(stderr.String(), "Texts found:  1") {
		t.Errorf("expected stats on stderr, got: %s", stderr.String())
	}
}

func TestRun_ExportImport(t *testing.T) {
	dir := setupEnv(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"translate", "--lang", "hi", "--site", "a.example", "Hello"}, &stdout, &stderr); err != nil {
		t.Fatalf("translate failed: %v", err)
	}

	exportFile := filepath.Join(t.TempDir(), "a.json")
	if err := run([]string{"export", "--site", "a.example", "-o", exportFile}, &stdout, &stderr); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	stdout.Reset()
	if err := run([]string{"import", "--site", "b.example", exportFile}, &stdout, &stderr); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Imported into b.example") {
		t.Errorf("unexpected import output: %s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "New texts:     1") {
		t.Errorf("unexpected import output: %s", stdout.String())
	}

	data, err := os.ReadFile(filepath.Join(dir, "b.example.json"))
	if err != nil {
		t.Fatalf("imported document not written: %v", err)
	}
	if !strings.Contains(string(data), sitetrans.Fingerprint("Hello")) {
		t.Errorf("imported document missing entry:\n%s", data)
	}

	// Export to stdout.
	stdout.Reset()
	if err := run([]string{"export", "--site", "b.example"}, &stdout, &stderr); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(stdout.String(), `"site_id": "b.example"`) {
		t.Errorf("unexpected export: %s", stdout.String())
	}
}

func TestRun_Bench(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"translations": []string{"T:About"},
			"time_ms":      1.5,
			"model_used":   n == 1,
		})
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	err := run([]string{"bench", "--url", srv.URL + "/translate", "--text", "About"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("bench failed: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"Request 1:", "Request 2 (CACHED):", "SUCCESS"} {
		if !strings.Contains(out, want) {
			t.Errorf("bench output missing %q:\n%s", want, out)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d requests, want 2", calls.Load())
	}
}

func TestLanguageTable(t *testing.T) {
	table, err := languageTable("HI")
	if err != nil {
		t.Fatal(err)
	}
	if table.Source().Tag != "hin_Deva" {
		t.Errorf("source = %+v", table.Source())
	}
	if got := strings.Join(table.TargetCodes(), ","); got != "bn,en" {
		t.Errorf("targets = %s", got)
	}

	if _, err := languageTable("fr"); err == nil {
		t.Error("expected error for unknown source language")
	}
}

// chdirForTest changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
