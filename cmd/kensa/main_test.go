package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kensa/internal/cli"
	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/internal/providers"
	"github.com/hyperjump/kensa/internal/review"
)

const stagedDiff = `diff --git a/calc.go b/calc.go
index 1111111..2222222 100644
--- a/calc.go
+++ b/calc.go
@@ -1,3 +1,4 @@
 package calc
 
 func Add(a, b int) int { return a + b }
+func Div(a, b int) int { return a / b }
`

const testConfig = `root: .
embedding_model: mock:16
review_model: scripted
include: ["**/*.go"]
top_k: 4
max_attempts: 2
block_on: [blocker]
storage:
  index_path: .kensa/index.json
  keyword_index_path: .kensa/keyword
  history_path: .kensa/history.db
`

type testEnv struct {
	dir    string
	config string
	gen    *providers.Scripted
	diff   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"kensa.yaml": testConfig,
		"calc.go":    "package calc\n\nfunc Add(a, b int) int { return a + b }\n",
		"util.go":    "package calc\n\n// Abs returns the absolute value.\nfunc Abs(a int) int {\n\tif a < 0 {\n\t\treturn -a\n\t}\n\treturn a\n}\n",
		"notes.txt":  "not indexed\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return &testEnv{dir: dir, config: filepath.Join(dir, "kensa.yaml"), gen: &providers.Scripted{ModelID: "scripted"}, diff: stagedDiff}
}

// run executes the CLI with env's collaborators and returns the exit code and output.
func (e *testEnv) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.newGenerator = func(string) (providers.Generator, error) { return e.gen, nil }
	a.stagedDiff = func(context.Context, string) (string, error) { return e.diff, nil }
	a.reviewOpts = []review.Option{review.WithSleep(func(context.Context, time.Duration) error { return nil })}
	code := a.run(context.Background(), append([]string{"--config", e.config}, args...))
	return code, stdout.String(), stderr.String()
}

func (e *testEnv) build(t *testing.T) {
	t.Helper()
	if code, _, stderr := e.run(t, "build"); code != ExitOK {
		t.Fatalf("build exit = %d, stderr: %s", code, stderr)
	}
}

func TestBuild(t *testing.T) {
	env := newTestEnv(t)
	code, stdout, stderr := env.run(t, "build")
	if code != ExitOK {
		t.Fatalf("exit = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "from 2 files") {
		t.Errorf("stdout = %q, want 2 files indexed", stdout)
	}
	if _, err := os.Stat(filepath.Join(env.dir, ".kensa", "index.json")); err != nil {
		t.Errorf("index not written: %v", err)
	}
}

func TestReview_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantCode int
		wantOut  string
	}{
		{
			name:     "blocker finding blocks",
			response: `{"inline":[{"file":"calc.go","line":4,"comment":"division by zero","severity":"blocker"}],"general":[]}`,
			wantCode: ExitBlock,
			wantOut:  "division by zero",
		},
		{
			name:     "warning only allows",
			response: "```json\n{\"inline\":[{\"file\":\"calc.go\",\"line\":4,\"comment\":\"check b\",\"severity\":\"warning\"}],\"general\":[{\"comment\":\"small change\"}]}\n```",
			wantCode: ExitOK,
			wantOut:  "small change",
		},
		{
			name:     "unparseable response blocks",
			response: "I think this looks fine.",
			wantCode: ExitBlock,
			wantOut:  "BLOCK",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.build(t)
			env.gen.Responses = []string{tt.response}

			code, stdout, stderr := env.run(t, "review")
			if code != tt.wantCode {
				t.Fatalf("exit = %d, want %d; stdout: %s stderr: %s", code, tt.wantCode, stdout, stderr)
			}
			if !strings.Contains(stdout, tt.wantOut) {
				t.Errorf("stdout missing %q:\n%s", tt.wantOut, stdout)
			}
		})
	}
}

func TestReview_RetriesThenSucceeds(t *testing.T) {
	env := newTestEnv(t)
	env.build(t)
	env.gen.Responses = []string{"not json", `{"inline":[],"general":[]}`}

	code, stdout, _ := env.run(t, "review")
	if code != ExitOK {
		t.Fatalf("exit = %d, stdout: %s", code, stdout)
	}
	if env.gen.Calls() != 2 {
		t.Errorf("calls = %d, want 2", env.gen.Calls())
	}
}

func TestReview_JSONMarksUnanchored(t *testing.T) {
	env := newTestEnv(t)
	env.build(t)
	env.gen.Responses = []string{`{"inline":[
		{"file":"calc.go","line":4,"comment":"in diff","severity":"nit"},
		{"file":"calc.go","line":40,"comment":"outside diff","severity":"nit"}],"general":[]}`}

	code, stdout, stderr := env.run(t, "review", "--format", "json")
	if code != ExitOK {
		t.Fatalf("exit = %d, stderr: %s", code, stderr)
	}
	var rep cli.ReviewReport
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, stdout)
	}
	if len(rep.Inline) != 2 {
		t.Fatalf("inline = %d, want 2", len(rep.Inline))
	}
	if a := rep.Inline[0].Anchored; a == nil || !*a {
		t.Errorf("line 4 anchored = %v, want true", a)
	}
	if a := rep.Inline[1].Anchored; a == nil || *a {
		t.Errorf("line 40 anchored = %v, want false", a)
	}
	if rep.RunID == "" {
		t.Error("run id not set; history not recorded")
	}
	if rep.ContextChunks == 0 {
		t.Error("no context chunks packed")
	}
}

func TestReview_NothingToReview(t *testing.T) {
	env := newTestEnv(t)
	env.diff = "  \n"

	code, stdout, _ := env.run(t, "review")
	if code != ExitOK {
		t.Fatalf("exit = %d, want 0", code)
	}
	if !strings.Contains(stdout, "nothing to review") {
		t.Errorf("stdout = %q", stdout)
	}
	if env.gen.Calls() != 0 {
		t.Errorf("generator called %d times", env.gen.Calls())
	}
}

func TestReview_MissingIndex(t *testing.T) {
	env := newTestEnv(t)
	code, _, stderr := env.run(t, "review")
	if code != ExitBlock {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr, "kensa: configuration error") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestHistoryAfterReview(t *testing.T) {
	env := newTestEnv(t)
	env.build(t)
	env.gen.Responses = []string{`{"inline":[{"file":"calc.go","line":4,"comment":"boom","severity":"blocker"}],"general":[]}`}
	if code, _, _ := env.run(t, "review"); code != ExitBlock {
		t.Fatalf("review exit = %d, want 1", code)
	}
	if code, _, _ := env.run(t, "review", "--no-history"); code != ExitBlock {
		t.Fatalf("review exit = %d, want 1", code)
	}

	code, stdout, stderr := env.run(t, "history", "--format", "json")
	if code != ExitOK {
		t.Fatalf("history exit = %d, stderr: %s", code, stderr)
	}
	var out struct {
		Runs []struct {
			Decision string `json:"decision"`
		} `json:"runs"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if out.Total != 1 || len(out.Runs) != 1 || out.Runs[0].Decision != "BLOCK" {
		t.Errorf("history = %+v, want one BLOCK run", out)
	}
}

func TestSearchAndStatus(t *testing.T) {
	env := newTestEnv(t)
	env.build(t)

	for _, args := range [][]string{
		{"search", "absolute", "value"},
		{"search", "--keyword", "Abs"},
		{"search", "--hybrid", "Abs"},
	} {
		code, stdout, stderr := env.run(t, args...)
		if code != ExitOK {
			t.Fatalf("%v exit = %d, stderr: %s", args, code, stderr)
		}
		if !strings.Contains(stdout, "util.go") {
			t.Errorf("%v: util.go not in results:\n%s", args, stdout)
		}
	}

	code, stdout, stderr := env.run(t, "status", "--format", "json")
	if code != ExitOK {
		t.Fatalf("status exit = %d, stderr: %s", code, stderr)
	}
	var st struct {
		Files      int    `json:"files"`
		EmbedModel string `json:"embedModel"`
		Dim        int    `json:"dim"`
	}
	if err := json.Unmarshal([]byte(stdout), &st); err != nil {
		t.Fatal(err)
	}
	if st.Files != 2 || st.EmbedModel != "mock:16" || st.Dim != 16 {
		t.Errorf("status = %+v", st)
	}
}

func TestConfigErrors(t *testing.T) {
	env := newTestEnv(t)
	env.config = filepath.Join(env.dir, "missing.yaml")
	code, _, stderr := env.run(t, "build")
	if code != ExitBlock {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr, "kensa: configuration error") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestLoadConfigFallback(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	a := newApp(&bytes.Buffer{}, &bytes.Buffer{})
	cfg, path, err := a.loadConfig()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if path != "" || cfg.TopK != 8 {
		t.Errorf("defaults: path %q top_k %d", path, cfg.TopK)
	}

	if err := os.WriteFile("kensa.json", []byte(`{"top_k": 3}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, path, err = a.loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if path != "kensa.json" || cfg.TopK != 3 {
		t.Errorf("json: path %q top_k %d", path, cfg.TopK)
	}

	if err := os.WriteFile("kensa.yaml", []byte("top_k: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if cfg, _, _ = a.loadConfig(); cfg.TopK != 5 {
		t.Errorf("yaml should win over json, top_k %d", cfg.TopK)
	}
}

func TestDiagnostic(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errs.Errorf(errs.Indexing, "build", "dimension mismatch"), "kensa: indexing error: build: dimension mismatch"},
		{errors.New("unknown command"), "kensa: error: unknown command"},
	}
	for _, tt := range tests {
		if got := diagnostic(tt.err); got != tt.want {
			t.Errorf("diagnostic() = %q, want %q", got, tt.want)
		}
	}
}

func TestHookInstallUninstall(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	if out, err := exec.Command("git", "init", "-q", dir).CombinedOutput(); err != nil {
		t.Fatalf("git init: %v: %s", err, out)
	}
	chdir(t, dir)
	hookPath := filepath.Join(dir, ".git", "hooks", "pre-commit")
	if err := os.MkdirAll(filepath.Dir(hookPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(hookPath, []byte("#!/bin/sh\nmake lint\n"), 0755); err != nil {
		t.Fatal(err)
	}

	run := func(args ...string) int {
		var stdout, stderr bytes.Buffer
		code := newApp(&stdout, &stderr).run(context.Background(), args)
		if code != ExitOK {
			t.Fatalf("%v exit = %d, stderr: %s", args, code, stderr.String())
		}
		return code
	}

	run("hook", "install")
	run("hook", "install")
	data, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), cli.HookMarkerStart); n != 1 {
		t.Errorf("marker count = %d, want 1:\n%s", n, data)
	}
	if !strings.Contains(string(data), "make lint") {
		t.Error("existing hook content lost")
	}

	run("hook", "uninstall")
	data, err = os.ReadFile(hookPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "kensa review") || !strings.Contains(string(data), "make lint") {
		t.Errorf("after uninstall:\n%s", data)
	}
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer
	if code := newApp(&stdout, &bytes.Buffer{}).run(context.Background(), []string{"version"}); code != ExitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "kensa version") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
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
