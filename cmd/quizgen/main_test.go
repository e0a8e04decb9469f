package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pavelanni/quizgen/internal/store"
)

// unreachableLLM is a URL nothing listens on, so every generation falls back
// to placeholder questions.
const unreachableLLM = "http://127.0.0.1:1/v1"

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("quizgen %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestTakeInteractive(t *testing.T) {
	dir := t.TempDir()
	out := execute(t, "python\nextreme\neasy\n0\n2\nA\nq\nb\nexit\n",
		"take", "--llm-url", unreachableLLM, "--gen-timeout", "2s",
		"--results-dir", dir, "--log-level", "error")

	for _, want := range []string{
		"Available topics:",
		"Please enter easy, medium, or hard",
		"Please enter a positive whole number",
		"Question 2 of 2:",
		"Please enter A, B, C, or D",
		"Final Score:",
		"Thank you for using Quiz Generator!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	if strings.Contains(out, "No study material") {
		t.Error("known topic reported as missing material")
	}

	files, err := filepath.Glob(filepath.Join(dir, "quiz_result_*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("result files = %v, want 1", files)
	}
	fs, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	r, err := fs.Load(filepath.Base(files[0]))
	if err != nil {
		t.Fatal(err)
	}
	if r.Topic != "python" || r.Total != 2 || len(r.Questions) != 2 {
		t.Errorf("saved result = %+v", r)
	}
}

func TestTakeUnknownTopicNotice(t *testing.T) {
	out := execute(t, "C\n", "take", "--llm-url", unreachableLLM, "--gen-timeout", "2s",
		"--topic", "astronomy", "--num-questions", "1", "--results-dir", t.TempDir(), "--log-level", "error")
	want := `No study material for "astronomy"; questions are generated without context. Known topics: algorithms, data_structures, python`
	if !strings.Contains(out, want) {
		t.Errorf("output missing notice %q:\n%s", want, out)
	}
	if !strings.Contains(out, "Final Score:") {
		t.Error("quiz did not run for an unknown topic")
	}
}

func TestTakeEndOfInputExits(t *testing.T) {
	out := execute(t, "", "take", "--llm-url", unreachableLLM, "--results-dir", t.TempDir(), "--log-level", "error")
	if !strings.Contains(out, "Thank you for using Quiz Generator!") {
		t.Errorf("output missing goodbye:\n%s", out)
	}
}

func TestHistoryAndExportSQLite(t *testing.T) {
	db := filepath.Join(t.TempDir(), "quizgen.db")
	common := []string{"--store", "sqlite", "--db", db, "--log-level", "error"}

	execute(t, "D\n", append([]string{"take", "--llm-url", unreachableLLM, "--gen-timeout", "2s",
		"--topic", "algorithms", "--difficulty", "hard", "--num-questions", "1"}, common...)...)

	out := execute(t, "", append([]string{"history"}, common...)...)
	if !strings.Contains(out, "algorithms") || !strings.Contains(out, "hard") {
		t.Errorf("history missing result:\n%s", out)
	}

	out = execute(t, "", append([]string{"export"}, common...)...)
	var exp store.HistoryExport
	if err := json.Unmarshal([]byte(out), &exp); err != nil {
		t.Fatalf("export is not JSON: %v\n%s", err, out)
	}
	if exp.Count != 1 || exp.ByTopic["algorithms"].Quizzes != 1 {
		t.Errorf("export = %+v", exp)
	}
}

func TestGenerateWritesQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.json")
	execute(t, "", "generate", "--llm-url", unreachableLLM, "--gen-timeout", "2s",
		"--topic", "data structures", "--num-questions", "3", "--output", path, "--log-level", "error")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var qs []struct {
		Question      string   `json:"question"`
		Options       []string `json:"options"`
		CorrectAnswer string   `json:"correct_answer"`
	}
	if err := json.Unmarshal(data, &qs); err != nil {
		t.Fatal(err)
	}
	if len(qs) != 3 {
		t.Fatalf("questions = %d, want 3", len(qs))
	}
	for _, q := range qs {
		if len(q.Options) != 4 || !strings.HasSuffix(q.Question, "?") {
			t.Errorf("malformed question %+v", q)
		}
	}
}

func TestOpenStoreUnknown(t *testing.T) {
	v := viperForCmd(historyCmd())
	v.Set("store", "mongo")
	if _, _, err := openStore(v); err == nil {
		t.Error("openStore accepted an unknown backend")
	}
}
