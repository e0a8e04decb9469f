package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/quizgen/internal/model"
)

type stubQuizMaker struct {
	mu    sync.Mutex
	calls int
}

func (s *stubQuizMaker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubQuizMaker) GenerateQuiz(_ context.Context, topic string, d model.Difficulty, n int) ([]model.Question, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			Text:          "What is " + topic + " " + string(rune('1'+i)) + "?",
			Options:       []string{"right", "wrong one", "wrong two", "wrong three"},
			CorrectAnswer: "right",
			Difficulty:    d,
			Topic:         topic,
		}
	}
	return qs, nil
}

type memResults struct {
	mu      sync.Mutex
	results []model.QuizResult
}

func (m *memResults) Save(r model.QuizResult) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return "mem", nil
}

func (m *memResults) List() ([]model.QuizResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.QuizResult(nil), m.results...), nil
}

func (m *memResults) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

var csrfRe = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type testClient struct {
	t    *testing.T
	srv  *httptest.Server
	http *http.Client
}

func newTestServer(t *testing.T, basePath string) (*testClient, *stubQuizMaker, *memResults) {
	t.Helper()
	qm := &stubQuizMaker{}
	rs := &memResults{}
	h, err := New(qm, rs, []string{"python", "algorithms"}, model.QuizConfig{
		Difficulty:   model.DifficultyEasy,
		NumQuestions: 2,
		BasePath:     basePath,
	}, []byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := chi.NewRouter()
	if basePath != "" {
		r.Route(basePath, h.Routes)
	} else {
		h.Routes(r)
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testClient{t: t, srv: srv, http: &http.Client{Jar: jar}}, qm, rs
}

func (c *testClient) get(path string) (int, string) {
	c.t.Helper()
	resp, err := c.http.Get(c.srv.URL + path)
	if err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	return readBody(c.t, resp)
}

func (c *testClient) post(path string, form url.Values) (int, string) {
	c.t.Helper()
	resp, err := c.http.PostForm(c.srv.URL+path, form)
	if err != nil {
		c.t.Fatalf("POST %s: %v", path, err)
	}
	return readBody(c.t, resp)
}

func readBody(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(b)
}

func csrfToken(t *testing.T, body string) string {
	t.Helper()
	m := csrfRe.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no csrf token in page:\n%s", body)
	}
	return m[1]
}

func TestQuizFlow(t *testing.T) {
	c, qm, rs := newTestServer(t, "")

	status, body := c.get("/")
	if status != http.StatusOK {
		t.Fatalf("GET / = %d", status)
	}
	token := csrfToken(t, body)
	if !strings.Contains(body, `<option value="python">`) {
		t.Error("index page does not list topics")
	}

	status, body = c.post("/quiz/start", url.Values{
		"csrf_token":    {token},
		"topic":         {"python"},
		"difficulty":    {"Easy"},
		"num_questions": {"2"},
	})
	if status != http.StatusOK {
		t.Fatalf("start = %d: %s", status, body)
	}
	if n := qm.callCount(); n != 1 {
		t.Errorf("GenerateQuiz calls = %d, want 1", n)
	}
	if !strings.Contains(body, "What is python 1?") || !strings.Contains(body, "Question 1 of 2") {
		t.Fatalf("first question page missing question:\n%s", body)
	}

	status, _ = c.post("/quiz/answer", url.Values{"csrf_token": {token}, "question": {"0"}, "answer": {"z"}})
	if status != http.StatusBadRequest {
		t.Errorf("invalid answer status = %d, want 400", status)
	}

	_, body = c.post("/quiz/answer", url.Values{"csrf_token": {token}, "question": {"0"}, "answer": {"a"}})
	if !strings.Contains(body, "What is python 2?") {
		t.Fatalf("second question page missing question:\n%s", body)
	}
	if rs.count() != 0 {
		t.Errorf("result saved before the quiz finished")
	}

	status, body = c.post("/quiz/answer", url.Values{"csrf_token": {token}, "question": {"1"}, "answer": {"B"}})
	if status != http.StatusOK {
		t.Fatalf("last answer = %d: %s", status, body)
	}
	if !strings.Contains(body, "Final Score: 1/2 (50.0%)") {
		t.Errorf("result page missing score:\n%s", body)
	}

	c.get("/quiz/result")
	if got := rs.count(); got != 1 {
		t.Errorf("saved results = %d, want exactly 1", got)
	}
	res, _ := rs.List()
	if res[0].Topic != "python" || res[0].Difficulty != model.DifficultyEasy || res[0].Score != 1 {
		t.Errorf("saved result = %+v", res[0])
	}

	_, body = c.get("/history")
	if !strings.Contains(body, "python") || !strings.Contains(body, "1/2") {
		t.Errorf("history page missing result:\n%s", body)
	}

	// Answering a finished quiz sends the user back to the result.
	status, body = c.post("/quiz/answer", url.Values{"csrf_token": {token}, "question": {"1"}, "answer": {"A"}})
	if status != http.StatusOK || !strings.Contains(body, "Final Score") {
		t.Errorf("answer after completion = %d", status)
	}
	if got := rs.count(); got != 1 {
		t.Errorf("saved results after extra answer = %d, want 1", got)
	}
}

func TestResubmittedAnswerIgnored(t *testing.T) {
	c, _, rs := newTestServer(t, "")
	_, body := c.get("/")
	token := csrfToken(t, body)
	_, body = c.post("/quiz/start", url.Values{
		"csrf_token":    {token},
		"topic":         {"python"},
		"difficulty":    {"easy"},
		"num_questions": {"2"},
	})
	if !strings.Contains(body, `name="question" value="0"`) {
		t.Fatalf("question page does not carry its index:\n%s", body)
	}

	first := url.Values{"csrf_token": {token}, "question": {"0"}, "answer": {"B"}}
	c.post("/quiz/answer", first)
	_, body = c.post("/quiz/answer", first)
	if !strings.Contains(body, "What is python 2?") {
		t.Errorf("resubmit did not land back on question 2:\n%s", body)
	}

	_, body = c.post("/quiz/answer", url.Values{"csrf_token": {token}, "answer": {"A"}})
	if !strings.Contains(body, "What is python 2?") {
		t.Errorf("answer without a question index was accepted")
	}
	if got := rs.count(); got != 0 {
		t.Fatalf("saved results = %d after stale submissions, want 0", got)
	}

	c.post("/quiz/answer", url.Values{"csrf_token": {token}, "question": {"1"}, "answer": {"A"}})
	res, _ := rs.List()
	if len(res) != 1 {
		t.Fatalf("saved results = %d, want 1", len(res))
	}
	if got := []string{res[0].Questions[0].UserAnswer, res[0].Questions[1].UserAnswer}; got[0] != "B" || got[1] != "A" {
		t.Errorf("recorded answers = %q, want [B A]", got)
	}
}

func TestStartValidation(t *testing.T) {
	c, qm, _ := newTestServer(t, "")
	_, body := c.get("/")
	token := csrfToken(t, body)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"bad difficulty", url.Values{"topic": {"python"}, "difficulty": {"extreme"}, "num_questions": {"2"}}, "Please enter easy, medium, or hard"},
		{"zero count", url.Values{"topic": {"python"}, "difficulty": {"easy"}, "num_questions": {"0"}}, "Please enter a positive whole number"},
		{"empty topic", url.Values{"topic": {"  "}, "difficulty": {"easy"}, "num_questions": {"2"}}, "Please enter a topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.form.Set("csrf_token", token)
			status, body := c.post("/quiz/start", tt.form)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
	if n := qm.callCount(); n != 0 {
		t.Errorf("GenerateQuiz called %d times on invalid input", n)
	}
}

func TestCSRFRequired(t *testing.T) {
	c, qm, _ := newTestServer(t, "")
	c.get("/")

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"wrong", "not-the-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"topic": {"python"}, "difficulty": {"easy"}, "num_questions": {"1"}}
			if tt.token != "" {
				form.Set("csrf_token", tt.token)
			}
			status, _ := c.post("/quiz/start", form)
			if status != http.StatusForbidden {
				t.Errorf("status = %d, want 403", status)
			}
		})
	}
	if qm.callCount() != 0 {
		t.Errorf("GenerateQuiz called without a valid token")
	}
}

func TestNoActiveQuizRedirectsHome(t *testing.T) {
	c, _, _ := newTestServer(t, "")
	for _, p := range []string{"/quiz", "/quiz/result"} {
		status, body := c.get(p)
		if status != http.StatusOK || !strings.Contains(body, `action="/quiz/start"`) {
			t.Errorf("GET %s did not land on the start page", p)
		}
	}
}

func TestBasePath(t *testing.T) {
	c, _, _ := newTestServer(t, "/quizzes")
	status, body := c.get("/quizzes/")
	if status != http.StatusOK {
		t.Fatalf("GET /quizzes/ = %d", status)
	}
	if !strings.Contains(body, `action="/quizzes/quiz/start"`) || !strings.Contains(body, `href="/quizzes/history"`) {
		t.Errorf("links are not prefixed with the base path:\n%s", body)
	}
	token := csrfToken(t, body)
	_, body = c.post("/quizzes/quiz/start", url.Values{
		"csrf_token":    {token},
		"topic":         {"algorithms"},
		"difficulty":    {"hard"},
		"num_questions": {"1"},
	})
	if !strings.Contains(body, "What is algorithms 1?") {
		t.Errorf("question page not reached under base path:\n%s", body)
	}
}

func TestLanguageQuery(t *testing.T) {
	c, _, _ := newTestServer(t, "")
	_, body := c.get("/?lang=ru")
	if strings.Contains(body, ">Start Quiz<") {
		t.Errorf("page not localized for lang=ru")
	}
}
