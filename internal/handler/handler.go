package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/pavelanni/quizgen/internal/handler/views"
	appI18n "github.com/pavelanni/quizgen/internal/i18n"
	"github.com/pavelanni/quizgen/internal/model"
	"github.com/pavelanni/quizgen/internal/session"
)

// activeTTL is how long an untouched browser quiz is kept in memory.
const activeTTL = 2 * time.Hour

// QuizMaker generates the questions of a new quiz.
type QuizMaker interface {
	GenerateQuiz(ctx context.Context, topic string, difficulty model.Difficulty, n int) ([]model.Question, error)
}

// ResultStore persists finished quizzes.
type ResultStore interface {
	Save(r model.QuizResult) (string, error)
	List() ([]model.QuizResult, error)
}

type activeQuiz struct {
	mu      sync.Mutex
	sess    *session.Session
	saved   bool
	touched time.Time
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	quizzes QuizMaker
	results ResultStore
	topics  []string
	config  model.QuizConfig
	cookies *sessions.CookieStore
	now     func() time.Time

	mu     sync.Mutex
	active map[string]*activeQuiz
}

// New creates a new Handler. sessionKey signs the session cookie; an empty
// key is replaced with a random one, so cookies do not survive a restart.
func New(q QuizMaker, rs ResultStore, topics []string, cfg model.QuizConfig, sessionKey []byte) (*Handler, error) {
	if len(sessionKey) == 0 {
		k, err := randomToken()
		if err != nil {
			return nil, err
		}
		sessionKey = []byte(k)
	}
	cookies := sessions.NewCookieStore(sessionKey)
	cookies.Options = &sessions.Options{
		Path:     cookiePath(cfg.BasePath),
		MaxAge:   int(activeTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	return &Handler{
		quizzes: q,
		results: rs,
		topics:  topics,
		config:  cfg,
		cookies: cookies,
		now:     time.Now,
		active:  make(map[string]*activeQuiz),
	}, nil
}

// Routes registers middleware and all HTTP routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.basePathMiddleware)
	r.Use(appI18n.Middleware())
	r.Use(h.csrfMiddleware)

	r.Get("/", h.handleIndex)
	r.Post("/quiz/start", h.handleStart)
	r.Get("/quiz", h.handleQuestion)
	r.Post("/quiz/answer", h.handleAnswer)
	r.Get("/quiz/result", h.handleResult)
	r.Get("/history", h.handleHistory)
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) basePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.IndexPage(h.indexData()))
}

func (h *Handler) indexData() views.IndexData {
	d := views.IndexData{
		Topics:       h.topics,
		Topic:        h.config.Topic,
		Difficulty:   h.config.Difficulty,
		NumQuestions: h.config.NumQuestions,
	}
	if !d.Difficulty.Valid() {
		d.Difficulty = model.DifficultyMedium
	}
	if d.NumQuestions < 1 {
		d.NumQuestions = 5
	}
	return d
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := h.indexData()
	data.Topic = strings.TrimSpace(r.FormValue("topic"))

	d, err := model.ParseDifficulty(r.FormValue("difficulty"))
	if err != nil {
		data.Error = appI18n.T(ctx, "InvalidDifficulty")
		h.render(w, r, http.StatusBadRequest, views.IndexPage(data))
		return
	}
	data.Difficulty = d
	n, err := session.ParseCount(r.FormValue("num_questions"))
	if err != nil {
		data.Error = appI18n.T(ctx, "InvalidCount")
		h.render(w, r, http.StatusBadRequest, views.IndexPage(data))
		return
	}
	data.NumQuestions = n
	if data.Topic == "" {
		data.Error = appI18n.T(ctx, "TopicRequired")
		h.render(w, r, http.StatusBadRequest, views.IndexPage(data))
		return
	}

	questions, err := h.quizzes.GenerateQuiz(ctx, data.Topic, d, n)
	if err != nil {
		slog.Error("failed to generate quiz", "topic", data.Topic, "error", err)
		http.Error(w, "quiz generation failed", http.StatusInternalServerError)
		return
	}
	sess, err := session.New(questions)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sess.SetClock(h.now)

	id, err := randomToken()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.mu.Lock()
	h.pruneLocked()
	h.active[id] = &activeQuiz{sess: sess, touched: h.now()}
	h.mu.Unlock()

	cs := h.cookieSession(r)
	cs.Values[quizKey] = id
	if err := cs.Save(r, w); err != nil {
		slog.Error("failed to save session cookie", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	slog.Info("quiz started", "topic", data.Topic, "difficulty", d, "questions", len(questions))
	http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
}

func (h *Handler) handleQuestion(w http.ResponseWriter, r *http.Request) {
	aq := h.activeFor(r)
	if aq == nil {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	aq.mu.Lock()
	q, idx, ok := aq.sess.Current()
	total := aq.sess.Len()
	aq.mu.Unlock()
	if !ok {
		http.Redirect(w, r, h.path("/quiz/result"), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, views.QuestionPage(q, idx, total))
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	aq := h.activeFor(r)
	if aq == nil {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	aq.mu.Lock()
	defer aq.mu.Unlock()

	_, idx, ok := aq.sess.Current()
	if !ok {
		http.Redirect(w, r, h.path("/quiz/result"), http.StatusSeeOther)
		return
	}
	// The form names the question it answers; a resubmitted earlier form
	// must not answer the current one.
	if n, err := strconv.Atoi(r.FormValue("question")); err != nil || n != idx {
		slog.Warn("ignoring answer for another question", "question", r.FormValue("question"), "current", idx)
		http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
		return
	}
	err := aq.sess.Answer(r.FormValue("answer"))
	switch {
	case errors.Is(err, session.ErrInvalidAnswer):
		http.Error(w, appI18n.T(r.Context(), "InvalidAnswer"), http.StatusBadRequest)
		return
	case errors.Is(err, session.ErrNotInProgress):
		http.Redirect(w, r, h.path("/quiz/result"), http.StatusSeeOther)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if aq.sess.State() != session.Completed {
		http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
		return
	}
	if _, err := h.finish(aq); err != nil {
		slog.Error("failed to save result", "error", err)
		http.Error(w, "failed to save result", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.path("/quiz/result"), http.StatusSeeOther)
}

func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	aq := h.activeFor(r)
	if aq == nil {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	aq.mu.Lock()
	if aq.sess.State() != session.Completed {
		aq.mu.Unlock()
		http.Redirect(w, r, h.path("/quiz"), http.StatusSeeOther)
		return
	}
	res, err := h.finish(aq)
	aq.mu.Unlock()
	if err != nil {
		slog.Error("failed to save result", "error", err)
		http.Error(w, "failed to save result", http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, views.ResultPage(res))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, views.HistoryPage(results))
}

// finish finalizes the quiz and saves its result the first time it is
// called. aq.mu must be held.
func (h *Handler) finish(aq *activeQuiz) (model.QuizResult, error) {
	res, err := aq.sess.Result()
	if err != nil {
		return model.QuizResult{}, err
	}
	if aq.saved {
		return res, nil
	}
	id, err := h.results.Save(res)
	if err != nil {
		return model.QuizResult{}, err
	}
	aq.saved = true
	slog.Info("quiz result saved", "id", id, "score", res.Score, "total", res.Total)
	return res, nil
}

// activeFor returns the quiz referenced by the request's session cookie.
func (h *Handler) activeFor(r *http.Request) *activeQuiz {
	id, _ := h.cookieSession(r).Values[quizKey].(string)
	if id == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	aq, ok := h.active[id]
	if !ok {
		return nil
	}
	aq.touched = h.now()
	return aq
}

// pruneLocked drops quizzes idle for longer than activeTTL. h.mu must be held.
func (h *Handler) pruneLocked() {
	cutoff := h.now().Add(-activeTTL)
	for id, aq := range h.active {
		if aq.touched.Before(cutoff) {
			delete(h.active, id)
		}
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
