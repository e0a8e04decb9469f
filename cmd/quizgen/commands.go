package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/pavelanni/quizgen/internal/content"
	"github.com/pavelanni/quizgen/internal/handler"
	appI18n "github.com/pavelanni/quizgen/internal/i18n"
	"github.com/pavelanni/quizgen/internal/model"
	"github.com/pavelanni/quizgen/internal/quiz"
	"github.com/pavelanni/quizgen/internal/session"
	"github.com/pavelanni/quizgen/internal/store"
)

func runTake(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	if err := initI18n(v); err != nil {
		return err
	}

	results, closeStore, err := openStore(v)
	if err != nil {
		return err
	}
	defer closeStore()

	b, catalog, err := newBuilder(cmd, v)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	console := session.NewConsole(cmd.InOrStdin(), out)

	// A topic given up front runs a single quiz without prompting for setup.
	if topic := strings.TrimSpace(v.GetString("topic")); topic != "" {
		d, err := model.ParseDifficulty(v.GetString("difficulty"))
		if err != nil {
			return err
		}
		n := v.GetInt("num-questions")
		if n < 1 {
			return fmt.Errorf("%w: %d", session.ErrInvalidCount, n)
		}
		noteUnknownTopic(ctx, out, catalog, topic)
		return takeQuiz(ctx, console, out, b, results, topic, d, n)
	}

	fmt.Fprintln(out, appI18n.Td(ctx, "AvailableTopics", map[string]any{"Topics": strings.Join(catalog.Names(), ", ")}))
	for {
		topic, err := console.ReadLine(ctx, "\n"+appI18n.T(ctx, "TopicPrompt"))
		if errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return err
		}
		if topic == "" {
			continue
		}
		if strings.EqualFold(topic, "exit") || strings.EqualFold(topic, "quit") {
			break
		}
		noteUnknownTopic(ctx, out, catalog, topic)

		d, err := console.AskDifficulty(ctx)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return err
		}
		n, err := console.AskCount(ctx)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return err
		}
		if err := takeQuiz(ctx, console, out, b, results, topic, d, n); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return err
		}
	}
	fmt.Fprintln(out, appI18n.T(ctx, "Goodbye"))
	return nil
}

// noteUnknownTopic tells the user when the catalog has no material for topic.
// The quiz still runs; prompts just carry no study context.
func noteUnknownTopic(ctx context.Context, out io.Writer, catalog *content.Catalog, topic string) {
	if catalog.Has(topic) {
		return
	}
	fmt.Fprintln(out, appI18n.Td(ctx, "NoMaterial", map[string]any{
		"Topic":  topic,
		"Topics": strings.Join(catalog.Names(), ", "),
	}))
}

func takeQuiz(ctx context.Context, c *session.Console, out io.Writer, b *quiz.Builder, results resultStore,
	topic string, d model.Difficulty, n int) error {
	fmt.Fprintln(out, appI18n.T(ctx, "Generating"))
	questions, err := b.GenerateQuiz(ctx, topic, d, n)
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}
	fmt.Fprintln(out, appI18n.Tp(ctx, "QuestionsReady", len(questions)))

	res, err := c.Run(ctx, questions)
	if err != nil {
		return err
	}
	session.WriteResults(ctx, out, res)

	id, err := results.Save(res)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	fmt.Fprintln(out, appI18n.Td(ctx, "ResultSaved", map[string]any{"Path": id}))
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	if err := initI18n(v); err != nil {
		return err
	}

	results, closeStore, err := openStore(v)
	if err != nil {
		return err
	}
	defer closeStore()

	b, catalog, err := newBuilder(cmd, v)
	if err != nil {
		return err
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	d, err := model.ParseDifficulty(v.GetString("difficulty"))
	if err != nil {
		slog.Warn("invalid default difficulty, using medium", "difficulty", v.GetString("difficulty"))
		d = model.DifficultyMedium
	}
	cfg := model.QuizConfig{
		Topic:        v.GetString("topic"),
		Difficulty:   d,
		NumQuestions: v.GetInt("num-questions"),
		BasePath:     basePath,
		SecureCookie: v.GetBool("secure-cookies"),
	}

	h, err := handler.New(b, results, catalog.Names(), cfg, []byte(v.GetString("session-key")))
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if basePath != "" {
		r.Route(basePath, h.Routes)
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", v.GetString("lang"),
		"store", v.GetString("store"),
		"base_path", basePath,
	)

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}
	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	topic := strings.TrimSpace(v.GetString("topic"))
	if topic == "" {
		return errors.New("--topic is required")
	}
	d, err := model.ParseDifficulty(v.GetString("difficulty"))
	if err != nil {
		return err
	}

	b, catalog, err := newBuilder(cmd, v)
	if err != nil {
		return err
	}
	if !catalog.Has(topic) {
		slog.Warn("no study material for topic", "topic", topic, "known", catalog.Names())
	}
	questions, err := b.GenerateQuiz(cmd.Context(), topic, d, v.GetInt("num-questions"))
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}

	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeOutput(cmd, v.GetString("output"), data)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	if err := initI18n(v); err != nil {
		return err
	}

	results, closeStore, err := openStore(v)
	if err != nil {
		return err
	}
	defer closeStore()

	list, err := results.List()
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, appI18n.T(ctx, "NoHistory"))
		return nil
	}
	return writeHistory(ctx, out, list)
}

func writeHistory(ctx context.Context, out io.Writer, list []model.QuizResult) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		appI18n.T(ctx, "Date"), appI18n.T(ctx, "Topic"), appI18n.T(ctx, "Difficulty"),
		appI18n.T(ctx, "Score"), appI18n.T(ctx, "Duration"))
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d (%s%%)\t%.0f\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Topic, r.Difficulty,
			r.Score, r.Total, session.FormatPercent(r.Percentage()), r.DurationSeconds)
	}
	return tw.Flush()
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	results, closeStore, err := openStore(v)
	if err != nil {
		return err
	}
	defer closeStore()

	export, err := store.Export(results, time.Now())
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeOutput(cmd, v.GetString("output"), data)
}

// writeOutput writes data plus a trailing newline to path, or to the
// command's stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	var w io.Writer
	if path == "" || path == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}
