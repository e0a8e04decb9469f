package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/quizgen/internal/content"
	appI18n "github.com/pavelanni/quizgen/internal/i18n"
	"github.com/pavelanni/quizgen/internal/llm"
	"github.com/pavelanni/quizgen/internal/model"
	"github.com/pavelanni/quizgen/internal/quiz"
	"github.com/pavelanni/quizgen/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error reading .env file", "error", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizgen",
		Short: "Multiple-choice quiz generator powered by LLMs",
	}

	take := takeCmd()
	root.AddCommand(take, serveCmd(), generateCmd(), historyCmd(), exportCmd())

	// Make "take" the default when no subcommand is given.
	root.RunE = take.RunE
	root.Flags().AddFlagSet(take.Flags())

	return root
}

func takeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take quizzes in the terminal",
		RunE:  runTake,
	}
	f := cmd.Flags()
	addLLMFlags(f)
	addQuizFlags(f)
	addStoreFlags(f)
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	addLogFlags(f)
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	addLLMFlags(f)
	addQuizFlags(f)
	addStoreFlags(f)
	f.StringP("lang", "l", "en", "Default UI language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /quiz)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("session-key", "", "Secret for signing session cookies (random when empty)")
	addLogFlags(f)
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a quiz and print it as JSON",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	addLLMFlags(f)
	addQuizFlags(f)
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved quiz results",
		RunE:  runHistory,
	}
	f := cmd.Flags()
	addStoreFlags(f)
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	addLogFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved results with per-topic totals as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	addStoreFlags(f)
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

func addLLMFlags(f *pflag.FlagSet) {
	def := llm.DefaultOptions()
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Duration("gen-timeout", quiz.DefaultTimeout, "Timeout for each generation call (0 disables)")
	f.Int("max-tokens", def.MaxTokens, "Maximum tokens per generated question")
	f.Float64("temperature", float64(def.Temperature), "Sampling temperature")
	f.Float64("top-p", float64(def.TopP), "Nucleus sampling cutoff")
	f.String("content", "", "YAML topic catalog (built-in catalog when empty)")
}

func addQuizFlags(f *pflag.FlagSet) {
	f.StringP("topic", "t", "", "Quiz topic")
	f.StringP("difficulty", "d", string(model.DifficultyMedium), "Question difficulty (easy, medium, hard)")
	f.IntP("num-questions", "n", 5, "Number of questions per quiz")
}

func addStoreFlags(f *pflag.FlagSet) {
	f.String("store", "file", "Result store (file, sqlite)")
	f.String("results-dir", "results", "Directory for JSON result files (file store)")
	f.String("db", "quizgen.db", "SQLite database path (sqlite store)")
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizgen")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizgen")
	v.AddConfigPath("/etc/quizgen")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func initI18n(v *viper.Viper) error {
	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	return nil
}

// resultStore is what the commands need from either persistence backend.
type resultStore interface {
	Save(r model.QuizResult) (string, error)
	List() ([]model.QuizResult, error)
}

// openStore opens the configured result store. The returned close func is never nil.
func openStore(v *viper.Viper) (resultStore, func() error, error) {
	switch kind := strings.ToLower(v.GetString("store")); kind {
	case "file", "":
		files, err := store.NewFileStore(v.GetString("results-dir"))
		if err != nil {
			return nil, nil, fmt.Errorf("open results dir: %w", err)
		}
		return files, func() error { return nil }, nil
	case "sqlite":
		db, err := store.New(v.GetString("db"))
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want file or sqlite)", kind)
	}
}

func loadCatalog(v *viper.Viper) (*content.Catalog, error) {
	if path := v.GetString("content"); path != "" {
		return content.LoadFile(path)
	}
	return content.Default()
}

// newBuilder wires the LLM client and topic catalog into a question builder.
// The endpoint is pinged once; an unreachable endpoint is only a warning
// because every question degrades to placeholders.
func newBuilder(cmd *cobra.Command, v *viper.Viper) (*quiz.Builder, *content.Catalog, error) {
	catalog, err := loadCatalog(v)
	if err != nil {
		return nil, nil, fmt.Errorf("load topic catalog: %w", err)
	}

	client := llm.New(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"))
	if err := client.Ping(cmd.Context()); err != nil {
		slog.Warn("LLM health check failed; questions will use placeholders", "url", v.GetString("llm-url"), "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	opts := llm.DefaultOptions()
	opts.MaxTokens = v.GetInt("max-tokens")
	opts.Temperature = float32(v.GetFloat64("temperature"))
	opts.TopP = float32(v.GetFloat64("top-p"))

	b := quiz.NewBuilder(client, catalog, quiz.Config{
		Timeout: v.GetDuration("gen-timeout"),
		Options: opts,
	})
	return b, catalog, nil
}
