package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pavelanni/quizgen/internal/llm"
	"github.com/pavelanni/quizgen/internal/llm/prompts"
	"github.com/pavelanni/quizgen/internal/model"
)

// DefaultTimeout bounds a single generation call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrInvalidCount is returned when a quiz is requested with fewer than one question.
var ErrInvalidCount = errors.New("number of questions must be positive")

// TextGenerator produces text for a prompt. Implementations may be slow or fail.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error)
}

// ContextSource supplies study material and curated wrong answers for a topic.
type ContextSource interface {
	Section(topic string, difficulty model.Difficulty, rng *rand.Rand) string
	Distractors(topic string) []string
}

// Config holds generation parameters for a Builder.
type Config struct {
	Timeout time.Duration       // per generation call; 0 disables the deadline
	Options llm.GenerateOptions // sampling parameters for question calls
	Rand    *rand.Rand          // shuffle source; nil uses the global generator
	Logger  *slog.Logger        // nil uses slog.Default()
}

// Builder turns generated text into normalized questions.
type Builder struct {
	gen     TextGenerator
	content ContextSource
	cfg     Config
}

// NewBuilder creates a Builder. gen and content may both be nil: without a
// generator every question is built from placeholders, without content the
// prompts carry no study material.
func NewBuilder(gen TextGenerator, content ContextSource, cfg Config) *Builder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Options == (llm.GenerateOptions{}) {
		cfg.Options = llm.DefaultOptions()
	}
	return &Builder{gen: gen, content: content, cfg: cfg}
}

// GenerateQuiz builds n questions for the topic. It fails only for a
// non-positive n or when ctx is cancelled; generation errors degrade to
// placeholder content.
func (b *Builder) GenerateQuiz(ctx context.Context, topic string, difficulty model.Difficulty, n int) ([]model.Question, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	questions := make([]model.Question, 0, n)
	for i := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q := b.Generate(ctx, topic, difficulty)
		b.cfg.Logger.Debug("built question", "index", i, "topic", topic, "text", q.Text)
		questions = append(questions, q)
	}
	return questions, nil
}

// Generate asks the generator for a question about topic and builds it.
func (b *Builder) Generate(ctx context.Context, topic string, difficulty model.Difficulty) model.Question {
	difficulty = b.coerce(difficulty)

	var section string
	if b.content != nil {
		section = b.content.Section(topic, difficulty, b.cfg.Rand)
	}

	prompt, err := prompts.BuildQuestionPrompt(difficulty, prompts.QuestionData{
		Topic:       topic,
		Context:     section,
		WithOptions: true,
	})
	if err != nil {
		b.cfg.Logger.Error("build question prompt", "error", err)
		return b.build(ctx, "", topic, difficulty, false)
	}

	raw, err := b.generate(ctx, prompt, b.cfg.Options)
	if err != nil {
		// A second call for options would most likely fail the same way.
		b.cfg.Logger.Warn("question generation failed, using placeholders", "topic", topic, "error", err)
		return b.build(ctx, "", topic, difficulty, false)
	}
	return b.build(ctx, raw, topic, difficulty, true)
}

// Build turns raw generated text into a question. Answer candidates are read
// from the lines of rawText; if fewer than four turn up, a second generation
// call asks for the rest, then the topic's curated distractors, and any
// remaining gap is filled with placeholders.
// The first candidate is the correct answer; options are shuffled after it
// is recorded. The returned question always satisfies Validate.
func (b *Builder) Build(ctx context.Context, rawText, topic string, difficulty model.Difficulty) model.Question {
	return b.build(ctx, rawText, topic, b.coerce(difficulty), true)
}

func (b *Builder) build(ctx context.Context, rawText, topic string, difficulty model.Difficulty, askMore bool) model.Question {
	text := NormalizeQuestion(rawText)
	if text == "" {
		text = fallbackQuestion(topic)
	}

	candidates := ParseOptions(rawText, text)
	if askMore && len(candidates) < model.OptionCount && b.gen != nil {
		candidates = append(candidates, b.moreOptions(ctx, text, topic, difficulty, candidates)...)
	}
	if len(candidates) < model.OptionCount {
		candidates = b.withDistractors(candidates, topic)
	}

	options := PadOptions(candidates, topic)
	correct := options[0]
	b.shuffle(options)

	return model.Question{
		Text:          text,
		Options:       options,
		CorrectAnswer: correct,
		Difficulty:    difficulty,
		Topic:         topic,
	}
}

func (b *Builder) moreOptions(ctx context.Context, question, topic string, difficulty model.Difficulty, existing []string) []string {
	missing := model.OptionCount - len(existing)
	prompt, err := prompts.BuildOptionsPrompt(prompts.OptionsData{
		Topic:      topic,
		Difficulty: difficulty,
		Question:   question,
		Existing:   existing,
		Missing:    missing,
	})
	if err != nil {
		b.cfg.Logger.Error("build options prompt", "error", err)
		return nil
	}

	opts := b.cfg.Options
	opts.NumSequences = 1
	raw, err := b.generate(ctx, prompt, opts)
	if err != nil {
		b.cfg.Logger.Warn("option generation failed, using placeholders", "topic", topic, "error", err)
		return nil
	}
	return ParseOptions(raw, question)
}

// withDistractors appends the topic's curated wrong answers in random order.
// With no candidates at all, the first placeholder goes first so that it, and
// never a distractor, becomes the correct answer.
func (b *Builder) withDistractors(candidates []string, topic string) []string {
	if b.content == nil {
		return candidates
	}
	ds := b.content.Distractors(topic)
	if len(ds) == 0 {
		return candidates
	}
	out := append([]string(nil), candidates...)
	if len(out) == 0 {
		out = append(out, PadOptions(nil, topic)[0])
	}
	b.shuffle(ds)
	return append(out, ds...)
}

func (b *Builder) generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	if b.gen == nil {
		return "", errors.New("no text generator configured")
	}
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	// Buffered so the goroutine can finish after a timeout without a reader.
	done := make(chan result, 1)
	go func() {
		text, err := b.gen.Generate(ctx, prompt, opts)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("generation: %w", ctx.Err())
	}
}

func (b *Builder) shuffle(options []string) {
	swap := func(i, j int) { options[i], options[j] = options[j], options[i] }
	if b.cfg.Rand != nil {
		b.cfg.Rand.Shuffle(len(options), swap)
		return
	}
	rand.Shuffle(len(options), swap)
}

func (b *Builder) coerce(d model.Difficulty) model.Difficulty {
	if d.Valid() {
		return d
	}
	b.cfg.Logger.Warn("unknown difficulty, using medium", "difficulty", d)
	return model.DifficultyMedium
}
