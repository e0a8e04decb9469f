package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pavelanni/quizgen/internal/i18n"
	"github.com/pavelanni/quizgen/internal/model"
)

// ErrInvalidCount is reported for a question count that is not a positive integer.
var ErrInvalidCount = errors.New("question count must be a positive integer")

// Console reads answers from a line-oriented input and writes prompts to out.
type Console struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewConsole creates a console over in and out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewScanner(in), out: out}
}

// RunInteractive takes the quiz on the given streams and returns the finalized result.
func RunInteractive(ctx context.Context, questions []model.Question, in io.Reader, out io.Writer) (model.QuizResult, error) {
	return NewConsole(in, out).Run(ctx, questions)
}

// ReadLine prints prompt and returns the next input line without surrounding
// whitespace. It returns io.ErrUnexpectedEOF when input ends.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

// AskDifficulty prompts until a valid difficulty is entered.
func (c *Console) AskDifficulty(ctx context.Context) (model.Difficulty, error) {
	for {
		line, err := c.ReadLine(ctx, i18n.T(ctx, "DifficultyPrompt"))
		if err != nil {
			return "", err
		}
		d, err := model.ParseDifficulty(line)
		if err == nil {
			return d, nil
		}
		fmt.Fprintln(c.out, i18n.T(ctx, "InvalidDifficulty"))
	}
}

// AskCount prompts until a positive integer is entered.
func (c *Console) AskCount(ctx context.Context) (int, error) {
	for {
		line, err := c.ReadLine(ctx, i18n.T(ctx, "CountPrompt"))
		if err != nil {
			return 0, err
		}
		n, err := ParseCount(line)
		if err == nil {
			return n, nil
		}
		fmt.Fprintln(c.out, i18n.T(ctx, "InvalidCount"))
	}
}

// ParseCount parses a positive question count.
func ParseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCount, s)
	}
	return n, nil
}

// Run presents each question, re-prompting on invalid letters, and returns the result.
func (c *Console) Run(ctx context.Context, questions []model.Question) (model.QuizResult, error) {
	s, err := New(questions)
	if err != nil {
		return model.QuizResult{}, err
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, i18n.T(ctx, "QuizStarted"))
	for {
		q, i, ok := s.Current()
		if !ok {
			break
		}
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, i18n.Td(ctx, "QuestionN", map[string]any{"N": i + 1, "Total": s.Len()}))
		printQuestion(c.out, q)

		for {
			line, err := c.ReadLine(ctx, "\n"+i18n.T(ctx, "AnswerPrompt"))
			if err != nil {
				return model.QuizResult{}, err
			}
			if err := s.Answer(line); err == nil {
				break
			} else if !errors.Is(err, ErrInvalidAnswer) {
				return model.QuizResult{}, err
			}
			fmt.Fprintln(c.out, i18n.T(ctx, "InvalidAnswer"))
		}
	}
	return s.Result()
}

// WriteResults writes the per-question review and the final score to w.
func WriteResults(ctx context.Context, w io.Writer, r model.QuizResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, i18n.T(ctx, "ResultsHeader"))
	for i, rec := range r.Questions {
		fmt.Fprintln(w)
		fmt.Fprintln(w, i18n.Td(ctx, "QuestionN", map[string]any{"N": i + 1, "Total": r.Total}))
		fmt.Fprintln(w, rec.Question.Text)
		correctLetter := rec.Question.CorrectLetter()
		for j, o := range rec.Question.Options {
			letter := model.Letters[j]
			mark := ""
			if letter == rec.UserAnswer {
				mark = " ✗"
				if rec.IsCorrect {
					mark = " ✓"
				}
			}
			fmt.Fprintf(w, "%s. %s%s\n", letter, o, mark)
		}
		if rec.IsCorrect {
			fmt.Fprintln(w, i18n.T(ctx, "Correct"))
		} else {
			fmt.Fprintln(w, i18n.Td(ctx, "Incorrect", map[string]any{"Letter": correctLetter}))
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, i18n.Td(ctx, "FinalScore", map[string]any{
		"Score":   r.Score,
		"Total":   r.Total,
		"Percent": FormatPercent(r.Percentage()),
	}))
}

// FormatPercent renders a percentage with one decimal for display.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}

func printQuestion(w io.Writer, q model.Question) {
	fmt.Fprintln(w, q.Text)
	for j, o := range q.Options {
		if j >= len(model.Letters) {
			break
		}
		fmt.Fprintf(w, "%s. %s\n", model.Letters[j], o)
	}
}
