package model

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ErrInvalidDifficulty is returned when a difficulty string is not one of easy, medium or hard.
var ErrInvalidDifficulty = errors.New("difficulty must be easy, medium or hard")

// Difficulties lists the accepted difficulty levels in ascending order.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// ParseDifficulty parses a user-supplied difficulty, ignoring case and surrounding whitespace.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
	}
	return d, nil
}

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// OptionCount is the fixed number of answer options for every question.
const OptionCount = 4

// Letters are the answer letters, one per option.
var Letters = [OptionCount]string{"A", "B", "C", "D"}

// Question is a normalized multiple-choice question record.
type Question struct {
	Text          string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correct_answer"`
	Difficulty    Difficulty `json:"difficulty"`
	Topic         string     `json:"topic,omitempty"`
}

// Validate checks the structural invariants of a question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text is empty")
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("question has %d options, want %d", len(q.Options), OptionCount)
	}
	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		if seen[o] {
			return fmt.Errorf("duplicate option %q", o)
		}
		seen[o] = true
	}
	if !seen[q.CorrectAnswer] {
		return fmt.Errorf("correct answer %q is not among the options", q.CorrectAnswer)
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDifficulty, q.Difficulty)
	}
	return nil
}

// CorrectLetter returns the letter of the correct option, or "?" if it is missing.
func (q Question) CorrectLetter() string {
	for i, o := range q.Options {
		if o == q.CorrectAnswer && i < OptionCount {
			return Letters[i]
		}
	}
	return "?"
}

// QuizConfig holds runtime quiz parameters set via CLI flags.
type QuizConfig struct {
	Topic        string
	Difficulty   Difficulty
	NumQuestions int
	BasePath     string // URL prefix for sub-path deployments (e.g. "/quiz")
	SecureCookie bool   // Set Secure flag on cookies (disable for local dev)
}
