package model

import (
	"errors"
	"testing"
)

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"easy", DifficultyEasy, false},
		{" Medium ", DifficultyMedium, false},
		{"HARD", DifficultyHard, false},
		{"", "", true},
		{"expert", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDifficulty(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDifficulty) {
					t.Fatalf("ParseDifficulty(%q) error = %v, want ErrInvalidDifficulty", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDifficulty(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDifficulty(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuestionValidate(t *testing.T) {
	valid := Question{
		Text:          "What is Go?",
		Options:       []string{"a language", "a game", "a verb", "a board"},
		CorrectAnswer: "a language",
		Difficulty:    DifficultyEasy,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid question: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(q *Question)
	}{
		{"empty text", func(q *Question) { q.Text = "  " }},
		{"three options", func(q *Question) { q.Options = q.Options[:3] }},
		{"duplicate option", func(q *Question) { q.Options = []string{"x", "x", "y", "z"}; q.CorrectAnswer = "x" }},
		{"correct not in options", func(q *Question) { q.CorrectAnswer = "nope" }},
		{"bad difficulty", func(q *Question) { q.Difficulty = "extreme" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			q.Options = append([]string(nil), valid.Options...)
			tt.mutate(&q)
			if err := q.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCorrectLetter(t *testing.T) {
	q := Question{Options: []string{"w", "x", "y", "z"}, CorrectAnswer: "y"}
	if got := q.CorrectLetter(); got != "C" {
		t.Errorf("CorrectLetter() = %q, want C", got)
	}
	q.CorrectAnswer = "missing"
	if got := q.CorrectLetter(); got != "?" {
		t.Errorf("CorrectLetter() = %q, want ?", got)
	}
}

func TestPercentage(t *testing.T) {
	if got := (QuizResult{Score: 2, Total: 3}).Percentage(); got < 66.66 || got > 66.67 {
		t.Errorf("Percentage() = %v, want ~66.67", got)
	}
	if got := (QuizResult{}).Percentage(); got != 0 {
		t.Errorf("Percentage() of empty result = %v, want 0", got)
	}
}
