package model

import "time"

// AnswerRecord pairs a question with the letter the user picked.
type AnswerRecord struct {
	Question   Question `json:"question"`
	UserAnswer string   `json:"user_answer"`
	IsCorrect  bool     `json:"is_correct"`
}

// QuizResult is the scored outcome of a completed quiz session.
type QuizResult struct {
	Timestamp       time.Time      `json:"timestamp"`
	Topic           string         `json:"topic,omitempty"`
	Difficulty      Difficulty     `json:"difficulty,omitempty"`
	Questions       []AnswerRecord `json:"questions"`
	Score           int            `json:"score"`
	Total           int            `json:"total"`
	DurationSeconds float64        `json:"duration_seconds"`
}

// Percentage returns score/total*100, or 0 for an empty quiz.
func (r QuizResult) Percentage() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Score) / float64(r.Total) * 100
}
