// Package session runs a quiz over a fixed list of questions and scores the answers.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/quizgen/internal/model"
)

var (
	// ErrInvalidAnswer is returned for anything other than A, B, C or D.
	ErrInvalidAnswer = errors.New("answer must be one of A, B, C, D")
	// ErrNotInProgress is returned when answering a session that has not presented a question or is finished.
	ErrNotInProgress = errors.New("session is not in progress")
	// ErrNotCompleted is returned when asking for the result before every question is answered.
	ErrNotCompleted = errors.New("session is not completed")
	// ErrAnswerCount is returned by Score when answers and questions differ in length.
	ErrAnswerCount = errors.New("number of answers does not match number of questions")
	// ErrNoQuestions is returned when creating a session without questions.
	ErrNoQuestions = errors.New("quiz has no questions")
)

// State is the position of a session in its lifecycle.
type State int

const (
	NotStarted State = iota
	InProgress
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseLetter normalizes an answer letter and returns it with its option index.
func ParseLetter(input string) (string, int, error) {
	letter := strings.ToUpper(strings.TrimSpace(input))
	for i, l := range model.Letters {
		if letter == l {
			return l, i, nil
		}
	}
	return "", -1, fmt.Errorf("%w: %q", ErrInvalidAnswer, input)
}

// Score grades answers against questions. It is pure: the returned result has
// no timestamp or duration. An answer is correct when the option at its
// letter equals the question's correct answer exactly.
func Score(questions []model.Question, answers []string) (model.QuizResult, error) {
	if len(answers) != len(questions) {
		return model.QuizResult{}, fmt.Errorf("%w: %d answers for %d questions", ErrAnswerCount, len(answers), len(questions))
	}

	result := model.QuizResult{
		Questions: make([]model.AnswerRecord, 0, len(questions)),
		Total:     len(questions),
	}
	if len(questions) > 0 {
		result.Topic = questions[0].Topic
		result.Difficulty = questions[0].Difficulty
	}

	for i, q := range questions {
		letter, idx, err := ParseLetter(answers[i])
		if err != nil {
			return model.QuizResult{}, fmt.Errorf("question %d: %w", i+1, err)
		}
		correct := idx < len(q.Options) && q.Options[idx] == q.CorrectAnswer
		if correct {
			result.Score++
		}
		result.Questions = append(result.Questions, model.AnswerRecord{
			Question:   q,
			UserAnswer: letter,
			IsCorrect:  correct,
		})
	}
	return result, nil
}

// Session walks through questions in order, collecting exactly one answer
// per question. It is not safe for concurrent use.
type Session struct {
	questions []model.Question
	answers   []string
	state     State
	startedAt time.Time
	result    *model.QuizResult
	now       func() time.Time
}

// New creates a session over a copy of questions.
func New(questions []model.Question) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return &Session{
		questions: append([]model.Question(nil), questions...),
		answers:   make([]string, 0, len(questions)),
		now:       time.Now,
	}, nil
}

// SetClock replaces the time source used for the start time and result timestamp.
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Len returns the number of questions.
func (s *Session) Len() int {
	return len(s.questions)
}

// Answered returns the number of recorded answers.
func (s *Session) Answered() int {
	return len(s.answers)
}

// Current presents the next unanswered question and its zero-based index.
// Presenting the first question starts the session. ok is false once the
// session is completed.
func (s *Session) Current() (q model.Question, index int, ok bool) {
	if s.state == Completed {
		return model.Question{}, len(s.questions), false
	}
	if s.state == NotStarted {
		s.state = InProgress
		s.startedAt = s.now()
	}
	i := len(s.answers)
	return s.questions[i], i, true
}

// Answer records the answer to the current question. Invalid letters leave
// the session unchanged so the caller can ask again.
func (s *Session) Answer(input string) error {
	if s.state != InProgress {
		return fmt.Errorf("%w: %s", ErrNotInProgress, s.state)
	}
	letter, _, err := ParseLetter(input)
	if err != nil {
		return err
	}
	s.answers = append(s.answers, letter)
	if len(s.answers) == len(s.questions) {
		s.state = Completed
	}
	return nil
}

// Result finalizes the session and returns its scored result. The first call
// fixes the timestamp and duration; later calls return the same value.
func (s *Session) Result() (model.QuizResult, error) {
	if s.result != nil {
		return *s.result, nil
	}
	if s.state != Completed {
		return model.QuizResult{}, fmt.Errorf("%w: %d of %d answered", ErrNotCompleted, len(s.answers), len(s.questions))
	}
	r, err := Score(s.questions, s.answers)
	if err != nil {
		return model.QuizResult{}, err
	}
	end := s.now()
	r.Timestamp = end
	r.DurationSeconds = end.Sub(s.startedAt).Seconds()
	s.result = &r
	return r, nil
}
