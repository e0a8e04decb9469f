package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pavelanni/quizgen/internal/model"

	_ "modernc.org/sqlite"
)

// Store keeps quiz results in SQLite.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// A pooled second connection to ":memory:" would get its own empty database.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quiz_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at DATETIME NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL,
		total INTEGER NOT NULL,
		duration_seconds REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS result_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		user_answer TEXT NOT NULL,
		is_correct BOOLEAN NOT NULL,
		FOREIGN KEY (result_id) REFERENCES quiz_results(id)
	);

	CREATE INDEX IF NOT EXISTS idx_result_questions_result ON result_questions(result_id, position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores a result with its answered questions and returns the new row ID as a string.
func (s *Store) Save(r model.QuizResult) (string, error) {
	id, err := s.InsertResult(r)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// InsertResult stores a result in a single transaction.
func (s *Store) InsertResult(r model.QuizResult) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO quiz_results (taken_at, topic, difficulty, score, total, duration_seconds)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Timestamp, r.Topic, r.Difficulty, r.Score, r.Total, r.DurationSeconds,
	)
	if err != nil {
		return 0, err
	}
	resultID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, rec := range r.Questions {
		options, err := json.Marshal(rec.Question.Options)
		if err != nil {
			return 0, fmt.Errorf("encode options: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO result_questions
			 (result_id, position, text, options, correct_answer, difficulty, topic, user_answer, is_correct)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			resultID, i, rec.Question.Text, string(options), rec.Question.CorrectAnswer,
			rec.Question.Difficulty, rec.Question.Topic, rec.UserAnswer, rec.IsCorrect,
		)
		if err != nil {
			return 0, err
		}
	}

	return resultID, tx.Commit()
}

// GetResult returns a result with its questions by ID.
func (s *Store) GetResult(id int64) (model.QuizResult, error) {
	var r model.QuizResult
	err := s.db.QueryRow(
		`SELECT taken_at, topic, difficulty, score, total, duration_seconds FROM quiz_results WHERE id = ?`, id,
	).Scan(&r.Timestamp, &r.Topic, &r.Difficulty, &r.Score, &r.Total, &r.DurationSeconds)
	if err != nil {
		return r, err
	}
	r.Questions, err = s.getAnswerRecords(id)
	return r, err
}

func (s *Store) getAnswerRecords(resultID int64) ([]model.AnswerRecord, error) {
	rows, err := s.db.Query(
		`SELECT text, options, correct_answer, difficulty, topic, user_answer, is_correct
		 FROM result_questions WHERE result_id = ? ORDER BY position`, resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []model.AnswerRecord{}
	for rows.Next() {
		var rec model.AnswerRecord
		var options string
		if err := rows.Scan(&rec.Question.Text, &options, &rec.Question.CorrectAnswer, &rec.Question.Difficulty,
			&rec.Question.Topic, &rec.UserAnswer, &rec.IsCorrect); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &rec.Question.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// List returns all results, newest first.
func (s *Store) List() ([]model.QuizResult, error) {
	rows, err := s.db.Query(`SELECT id FROM quiz_results ORDER BY taken_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]model.QuizResult, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetResult(id)
		if err != nil {
			return nil, fmt.Errorf("get result %d: %w", id, err)
		}
		results = append(results, r)
	}
	return results, nil
}
