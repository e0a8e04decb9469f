package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pavelanni/quizgen/internal/model"
)

const (
	filePrefix     = "quiz_result_"
	fileExt        = ".json"
	fileTimeLayout = "20060102_150405"
)

// FileName returns the result file name for a timestamp, e.g. quiz_result_20261014_093000.json.
func FileName(t time.Time) string {
	return filePrefix + t.Format(fileTimeLayout) + fileExt
}

// FileStore keeps one JSON file per quiz result in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes r as indented JSON and returns the file path. Results finished
// within the same second get a numeric suffix instead of overwriting each other.
func (s *FileStore) Save(r model.QuizResult) (string, error) {
	if r.Timestamp.IsZero() {
		return "", errors.New("result has no timestamp")
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')

	base := strings.TrimSuffix(FileName(r.Timestamp), fileExt)
	for n := 1; ; n++ {
		name := base + fileExt
		if n > 1 {
			name = fmt.Sprintf("%s_%d%s", base, n, fileExt)
		}
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create result file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write result file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close result file: %w", err)
		}
		slog.Debug("saved quiz result", "path", path)
		return path, nil
	}
}

// Load reads a single result file by name or path.
func (s *FileStore) Load(name string) (model.QuizResult, error) {
	path := name
	if !filepath.IsAbs(name) && filepath.Dir(name) == "." {
		path = filepath.Join(s.dir, name)
	}
	var r model.QuizResult
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}

// List returns every stored result, newest first. Files that cannot be parsed are skipped.
func (s *FileStore) List() ([]model.QuizResult, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, filePrefix+"*"+fileExt))
	if err != nil {
		return nil, err
	}
	results := make([]model.QuizResult, 0, len(paths))
	for _, p := range paths {
		r, err := s.Load(p)
		if err != nil {
			slog.Warn("skipping unreadable result file", "path", p, "error", err)
			continue
		}
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})
	return results, nil
}
