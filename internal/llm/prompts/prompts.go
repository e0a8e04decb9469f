package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"

	"github.com/pavelanni/quizgen/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// maxContextRunes bounds how much topic material is pasted into a prompt.
const maxContextRunes = 2000

var (
	loadOnce          sync.Once
	loadErr           error
	questionTemplates map[model.Difficulty]*template.Template
	optionsTemplate   *template.Template
)

// QuestionData holds template data for question prompts.
type QuestionData struct {
	Topic       string
	Context     string
	WithOptions bool
}

// OptionsData holds template data for answer-choice prompts.
type OptionsData struct {
	Topic      string
	Difficulty model.Difficulty
	Question   string
	Existing   []string
	Missing    int
}

// Load parses prompt templates from fsys. It is safe to call repeatedly;
// only the first call does any work.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		questionTemplates = make(map[model.Difficulty]*template.Template)

		for _, d := range model.Difficulties() {
			file := "templates/question_" + string(d) + ".tmpl"
			tmpl, err := parseFile(fsys, file)
			if err != nil {
				loadErr = err
				return
			}
			questionTemplates[d] = tmpl
		}

		optionsTemplate, loadErr = parseFile(fsys, "templates/options.tmpl")
	})
	return loadErr
}

func parseFile(fsys fs.FS, file string) (*template.Template, error) {
	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, errors.New("failed to read prompt file " + file + ": " + err.Error())
	}
	tmpl, err := template.New(file).Parse(string(content))
	if err != nil {
		return nil, errors.New("failed to parse prompt template " + file + ": " + err.Error())
	}
	return tmpl, nil
}

func ensureLoaded() error {
	if err := Load(templateFS); err != nil {
		return fmt.Errorf("templates load failed: %w", err)
	}
	return nil
}

// BuildQuestionPrompt renders the question prompt for the given difficulty.
func BuildQuestionPrompt(difficulty model.Difficulty, data QuestionData) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}
	tmpl, ok := questionTemplates[difficulty]
	if !ok {
		return "", errors.New("invalid difficulty: " + string(difficulty))
	}
	data.Context = truncate(strings.TrimSpace(data.Context), maxContextRunes)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// BuildOptionsPrompt renders the prompt asking for the missing answer choices.
func BuildOptionsPrompt(data OptionsData) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}
	if data.Missing < 1 {
		return "", errors.New("options prompt needs at least one missing choice")
	}

	var buf bytes.Buffer
	if err := optionsTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
