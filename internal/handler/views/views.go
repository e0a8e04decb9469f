// Package views renders the quiz pages as templ components.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/pavelanni/quizgen/internal/i18n"
	"github.com/pavelanni/quizgen/internal/model"
	"github.com/pavelanni/quizgen/internal/session"
)

// IndexData is what the start page needs.
type IndexData struct {
	Topics       []string
	Topic        string
	Difficulty   model.Difficulty
	NumQuestions int
	Error        string
}

const style = `body{font-family:sans-serif;max-width:44rem;margin:2rem auto;padding:0 1rem}
nav a{margin-right:1rem}label{display:block;margin:.6rem 0}
.correct{color:#176d2c}.wrong{color:#a4161a}.error{color:#a4161a}
table{border-collapse:collapse;width:100%}td,th{border-bottom:1px solid #ccc;padding:.3rem;text-align:left}`

// esc escapes text for HTML.
func esc(s string) string {
	return templ.EscapeString(s)
}

// href prefixes an absolute path with the base path from ctx.
func href(ctx context.Context, path string) string {
	return esc(model.BasePathFromContext(ctx) + path)
}

func csrfField(ctx context.Context) string {
	return `<input type="hidden" name="csrf_token" value="` + esc(model.CSRFTokenFromContext(ctx)) + `">`
}

func page(title func(ctx context.Context) string, body func(ctx context.Context, sb *strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		t := title(ctx)
		sb.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
		sb.WriteString(esc(t + " · " + i18n.T(ctx, "AppTitle")))
		sb.WriteString(`</title><style>` + style + `</style></head><body><nav>`)
		sb.WriteString(`<a href="` + href(ctx, "/") + `">` + esc(i18n.T(ctx, "BackHome")) + `</a>`)
		sb.WriteString(`<a href="` + href(ctx, "/history") + `">` + esc(i18n.T(ctx, "History")) + `</a>`)
		sb.WriteString(`</nav><h1>` + esc(t) + `</h1>`)
		body(ctx, &sb)
		sb.WriteString(`</body></html>`)
		_, err := io.WriteString(w, sb.String())
		return err
	})
}

// IndexPage is the quiz start form.
func IndexPage(d IndexData) templ.Component {
	return page(func(ctx context.Context) string { return i18n.T(ctx, "AppTitle") }, func(ctx context.Context, sb *strings.Builder) {
		if d.Error != "" {
			sb.WriteString(`<p class="error">` + esc(d.Error) + `</p>`)
		}
		sb.WriteString(`<form method="post" action="` + href(ctx, "/quiz/start") + `">` + csrfField(ctx))

		sb.WriteString(`<label>` + esc(i18n.T(ctx, "Topic")) + ` <input name="topic" list="topics" required value="` + esc(d.Topic) + `"></label>`)
		sb.WriteString(`<datalist id="topics">`)
		for _, t := range d.Topics {
			sb.WriteString(`<option value="` + esc(t) + `">`)
		}
		sb.WriteString(`</datalist>`)

		sb.WriteString(`<label>` + esc(i18n.T(ctx, "Difficulty")) + ` <select name="difficulty">`)
		for _, diff := range model.Difficulties() {
			selected := ""
			if diff == d.Difficulty {
				selected = " selected"
			}
			sb.WriteString(`<option value="` + esc(string(diff)) + `"` + selected + `>` + esc(string(diff)) + `</option>`)
		}
		sb.WriteString(`</select></label>`)

		sb.WriteString(fmt.Sprintf(`<label>%s <input name="num_questions" type="number" min="1" value="%d"></label>`,
			esc(i18n.T(ctx, "NumQuestions")), d.NumQuestions))
		sb.WriteString(`<button type="submit">` + esc(i18n.T(ctx, "StartQuiz")) + `</button></form>`)
	})
}

// QuestionPage shows one question with its lettered options.
func QuestionPage(q model.Question, index, total int) templ.Component {
	title := func(ctx context.Context) string {
		return i18n.Td(ctx, "QuestionN", map[string]any{"N": index + 1, "Total": total})
	}
	return page(title, func(ctx context.Context, sb *strings.Builder) {
		sb.WriteString(`<p><strong>` + esc(q.Text) + `</strong></p>`)
		sb.WriteString(`<form method="post" action="` + href(ctx, "/quiz/answer") + `">` + csrfField(ctx))
		sb.WriteString(fmt.Sprintf(`<input type="hidden" name="question" value="%d">`, index))
		for i, o := range q.Options {
			if i >= len(model.Letters) {
				break
			}
			l := model.Letters[i]
			sb.WriteString(`<label><input type="radio" name="answer" required value="` + l + `"> ` + l + `. ` + esc(o) + `</label>`)
		}
		sb.WriteString(`<button type="submit">` + esc(i18n.T(ctx, "SubmitAnswer")) + `</button></form>`)
	})
}

// ResultPage shows the score and the per-question review.
func ResultPage(r model.QuizResult) templ.Component {
	return page(func(ctx context.Context) string { return i18n.T(ctx, "ResultsHeader") }, func(ctx context.Context, sb *strings.Builder) {
		sb.WriteString(`<p class="score">` + esc(i18n.Td(ctx, "FinalScore", map[string]any{
			"Score":   r.Score,
			"Total":   r.Total,
			"Percent": session.FormatPercent(r.Percentage()),
		})) + `</p><ol>`)
		for _, rec := range r.Questions {
			class := "wrong"
			if rec.IsCorrect {
				class = "correct"
			}
			sb.WriteString(`<li class="` + class + `"><p>` + esc(rec.Question.Text) + `</p>`)
			sb.WriteString(`<p>` + esc(i18n.T(ctx, "YourAnswer")) + `: ` + esc(rec.UserAnswer) + `</p>`)
			if !rec.IsCorrect {
				sb.WriteString(`<p>` + esc(i18n.T(ctx, "CorrectAnswer")) + `: ` +
					esc(rec.Question.CorrectLetter()+". "+rec.Question.CorrectAnswer) + `</p>`)
			}
			sb.WriteString(`</li>`)
		}
		sb.WriteString(`</ol>`)
	})
}

// HistoryPage lists stored results.
func HistoryPage(results []model.QuizResult) templ.Component {
	return page(func(ctx context.Context) string { return i18n.T(ctx, "History") }, func(ctx context.Context, sb *strings.Builder) {
		if len(results) == 0 {
			sb.WriteString(`<p>` + esc(i18n.T(ctx, "NoHistory")) + `</p>`)
			return
		}
		sb.WriteString(`<table><tr><th>` + esc(i18n.T(ctx, "Date")) + `</th><th>` + esc(i18n.T(ctx, "Topic")) +
			`</th><th>` + esc(i18n.T(ctx, "Difficulty")) + `</th><th>` + esc(i18n.T(ctx, "Score")) +
			`</th><th>` + esc(i18n.T(ctx, "Duration")) + `</th></tr>`)
		for _, r := range results {
			sb.WriteString(fmt.Sprintf(`<tr><td>%s</td><td>%s</td><td>%s</td><td>%d/%d (%s%%)</td><td>%.0f</td></tr>`,
				esc(r.Timestamp.Format("2006-01-02 15:04:05")), esc(r.Topic), esc(string(r.Difficulty)),
				r.Score, r.Total, session.FormatPercent(r.Percentage()), r.DurationSeconds))
		}
		sb.WriteString(`</table>`)
	})
}
