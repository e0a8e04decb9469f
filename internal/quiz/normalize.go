package quiz

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/quizgen/internal/model"
)

var (
	prefixRegex     = regexp.MustCompile(`(?i)^\s*(?:question|q|answer|task)\s*:\s*`)
	listMarkerRegex = regexp.MustCompile(`^\s*(?:[-*•]|\(?(?:[A-Da-d]|[0-9]{1,2})[.)])\s+`)
)

// metaWords mark candidate lines that talk about the task instead of answering it.
var metaWords = []string{"generate", "option"}

// NormalizeQuestion turns raw model output into question text. It takes the
// first line ending in "?" (or the first non-empty line when none does),
// strips leading "question:", "q:", "answer:" and "task:" labels, collapses
// whitespace and makes the text end in exactly one "?". Lines that are only
// labels or punctuation are skipped. Empty input yields "".
// Applying it to its own output returns the output unchanged.
func NormalizeQuestion(raw string) string {
	lines := strings.Split(raw, "\n")
	i, _ := questionLine(lines)
	if i < 0 {
		return ""
	}
	return strings.Join(strings.Fields(questionBody(lines[i])), " ") + "?"
}

// questionLine returns the index of the line the question is taken from and
// whether that line ended in "?". It returns -1 when no line has content.
func questionLine(lines []string) (int, bool) {
	first := -1
	for i, l := range lines {
		if questionBody(l) == "" {
			continue
		}
		if strings.HasSuffix(strings.TrimSpace(l), "?") {
			return i, true
		}
		if first < 0 {
			first = i
		}
	}
	return first, false
}

func questionBody(l string) string {
	return strings.TrimRight(stripPrefixes(strings.TrimSpace(l)), "?.!:; \t")
}

func stripPrefixes(s string) string {
	for {
		stripped := prefixRegex.ReplaceAllString(s, "")
		if stripped == s {
			return strings.TrimSpace(s)
		}
		s = stripped
	}
}

// ParseOptions extracts up to four answer candidates from raw model output,
// one per line. When a line ends in "?", only the lines after it are read,
// so a preamble before the question never becomes an answer. List markers
// and labels are removed; lines of two characters or fewer, lines mentioning
// meta-words, and the question line itself are skipped; duplicates are
// dropped ignoring case. Order is preserved, so the first returned candidate
// is the first one the model wrote.
func ParseOptions(raw, question string) []string {
	lines := strings.Split(raw, "\n")
	if i, marked := questionLine(lines); marked {
		lines = lines[i+1:]
	}

	var out []string
	seen := make(map[string]bool)
	for _, l := range lines {
		if len(out) == model.OptionCount {
			break
		}
		c := cleanCandidate(l)
		if !usableCandidate(c) {
			continue
		}
		if strings.HasSuffix(c, "?") || (question != "" && NormalizeQuestion(c) == question) {
			continue
		}
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func cleanCandidate(l string) string {
	l = listMarkerRegex.ReplaceAllString(l, "")
	l = stripPrefixes(l)
	return strings.Join(strings.Fields(l), " ")
}

func usableCandidate(c string) bool {
	if utf8.RuneCountInString(c) <= 2 {
		return false
	}
	lower := strings.ToLower(c)
	for _, w := range metaWords {
		if strings.Contains(lower, w) {
			return false
		}
	}
	return true
}

var placeholderPatterns = []string{
	"A core concept of %s",
	"A related concept in %s",
	"A similar concept from %s",
	"An alternative concept in %s",
}

// PadOptions returns exactly four distinct options: the distinct entries of
// options in order, followed by placeholders that mention topic. Placeholders
// are deterministic and never collide with an existing entry.
func PadOptions(options []string, topic string) []string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "the topic"
	}

	out := make([]string, 0, model.OptionCount)
	seen := make(map[string]bool)
	add := func(o string) {
		key := strings.ToLower(o)
		if o == "" || seen[key] || len(out) == model.OptionCount {
			return
		}
		seen[key] = true
		out = append(out, o)
	}

	for _, o := range options {
		add(strings.TrimSpace(o))
	}
	for i := 0; len(out) < model.OptionCount; i++ {
		if i < len(placeholderPatterns) {
			add(fmt.Sprintf(placeholderPatterns[i], topic))
		} else {
			add(fmt.Sprintf("Another concept in %s (%d)", topic, i-len(placeholderPatterns)+1))
		}
	}
	return out
}

func fallbackQuestion(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "What is a key concept of this subject?"
	}
	return "What is a key concept of " + topic + "?"
}
