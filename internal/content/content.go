// Package content holds the topic material used as context for question prompts.
package content

import (
	_ "embed"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/quizgen/internal/model"
)

//go:embed topics.yaml
var defaultCatalog []byte

// Topic is a named body of study material split into sections, plus
// curated wrong answers for padding short option lists.
type Topic struct {
	Title       string   `yaml:"title"`
	Sections    []string `yaml:"sections"`
	Distractors []string `yaml:"distractors"`
}

// Catalog maps lower-case topic keys to their material.
type Catalog struct {
	Topics map[string]Topic `yaml:"topics"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(strings.NewReader(string(defaultCatalog)))
}

// LoadFile reads a catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a YAML catalog. Topic keys are lower-cased and blank
// sections and distractors dropped.
func Parse(r io.Reader) (*Catalog, error) {
	var raw Catalog
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c := &Catalog{Topics: make(map[string]Topic, len(raw.Topics))}
	for key, t := range raw.Topics {
		if t.Title == "" {
			t.Title = key
		}
		t.Sections = nonBlank(t.Sections)
		t.Distractors = nonBlank(t.Distractors)
		c.Topics[strings.ToLower(strings.TrimSpace(key))] = t
	}
	return c, nil
}

// Names returns the topic keys in alphabetical order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Topics))
	for k := range c.Topics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the catalog knows the topic.
func (c *Catalog) Has(topic string) bool {
	_, ok := c.Topics[strings.ToLower(strings.TrimSpace(topic))]
	return ok
}

// Distractors returns a copy of the topic's curated wrong answers, or nil
// for an unknown topic.
func (c *Catalog) Distractors(topic string) []string {
	t, ok := c.Topics[strings.ToLower(strings.TrimSpace(topic))]
	if !ok {
		return nil
	}
	return slices.Clone(t.Distractors)
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Section picks a random section of the topic suited to the difficulty.
// Sections are ranked by word count and split into thirds: the shortest
// third serves easy questions, the longest third hard ones. It returns
// "" when the topic is unknown or has no material.
func (c *Catalog) Section(topic string, difficulty model.Difficulty, rng *rand.Rand) string {
	t, ok := c.Topics[strings.ToLower(strings.TrimSpace(topic))]
	if !ok || len(t.Sections) == 0 {
		return ""
	}
	band := bandFor(t.Sections, difficulty)
	if rng == nil {
		return band[rand.IntN(len(band))]
	}
	return band[rng.IntN(len(band))]
}

func bandFor(sections []string, difficulty model.Difficulty) []string {
	ranked := slices.Clone(sections)
	slices.SortStableFunc(ranked, func(a, b string) int {
		return len(strings.Fields(a)) - len(strings.Fields(b))
	})
	if len(ranked) < 3 {
		return ranked
	}
	third := len(ranked) / 3
	switch difficulty {
	case model.DifficultyEasy:
		return ranked[:third]
	case model.DifficultyHard:
		return ranked[len(ranked)-third:]
	default:
		return ranked[third : len(ranked)-third]
	}
}
