package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/quizgen/internal/model"
)

// Lister enumerates stored results.
type Lister interface {
	List() ([]model.QuizResult, error)
}

// HistoryExport is the top-level JSON structure for exporting stored results.
type HistoryExport struct {
	ExportedAt     time.Time               `json:"exported_at"`
	Count          int                     `json:"count"`
	AveragePercent float64                 `json:"average_percent"`
	ByTopic        map[string]TopicSummary `json:"by_topic"`
	Results        []model.QuizResult      `json:"results"`
}

// TopicSummary aggregates the results of one topic.
type TopicSummary struct {
	Quizzes   int `json:"quizzes"`
	Correct   int `json:"correct"`
	Questions int `json:"questions"`
}

// Export builds an export document from every result the lister returns.
func Export(l Lister, now time.Time) (HistoryExport, error) {
	results, err := l.List()
	if err != nil {
		return HistoryExport{}, fmt.Errorf("list results: %w", err)
	}

	export := HistoryExport{
		ExportedAt: now,
		Count:      len(results),
		ByTopic:    make(map[string]TopicSummary),
		Results:    results,
	}

	var sum float64
	for _, r := range results {
		sum += r.Percentage()
		ts := export.ByTopic[r.Topic]
		ts.Quizzes++
		ts.Correct += r.Score
		ts.Questions += r.Total
		export.ByTopic[r.Topic] = ts
	}
	if len(results) > 0 {
		export.AveragePercent = sum / float64(len(results))
	}
	return export, nil
}
