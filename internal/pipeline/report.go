package pipeline

import (
	"fmt"
	"time"
)

// SourceReport is the outcome of one source within a cycle.
type SourceReport struct {
	Name     string        `json:"name"`
	Country  string        `json:"country"`
	Fetched  int           `json:"fetched"`
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Enriched int           `json:"enriched"`
	Errors   int           `json:"errors"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report summarizes a completed cycle. Sources are listed in completion
// order.
type Report struct {
	StartedAt time.Time      `json:"startedAt"`
	Duration  time.Duration  `json:"duration"`
	Sources   []SourceReport `json:"sources"`
	Fetched   int            `json:"fetched"`
	Inserted  int            `json:"inserted"`
	Skipped   int            `json:"skipped"`
	Enriched  int            `json:"enriched"`
	Failed    int            `json:"failed"`
}

func (r *Report) add(s SourceReport) {
	r.Sources = append(r.Sources, s)
	r.Fetched += s.Fetched
	r.Inserted += s.Inserted
	r.Skipped += s.Skipped
	r.Enriched += s.Enriched
	if s.Error != "" {
		r.Failed++
	}
}

// Message is the human readable outcome returned by the cron endpoint.
func (r *Report) Message() string {
	msg := fmt.Sprintf("News fetched and stored successfully. %d new, %d already stored", r.Inserted, r.Skipped)
	if r.Failed > 0 {
		msg += fmt.Sprintf(", %d of %d sources failed", r.Failed, len(r.Sources))
	}
	return msg + "."
}
