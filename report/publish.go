package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// RunCompletedSubject is the subject the run summary is published on.
const RunCompletedSubject = "lunch.run.completed"

// runCompletedEvent is the summary payload published after a run, so a
// display layer can refresh without polling the output files.
type runCompletedEvent struct {
	RunID                 string    `json:"run_id"`
	GeneratedAt           time.Time `json:"generated_at"`
	TotalRestaurants      int       `json:"total_restaurants"`
	RestaurantsWithDishes int       `json:"restaurants_with_dishes"`
	TotalDishes           int       `json:"total_dishes"`
	SuccessRate           float64   `json:"success_rate"`
	EstimatedCost         float64   `json:"estimated_cost"`
}

// Publisher announces completed runs over NATS.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to the NATS server at url. An empty subject uses
// RunCompletedSubject.
func NewPublisher(url, subject string) (*Publisher, error) {
	if subject == "" {
		subject = RunCompletedSubject
	}
	nc, err := nats.Connect(url, nats.Name("lunchpipe"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{nc: nc, subject: subject}, nil
}

// PublishRunCompleted sends the run summary. Publish failures are returned
// but are not run-fatal: the files on disk are the source of truth.
func (p *Publisher) PublishRunCompleted(report *RunReport) error {
	payload, err := json.Marshal(runCompletedEvent{
		RunID:                 report.RunID,
		GeneratedAt:           report.GeneratedAt,
		TotalRestaurants:      report.TotalRestaurants,
		RestaurantsWithDishes: report.RestaurantsWithDishes,
		TotalDishes:           report.TotalDishes,
		SuccessRate:           report.SuccessRate,
		EstimatedCost:         report.EstimatedCost,
	})
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	if err := p.nc.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	return p.nc.Flush()
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
