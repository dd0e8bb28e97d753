// Package notify emits report-ready events to the notification subsystem.
// Delivery itself is owned by an external collaborator; this package only
// defines the event boundary.
package notify

import "log"

// Event describes a newly ready report.
type Event struct {
	ReportID         int64  `json:"reportId"`
	Tier             string `json:"tier"`
	DateKey          string `json:"dateKey"`
	EpisodesIncluded int    `json:"episodesIncluded"`
}

// Notifier delivers report-ready events. Implementations must be safe to
// call after the report is durably ready; failures never fail the rollup.
type Notifier interface {
	ReportReady(event Event) error
}

// LogNotifier writes events to the process log. It stands in for the real
// notification subsystem in the CLI and in tests.
type LogNotifier struct{}

// ReportReady logs the event.
func (LogNotifier) ReportReady(event Event) error {
	log.Printf("report ready: id=%d tier=%s period=%s episodes=%d",
		event.ReportID, event.Tier, event.DateKey, event.EpisodesIncluded)
	return nil
}
