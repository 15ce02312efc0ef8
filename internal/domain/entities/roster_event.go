package entities

import (
	"time"

	"github.com/google/uuid"
)

// RosterEventType represents the type of roster event
type RosterEventType string

const (
	RosterEventTypeDatasetReloaded RosterEventType = "dataset_reloaded"
)

// RosterEvent tells peer instances that the provider dataset changed
type RosterEvent struct {
	ID        string          `json:"id"`
	EventType RosterEventType `json:"event_type"`
	Origin    string          `json:"origin"`
	Version   string          `json:"version"`
	Providers int             `json:"providers"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewDatasetReloadedEvent creates an event announcing a dataset version
func NewDatasetReloadedEvent(origin, version string, providers int) *RosterEvent {
	return &RosterEvent{
		ID:        uuid.NewString(),
		EventType: RosterEventTypeDatasetReloaded,
		Origin:    origin,
		Version:   version,
		Providers: providers,
		Timestamp: time.Now().UTC(),
	}
}
