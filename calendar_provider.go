package main

import (
	"errors"
	"time"
)

var ErrEventNotFound = errors.New("event not found")

type CalendarProvider interface {
	GetCalendar(calendarID string) error
	GetEvent(calendarID string, eventID string) (*CalendarEvent, error)
	AddEvent(calendarID string, event *CalendarEvent) (string, error)
	PatchEvent(calendarID string, eventID string, patch *EventPatch) error
	DeleteEvent(calendarID string, eventID string) error
	ListEvents(calendarID string, timeMin, timeMax time.Time) ([]*CalendarEvent, error)
}

// CalendarEvent is an event as a backend stores it.
type CalendarEvent struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Status      string
	Updated     time.Time
	Recurring   bool
	Tags        map[string]string
}

// EventPatch holds only the fields that changed; nil fields are left as
// stored and Tags are merged into the stored tags.
type EventPatch struct {
	Summary     *string
	Description *string
	Start       *time.Time
	End         *time.Time
	Tags        map[string]string
}

func (p *EventPatch) Empty() bool {
	return p.Summary == nil && p.Description == nil && p.Start == nil && p.End == nil && len(p.Tags) == 0
}
