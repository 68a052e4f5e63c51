package main

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCalendarNotFound = errors.New("calendar not found")
	ErrIncompleteKey    = errors.New("event key needs both calendar and event ID")
)

// EventKey identifies an event. An empty EventID means the event has not
// been created yet.
type EventKey struct {
	CalendarID string
	EventID    string
}

func (k EventKey) HasEvent() bool {
	return k.EventID != ""
}

type PushOutcome int

const (
	Unchanged PushOutcome = iota
	Updated
	Created
)

func (o PushOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	}
	return "unchanged"
}

// EventLookup reports calendar and event existence separately.
type EventLookup struct {
	CalendarFound bool
	EventFound    bool
	Event         Event
	Tags          map[string]string
	Updated       time.Time
	Recurring     bool
}

type ProviderResolver interface {
	ProviderFor(calendarID string) (CalendarProvider, error)
}

// CalendarGateway is the CRUD facade over every configured calendar. It keeps
// no state between calls.
type CalendarGateway struct {
	providers ProviderResolver
}

func NewCalendarGateway(providers ProviderResolver) *CalendarGateway {
	return &CalendarGateway{providers: providers}
}

func (g *CalendarGateway) calendar(calendarID string) (CalendarProvider, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("%w: empty calendar ID", ErrCalendarNotFound)
	}
	provider, err := g.providers.ProviderFor(calendarID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCalendarNotFound, calendarID, err)
	}
	if err := provider.GetCalendar(calendarID); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCalendarNotFound, calendarID, err)
	}
	return provider, nil
}

func (g *CalendarGateway) Get(key EventKey) EventLookup {
	provider, err := g.calendar(key.CalendarID)
	if err != nil {
		printVerbosely(4, "      ⚠️ %v\n", err)
		return EventLookup{}
	}
	return lookupEvent(provider, key)
}

func lookupEvent(provider CalendarProvider, key EventKey) EventLookup {
	lookup := EventLookup{CalendarFound: true}
	if !key.HasEvent() {
		return lookup
	}

	stored, err := provider.GetEvent(key.CalendarID, key.EventID)
	if err != nil {
		printVerbosely(4, "      ⚠️ Event %s not found: %v\n", key.EventID, err)
		return lookup
	}
	lookup.EventFound = true
	lookup.Event = NewEvent(stored.Summary, NewTimeSpan(stored.Start, stored.End), stored.Description)
	lookup.Tags = stored.Tags
	lookup.Updated = stored.Updated
	lookup.Recurring = stored.Recurring
	return lookup
}

// Push creates the event when the key has no event ID or the event cannot be
// found, and otherwise patches only the fields that differ. The returned key
// is set only when an event was created.
func (g *CalendarGateway) Push(key EventKey, event Event, tags map[string]string) (EventKey, PushOutcome, error) {
	provider, err := g.calendar(key.CalendarID)
	if err != nil {
		return EventKey{}, Unchanged, err
	}

	lookup := lookupEvent(provider, key)
	if !lookup.EventFound {
		eventID, err := provider.AddEvent(key.CalendarID, &CalendarEvent{
			Summary:     event.Title(),
			Description: event.Description(),
			Start:       event.Start(),
			End:         event.End(),
			Tags:        copyTags(tags),
		})
		if err != nil {
			return EventKey{}, Unchanged, err
		}
		return EventKey{CalendarID: key.CalendarID, EventID: eventID}, Created, nil
	}

	patch := diffEvent(lookup, event, tags)
	if patch.Empty() {
		return EventKey{}, Unchanged, nil
	}
	if err := provider.PatchEvent(key.CalendarID, key.EventID, patch); err != nil {
		return EventKey{}, Unchanged, err
	}
	return EventKey{}, Updated, nil
}

func diffEvent(stored EventLookup, event Event, tags map[string]string) *EventPatch {
	patch := &EventPatch{}
	if stored.Event.Title() != event.Title() {
		title := event.Title()
		patch.Summary = &title
	}
	if !stored.Event.Span().Equal(event.Span()) {
		start, end := event.Start(), event.End()
		patch.Start = &start
		patch.End = &end
	}
	if stored.Event.Description() != event.Description() {
		description := event.Description()
		patch.Description = &description
	}
	for k, v := range tags {
		if current, ok := stored.Tags[k]; !ok || current != v {
			if patch.Tags == nil {
				patch.Tags = map[string]string{}
			}
			patch.Tags[k] = v
		}
	}
	return patch
}

// Pop deletes an event.
func (g *CalendarGateway) Pop(key EventKey) error {
	if key.CalendarID == "" || !key.HasEvent() {
		return ErrIncompleteKey
	}
	provider, err := g.calendar(key.CalendarID)
	if err != nil {
		return err
	}
	return provider.DeleteEvent(key.CalendarID, key.EventID)
}

// LastUpdated returns the live event with the latest modification time
// inside window, or nil when there is none. Cancelled events are skipped. On
// equal times the event listed later wins.
func (g *CalendarGateway) LastUpdated(calendarID string, window TimeSpan) (*CalendarEvent, error) {
	events, err := g.Events(calendarID, window)
	if err != nil {
		return nil, err
	}
	var latest *CalendarEvent
	for _, e := range events {
		if e.Status == "cancelled" {
			continue
		}
		if latest == nil || !e.Updated.Before(latest.Updated) {
			latest = e
		}
	}
	return latest, nil
}

// Events lists the events of calendarID overlapping window.
func (g *CalendarGateway) Events(calendarID string, window TimeSpan) ([]*CalendarEvent, error) {
	provider, err := g.calendar(calendarID)
	if err != nil {
		return nil, err
	}
	return provider.ListEvents(calendarID, window.Start(), window.End())
}
