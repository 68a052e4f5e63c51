package main

import (
	"errors"
	"testing"
	"time"
)

func TestGatewayPushCreateUpdateUnchanged(t *testing.T) {
	cal := newMemoryCalendar(testCalendar)
	g := NewCalendarGateway(singleResolver{cal})
	start := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	event := NewEvent("Review", NewTimeSpanFor(start, time.Hour), "notes")
	tags := map[string]string{tagRow: "2"}

	key, outcome, err := g.Push(EventKey{CalendarID: testCalendar}, event, tags)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if outcome != Created || key.EventID == "" || key.CalendarID != testCalendar {
		t.Fatalf("Push = %+v %v, want a created key", key, outcome)
	}

	_, outcome, err = g.Push(key, event, tags)
	if err != nil || outcome != Unchanged {
		t.Fatalf("second Push = %v %v, want unchanged", outcome, err)
	}
	if cal.patches != 0 {
		t.Errorf("patches = %d, want 0", cal.patches)
	}

	moved := NewEvent("Review", NewTimeSpanFor(start.Add(time.Hour), time.Hour), "notes")
	returned, outcome, err := g.Push(key, moved, tags)
	if err != nil || outcome != Updated {
		t.Fatalf("third Push = %v %v, want updated", outcome, err)
	}
	if returned.HasEvent() {
		t.Errorf("an update must not return a key, got %+v", returned)
	}

	lookup := g.Get(key)
	if !lookup.CalendarFound || !lookup.EventFound {
		t.Fatalf("Get = %+v", lookup)
	}
	if !lookup.Event.Span().Equal(moved.Span()) || lookup.Event.Title() != "Review" {
		t.Errorf("stored event = %+v", lookup.Event)
	}
	if lookup.Tags[tagRow] != "2" {
		t.Errorf("tags = %v", lookup.Tags)
	}
}

func TestGatewayPushRecreatesMissingEvent(t *testing.T) {
	cal := newMemoryCalendar(testCalendar)
	g := NewCalendarGateway(singleResolver{cal})
	event := NewEvent("Review", NewTimeSpanFor(time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC), time.Hour), "")

	key, outcome, err := g.Push(EventKey{CalendarID: testCalendar, EventID: "deleted-elsewhere"}, event, nil)
	if err != nil || outcome != Created {
		t.Fatalf("Push = %v %v, want created", outcome, err)
	}
	if key.EventID == "deleted-elsewhere" {
		t.Error("a fresh event ID should be returned")
	}
}

func TestGatewayPatchesOnlyChangedFields(t *testing.T) {
	start := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	stored := EventLookup{
		CalendarFound: true,
		EventFound:    true,
		Event:         NewEvent("Review", NewTimeSpanFor(start, time.Hour), "notes"),
		Tags:          map[string]string{tagRow: "2", "other": "x"},
	}

	patch := diffEvent(stored, NewEvent("Review", NewTimeSpanFor(start, time.Hour), "new notes"), map[string]string{tagRow: "2"})
	if patch.Summary != nil || patch.Start != nil || patch.End != nil || len(patch.Tags) != 0 {
		t.Errorf("unexpected patch %+v", patch)
	}
	if patch.Description == nil || *patch.Description != "new notes" {
		t.Errorf("Description patch = %v", patch.Description)
	}

	patch = diffEvent(stored, NewEvent("Review", NewTimeSpanFor(start, 2*time.Hour), "notes"), map[string]string{tagRow: "3"})
	if patch.Start == nil || patch.End == nil {
		t.Error("a span change must patch both start and end")
	}
	if patch.Tags[tagRow] != "3" || len(patch.Tags) != 1 {
		t.Errorf("Tags patch = %v", patch.Tags)
	}
}

func TestGatewayMissingCalendar(t *testing.T) {
	g := NewCalendarGateway(singleResolver{newMemoryCalendar(testCalendar)})
	event := NewEvent("Review", NewTimeSpanFor(time.Now(), time.Hour), "")

	if _, _, err := g.Push(EventKey{CalendarID: "nobody@example.com"}, event, nil); !errors.Is(err, ErrCalendarNotFound) {
		t.Errorf("Push err = %v, want ErrCalendarNotFound", err)
	}
	if lookup := g.Get(EventKey{CalendarID: "nobody@example.com", EventID: "x"}); lookup.CalendarFound || lookup.EventFound {
		t.Errorf("Get = %+v, want nothing found", lookup)
	}
	if lookup := g.Get(EventKey{CalendarID: testCalendar, EventID: "x"}); !lookup.CalendarFound || lookup.EventFound {
		t.Errorf("Get = %+v, want calendar only", lookup)
	}
}

func TestGatewayPop(t *testing.T) {
	cal := newMemoryCalendar(testCalendar)
	g := NewCalendarGateway(singleResolver{cal})
	key, _, err := g.Push(EventKey{CalendarID: testCalendar}, NewEvent("Review", NewTimeSpanFor(time.Now(), time.Hour), ""), nil)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	if err := g.Pop(key); err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if g.Get(key).EventFound {
		t.Error("event still present after Pop")
	}
	if err := g.Pop(key); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("second Pop err = %v, want ErrEventNotFound", err)
	}
	if err := g.Pop(EventKey{CalendarID: testCalendar}); !errors.Is(err, ErrIncompleteKey) {
		t.Errorf("Pop without ID err = %v, want ErrIncompleteKey", err)
	}
}

func TestGatewayLastUpdated(t *testing.T) {
	cal := newMemoryCalendar(testCalendar)
	g := NewCalendarGateway(singleResolver{cal})
	base := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	t1 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	cal.put(testCalendar, &CalendarEvent{ID: "a", Summary: "A", Start: base, End: base.Add(time.Hour), Updated: t1})
	cal.put(testCalendar, &CalendarEvent{ID: "b", Summary: "B", Start: base, End: base.Add(time.Hour), Updated: t1.Add(2 * time.Hour)})
	cal.put(testCalendar, &CalendarEvent{ID: "c", Summary: "C", Start: base, End: base.Add(time.Hour), Updated: t1.Add(time.Hour)})
	// Outside the window.
	far := base.AddDate(1, 0, 0)
	cal.put(testCalendar, &CalendarEvent{ID: "d", Summary: "D", Start: far, End: far.Add(time.Hour), Updated: t1.Add(5 * time.Hour)})

	window := Window(base, 1, 2)
	latest, err := g.LastUpdated(testCalendar, window)
	if err != nil {
		t.Fatalf("LastUpdated: %v", err)
	}
	if latest == nil || latest.ID != "b" {
		t.Fatalf("LastUpdated = %+v, want b", latest)
	}

	cal.put(testCalendar, &CalendarEvent{ID: "e", Summary: "E", Start: base, End: base.Add(time.Hour), Updated: t1.Add(2 * time.Hour)})
	latest, _ = g.LastUpdated(testCalendar, window)
	if latest.ID != "e" {
		t.Errorf("on a tie the later listed event should win, got %s", latest.ID)
	}

	cal.put(testCalendar, &CalendarEvent{ID: "f", Summary: "F", Start: base, End: base.Add(time.Hour), Updated: t1.Add(4 * time.Hour), Status: "cancelled"})
	latest, _ = g.LastUpdated(testCalendar, window)
	if latest.ID != "e" {
		t.Errorf("cancelled events must be skipped, got %s", latest.ID)
	}

	empty := newMemoryCalendar(testCalendar)
	latest, err = NewCalendarGateway(singleResolver{empty}).LastUpdated(testCalendar, window)
	if err != nil || latest != nil {
		t.Errorf("empty calendar = %+v, %v", latest, err)
	}
}
