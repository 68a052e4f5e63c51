package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
)

func TestCalDAVComponentRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	start := time.Date(2024, 5, 2, 19, 0, 0, 0, time.FixedZone("JST", 9*60*60))
	event := &CalendarEvent{
		Summary:     "Review, part 1",
		Description: "expectation: ship it\nemotion: calm",
		Start:       start,
		End:         start.Add(time.Hour),
		Tags:        rowTags(testSpreadsheet, testSheet, 4, ScheduleRow),
	}

	comp := eventToComponent("sheetcal-1", event, now)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(wrapComponent(comp)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cal, err := ical.NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(cal.Children) != 1 {
		t.Fatalf("got %d components", len(cal.Children))
	}

	got := componentToEvent("sheetcal-1", cal.Children[0])
	if got.Summary != event.Summary || got.Description != event.Description {
		t.Errorf("text = %q / %q", got.Summary, got.Description)
	}
	if !got.Start.Equal(event.Start) || !got.End.Equal(event.End) {
		t.Errorf("span = %v..%v", got.Start, got.End)
	}
	if !got.Updated.Equal(now) {
		t.Errorf("Updated = %v, want %v", got.Updated, now)
	}
	if got.Status != "confirmed" || got.Recurring {
		t.Errorf("status = %q recurring = %v", got.Status, got.Recurring)
	}
	for k, v := range event.Tags {
		if got.Tags[k] != v {
			t.Errorf("tag %s = %q, want %q", k, got.Tags[k], v)
		}
	}
}

func TestCalDAVApplyPatch(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	start := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	comp := eventToComponent("e", &CalendarEvent{
		Summary: "Review",
		Start:   start,
		End:     start.Add(time.Hour),
		Tags:    map[string]string{tagRow: "2", "keep": "me"},
	}, now)

	summary := "Retro"
	newEnd := start.Add(2 * time.Hour)
	later := now.Add(time.Hour)
	applyPatch(comp, &EventPatch{Summary: &summary, Start: &start, End: &newEnd, Tags: map[string]string{tagRow: "5"}}, later)

	got := componentToEvent("e", comp)
	if got.Summary != "Retro" || !got.End.Equal(newEnd) {
		t.Errorf("patched event = %+v", got)
	}
	if got.Tags[tagRow] != "5" || got.Tags["keep"] != "me" {
		t.Errorf("tags = %v", got.Tags)
	}
	if !got.Updated.Equal(later) {
		t.Errorf("Updated = %v, want %v", got.Updated, later)
	}
	if n := len(comp.Props[tagProp]); n != 2 {
		t.Errorf("%d tag properties, want 2", n)
	}
}

func TestCalDAVRecurringDetection(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	comp := eventToComponent("e", &CalendarEvent{Summary: "Weekly", Start: now, End: now.Add(time.Hour)}, now)
	comp.Props.SetText("RRULE", "FREQ=WEEKLY")
	if !componentToEvent("e", comp).Recurring {
		t.Error("an event with RRULE should be recurring")
	}
}

func TestCalendarPath(t *testing.T) {
	got, err := calendarPath("https://dav.example.com/calendars/me/work/")
	if err != nil || got != "/calendars/me/work" {
		t.Errorf("calendarPath() = %q, %v", got, err)
	}
	if objectPath(got, "e1") != "/calendars/me/work/e1.ics" {
		t.Errorf("objectPath() = %q", objectPath(got, "e1"))
	}
}
