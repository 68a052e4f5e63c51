package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

// tagProp carries one "key=value" metadata tag. Property names are
// case-folded by iCalendar, so keys live in the value.
const tagProp = "X-SHEETCAL-TAG"

type CalDAVProvider struct {
	client    *caldav.Client
	ctx       context.Context
	serverURL string
	now       func() time.Time
}

func NewCalDAVProvider(ctx context.Context, serverURL, username, password string) (*CalDAVProvider, error) {
	baseURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CalDAV server URL: %w", err)
	}

	var httpClient webdav.HTTPClient = http.DefaultClient
	if username != "" && password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, username, password)
	}

	c, err := caldav.NewClient(httpClient, baseURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}

	return &CalDAVProvider{
		client:    c,
		ctx:       ctx,
		serverURL: serverURL,
		now:       time.Now,
	}, nil
}

func (c *CalDAVProvider) GetCalendar(calendarID string) error {
	calPath, err := calendarPath(calendarID)
	if err != nil {
		return err
	}

	// Calendars are listed from their home set, usually the parent path.
	homeSetPath := "/"
	if parts := strings.Split(strings.Trim(calPath, "/"), "/"); len(parts) > 1 {
		homeSetPath = "/" + strings.Join(parts[:len(parts)-1], "/") + "/"
	}

	calendars, err := c.client.FindCalendars(c.ctx, homeSetPath)
	if err != nil {
		return fmt.Errorf("failed to find calendars: %w", err)
	}
	for _, cal := range calendars {
		if strings.TrimRight(cal.Path, "/") == calPath {
			return nil
		}
	}
	return fmt.Errorf("calendar not found at path: %s", calPath)
}

func (c *CalDAVProvider) GetEvent(calendarID string, eventID string) (*CalendarEvent, error) {
	comp, err := c.getComponent(calendarID, eventID)
	if err != nil {
		return nil, err
	}
	return componentToEvent(eventID, comp), nil
}

func (c *CalDAVProvider) AddEvent(calendarID string, event *CalendarEvent) (string, error) {
	calPath, err := calendarPath(calendarID)
	if err != nil {
		return "", err
	}

	eventID := "sheetcal-" + uuid.NewString()
	comp := eventToComponent(eventID, event, c.now())
	if _, err := c.client.PutCalendarObject(c.ctx, objectPath(calPath, eventID), wrapComponent(comp)); err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	return eventID, nil
}

func (c *CalDAVProvider) PatchEvent(calendarID string, eventID string, patch *EventPatch) error {
	calPath, err := calendarPath(calendarID)
	if err != nil {
		return err
	}
	comp, err := c.getComponent(calendarID, eventID)
	if err != nil {
		return err
	}
	applyPatch(comp, patch, c.now())
	if _, err := c.client.PutCalendarObject(c.ctx, objectPath(calPath, eventID), wrapComponent(comp)); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (c *CalDAVProvider) DeleteEvent(calendarID string, eventID string) error {
	calPath, err := calendarPath(calendarID)
	if err != nil {
		return err
	}
	if err := c.client.Client.RemoveAll(c.ctx, objectPath(calPath, eventID)); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (c *CalDAVProvider) ListEvents(calendarID string, timeMin, timeMax time.Time) ([]*CalendarEvent, error) {
	calPath, err := calendarPath(calendarID)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: timeMin,
				End:   timeMax,
			}},
		},
	}
	objects, err := c.client.QueryCalendar(c.ctx, calPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var result []*CalendarEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		eventID := strings.TrimSuffix(path.Base(obj.Path), ".ics")
		for _, comp := range obj.Data.Children {
			if comp.Name != "VEVENT" {
				continue
			}
			result = append(result, componentToEvent(eventID, comp))
		}
	}
	return result, nil
}

func (c *CalDAVProvider) getComponent(calendarID, eventID string) (*ical.Component, error) {
	calPath, err := calendarPath(calendarID)
	if err != nil {
		return nil, err
	}
	object, err := c.client.GetCalendarObject(c.ctx, objectPath(calPath, eventID))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEventNotFound, eventID, err)
	}
	for _, comp := range object.Data.Children {
		if comp.Name == "VEVENT" {
			return comp, nil
		}
	}
	return nil, fmt.Errorf("%w: no VEVENT component in %s", ErrEventNotFound, eventID)
}

func calendarPath(calendarID string) (string, error) {
	calURL, err := url.Parse(calendarID)
	if err != nil {
		return "", fmt.Errorf("invalid calendar URL: %w", err)
	}
	return strings.TrimRight(calURL.Path, "/"), nil
}

func objectPath(calPath, eventID string) string {
	return calPath + "/" + eventID + ".ics"
}

func wrapComponent(comp *ical.Component) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText("PRODID", "-//sheetcal//sheetcal//EN")
	cal.Props.SetText("VERSION", "2.0")
	cal.Children = append(cal.Children, comp)
	return cal
}

func eventToComponent(eventID string, event *CalendarEvent, now time.Time) *ical.Component {
	icalEvent := ical.NewEvent()
	props := icalEvent.Props
	props.SetText("UID", eventID)
	props.SetDateTime("DTSTAMP", now.UTC())
	props.SetDateTime("LAST-MODIFIED", now.UTC())
	props.SetText("SUMMARY", event.Summary)
	props.SetText("DESCRIPTION", event.Description)
	props.SetDateTime("DTSTART", event.Start.UTC())
	props.SetDateTime("DTEND", event.End.UTC())
	props.SetText("STATUS", "CONFIRMED")
	setTags(icalEvent.Component, event.Tags)
	return icalEvent.Component
}

func applyPatch(comp *ical.Component, patch *EventPatch, now time.Time) {
	if patch.Summary != nil {
		comp.Props.SetText("SUMMARY", *patch.Summary)
	}
	if patch.Description != nil {
		comp.Props.SetText("DESCRIPTION", *patch.Description)
	}
	if patch.Start != nil {
		comp.Props.SetDateTime("DTSTART", patch.Start.UTC())
	}
	if patch.End != nil {
		comp.Props.SetDateTime("DTEND", patch.End.UTC())
	}
	if len(patch.Tags) > 0 {
		tags := readTags(comp)
		for k, v := range patch.Tags {
			tags[k] = v
		}
		setTags(comp, tags)
	}
	comp.Props.SetDateTime("LAST-MODIFIED", now.UTC())
	comp.Props.SetDateTime("DTSTAMP", now.UTC())
}

func componentToEvent(eventID string, comp *ical.Component) *CalendarEvent {
	status := strings.ToLower(getTextProp(comp.Props, "STATUS"))
	if status == "" {
		status = "confirmed"
	}

	start, _ := comp.Props.DateTime("DTSTART", time.UTC)
	end, _ := comp.Props.DateTime("DTEND", time.UTC)
	updated, err := comp.Props.DateTime("LAST-MODIFIED", time.UTC)
	if err != nil || updated.IsZero() {
		updated, _ = comp.Props.DateTime("DTSTAMP", time.UTC)
	}

	return &CalendarEvent{
		ID:          eventID,
		Summary:     getTextProp(comp.Props, "SUMMARY"),
		Description: getTextProp(comp.Props, "DESCRIPTION"),
		Start:       start,
		End:         end,
		Status:      status,
		Updated:     updated,
		Recurring:   comp.Props.Get("RRULE") != nil || comp.Props.Get("RECURRENCE-ID") != nil,
		Tags:        readTags(comp),
	}
}

func readTags(comp *ical.Component) map[string]string {
	tags := map[string]string{}
	for _, prop := range comp.Props[tagProp] {
		text, err := prop.Text()
		if err != nil {
			continue
		}
		if k, v, ok := strings.Cut(text, "="); ok {
			tags[k] = v
		}
	}
	return tags
}

func setTags(comp *ical.Component, tags map[string]string) {
	delete(comp.Props, tagProp)
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		prop := ical.NewProp(tagProp)
		prop.SetText(k + "=" + tags[k])
		comp.Props.Add(prop)
	}
}

func getTextProp(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	text, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return text
}
