package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type GoogleCalendarProvider struct {
	service *calendar.Service
	ctx     context.Context
}

func NewGoogleCalendarProvider(ctx context.Context, client *http.Client) (*GoogleCalendarProvider, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleCalendarProvider{
		service: service,
		ctx:     ctx,
	}, nil
}

func (g *GoogleCalendarProvider) GetCalendar(calendarID string) error {
	_, err := g.service.Calendars.Get(calendarID).Context(g.ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get calendar: %w", err)
	}
	return nil
}

func (g *GoogleCalendarProvider) GetEvent(calendarID string, eventID string) (*CalendarEvent, error) {
	item, err := g.service.Events.Get(calendarID, eventID).Context(g.ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if item.Status == "cancelled" {
		return nil, fmt.Errorf("%w: %s (cancelled)", ErrEventNotFound, eventID)
	}
	return fromGoogleEvent(item), nil
}

func (g *GoogleCalendarProvider) AddEvent(calendarID string, event *CalendarEvent) (string, error) {
	created, err := g.service.Events.Insert(calendarID, toGoogleEvent(event)).Context(g.ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	return created.Id, nil
}

func (g *GoogleCalendarProvider) PatchEvent(calendarID string, eventID string, patch *EventPatch) error {
	_, err := g.service.Events.Patch(calendarID, eventID, toGooglePatch(patch)).Context(g.ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (g *GoogleCalendarProvider) DeleteEvent(calendarID string, eventID string) error {
	err := g.service.Events.Delete(calendarID, eventID).Context(g.ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (g *GoogleCalendarProvider) ListEvents(calendarID string, timeMin, timeMax time.Time) ([]*CalendarEvent, error) {
	var result []*CalendarEvent
	pageToken := ""
	for {
		events, err := g.service.Events.List(calendarID).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			PageToken(pageToken).
			Context(g.ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}
		for _, item := range events.Items {
			result = append(result, fromGoogleEvent(item))
		}
		pageToken = events.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return result, nil
}

// Watch registers a web_hook channel for calendar changes. The channel token
// carries the calendar ID back to the notification handler.
func (g *GoogleCalendarProvider) Watch(calendarID, channelID, address string) (*calendar.Channel, error) {
	channel, err := g.service.Events.Watch(calendarID, &calendar.Channel{
		Id:      channelID,
		Type:    "web_hook",
		Address: address,
		Token:   calendarID,
	}).Context(g.ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to watch calendar: %w", err)
	}
	return channel, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}

func toGoogleEvent(event *CalendarEvent) *calendar.Event {
	googleEvent := &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start: &calendar.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
		},
	}
	if len(event.Tags) > 0 {
		googleEvent.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: copyTags(event.Tags),
		}
	}
	return googleEvent
}

func toGooglePatch(patch *EventPatch) *calendar.Event {
	googleEvent := &calendar.Event{}
	if patch.Summary != nil {
		googleEvent.Summary = *patch.Summary
		googleEvent.ForceSendFields = append(googleEvent.ForceSendFields, "Summary")
	}
	if patch.Description != nil {
		googleEvent.Description = *patch.Description
		googleEvent.ForceSendFields = append(googleEvent.ForceSendFields, "Description")
	}
	if patch.Start != nil {
		googleEvent.Start = &calendar.EventDateTime{DateTime: patch.Start.Format(time.RFC3339)}
	}
	if patch.End != nil {
		googleEvent.End = &calendar.EventDateTime{DateTime: patch.End.Format(time.RFC3339)}
	}
	if len(patch.Tags) > 0 {
		googleEvent.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: copyTags(patch.Tags),
		}
	}
	return googleEvent
}

func fromGoogleEvent(item *calendar.Event) *CalendarEvent {
	event := &CalendarEvent{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Status:      item.Status,
		Recurring:   item.RecurringEventId != "" || len(item.Recurrence) > 0,
		Tags:        map[string]string{},
	}
	event.Start = parseEventDateTime(item.Start)
	event.End = parseEventDateTime(item.End)
	event.Updated, _ = time.Parse(time.RFC3339, item.Updated)
	if item.ExtendedProperties != nil {
		for k, v := range item.ExtendedProperties.Private {
			event.Tags[k] = v
		}
	}
	return event
}

// parseEventDateTime reads timed events; all-day events start at midnight UTC.
func parseEventDateTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, dt.DateTime)
		return t
	}
	t, _ := time.Parse("2006-01-02", dt.Date)
	return t
}

func copyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
