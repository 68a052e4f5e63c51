package main

import (
	"fmt"
	"strconv"
	"time"
)

type cellPos struct {
	row, col int
}

// memorySheet is an in-memory SheetProvider.
type memorySheet struct {
	id     string
	sheets map[string]map[cellPos]string
	writes int
}

func newMemorySheet(id string) *memorySheet {
	return &memorySheet{id: id, sheets: map[string]map[cellPos]string{}}
}

func (m *memorySheet) addSheet(name string) {
	if _, ok := m.sheets[name]; !ok {
		m.sheets[name] = map[cellPos]string{}
	}
}

func (m *memorySheet) set(sheet string, row, col int, value string) {
	m.addSheet(sheet)
	m.sheets[sheet][cellPos{row, col}] = value
}

// setRow fills row from column 1 onwards.
func (m *memorySheet) setRow(sheet string, row int, values ...string) {
	for i, v := range values {
		m.set(sheet, row, i+1, v)
	}
}

func (m *memorySheet) get(sheet string, row, col int) string {
	return m.sheets[sheet][cellPos{row, col}]
}

func (m *memorySheet) SpreadsheetID() string { return m.id }

func (m *memorySheet) HasSheet(sheet string) (bool, error) {
	_, ok := m.sheets[sheet]
	return ok, nil
}

func (m *memorySheet) ReadRange(sheet string, row, column, numRows, numColumns int) ([][]string, error) {
	cells, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("no sheet %s", sheet)
	}
	grid := make([][]string, numRows)
	for i := range grid {
		grid[i] = make([]string, numColumns)
		for j := range grid[i] {
			grid[i][j] = cells[cellPos{row + i, column + j}]
		}
	}
	return grid, nil
}

func (m *memorySheet) LastRow(sheet string) (int, error) {
	last := 0
	for pos, v := range m.sheets[sheet] {
		if v != "" && pos.row > last {
			last = pos.row
		}
	}
	return last, nil
}

func (m *memorySheet) WriteCells(sheet string, cells []Cell) error {
	if _, ok := m.sheets[sheet]; !ok {
		return fmt.Errorf("no sheet %s", sheet)
	}
	m.writes++
	for _, c := range cells {
		m.sheets[sheet][cellPos{c.Row, c.Column}] = fmt.Sprint(c.Value)
	}
	return nil
}

// memoryCalendar is an in-memory CalendarProvider that counts mutations.
type memoryCalendar struct {
	events  map[string][]*CalendarEvent
	now     time.Time
	nextID  int
	adds    int
	patches int
	deletes int
}

func newMemoryCalendar(calendarIDs ...string) *memoryCalendar {
	m := &memoryCalendar{
		events: map[string][]*CalendarEvent{},
		now:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, id := range calendarIDs {
		m.events[id] = nil
	}
	return m
}

func (m *memoryCalendar) tick() time.Time {
	m.now = m.now.Add(time.Minute)
	return m.now
}

func (m *memoryCalendar) mutations() int {
	return m.adds + m.patches + m.deletes
}

func (m *memoryCalendar) find(calendarID, eventID string) (int, error) {
	events, ok := m.events[calendarID]
	if !ok {
		return 0, fmt.Errorf("no calendar %s", calendarID)
	}
	for i, e := range events {
		if e.ID == eventID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
}

func (m *memoryCalendar) GetCalendar(calendarID string) error {
	if _, ok := m.events[calendarID]; !ok {
		return fmt.Errorf("no calendar %s", calendarID)
	}
	return nil
}

func (m *memoryCalendar) GetEvent(calendarID, eventID string) (*CalendarEvent, error) {
	i, err := m.find(calendarID, eventID)
	if err != nil {
		return nil, err
	}
	e := *m.events[calendarID][i]
	e.Tags = copyTags(e.Tags)
	return &e, nil
}

func (m *memoryCalendar) AddEvent(calendarID string, event *CalendarEvent) (string, error) {
	if err := m.GetCalendar(calendarID); err != nil {
		return "", err
	}
	m.adds++
	m.nextID++
	e := *event
	e.ID = "evt-" + strconv.Itoa(m.nextID)
	e.Updated = m.tick()
	e.Tags = copyTags(event.Tags)
	m.events[calendarID] = append(m.events[calendarID], &e)
	return e.ID, nil
}

// put stores an event as if it had been created elsewhere.
func (m *memoryCalendar) put(calendarID string, e *CalendarEvent) {
	if e.Tags == nil {
		e.Tags = map[string]string{}
	}
	m.events[calendarID] = append(m.events[calendarID], e)
}

func (m *memoryCalendar) PatchEvent(calendarID, eventID string, patch *EventPatch) error {
	i, err := m.find(calendarID, eventID)
	if err != nil {
		return err
	}
	m.patches++
	e := m.events[calendarID][i]
	if patch.Summary != nil {
		e.Summary = *patch.Summary
	}
	if patch.Description != nil {
		e.Description = *patch.Description
	}
	if patch.Start != nil {
		e.Start = *patch.Start
	}
	if patch.End != nil {
		e.End = *patch.End
	}
	for k, v := range patch.Tags {
		e.Tags[k] = v
	}
	e.Updated = m.tick()
	return nil
}

func (m *memoryCalendar) DeleteEvent(calendarID, eventID string) error {
	i, err := m.find(calendarID, eventID)
	if err != nil {
		return err
	}
	m.deletes++
	events := m.events[calendarID]
	m.events[calendarID] = append(events[:i:i], events[i+1:]...)
	return nil
}

func (m *memoryCalendar) ListEvents(calendarID string, timeMin, timeMax time.Time) ([]*CalendarEvent, error) {
	if err := m.GetCalendar(calendarID); err != nil {
		return nil, err
	}
	var result []*CalendarEvent
	for _, e := range m.events[calendarID] {
		if e.End.After(timeMin) && e.Start.Before(timeMax) {
			c := *e
			c.Tags = copyTags(e.Tags)
			result = append(result, &c)
		}
	}
	return result, nil
}

// singleResolver routes every calendar ID to one provider.
type singleResolver struct {
	provider CalendarProvider
}

func (r singleResolver) ProviderFor(string) (CalendarProvider, error) {
	return r.provider, nil
}

const (
	testSpreadsheet = "sheet-1"
	testSheet       = "schedule"
	testCalendar    = "cal@example.com"
)

// scheduleSettings writes a labeled settings sheet with a schedule layout
// spanning columns A..N and one tag "work" mapped to testCalendar.
func scheduleSettings(m *memorySheet) {
	rows := [][2]string{
		{"sync", "1"},
		{"tag.row", "1"},
		{"tag.column", "4"},
		{"tag.length", "2"},
		{"first_line", "2"},
		{"column_front", "1"},
		{"column_end", "14"},
		{"schedule.title", "1"},
		{"schedule.start.year", "2"},
		{"schedule.start.month", "3"},
		{"schedule.start.day", "4"},
		{"schedule.start.hour", "5"},
		{"schedule.start.minute", "6"},
		{"schedule.end.year", "7"},
		{"schedule.end.month", "8"},
		{"schedule.end.day", "9"},
		{"schedule.end.hour", "10"},
		{"schedule.end.minute", "11"},
		{"schedule.description", "12"},
		{"schedule.calendar_id", "13"},
		{"schedule.event_id", "14"},
	}
	for i, r := range rows {
		m.set("setting", i+1, 1, r[0])
		m.set("setting", i+1, 2, r[1])
	}
	m.set("setting", 1, 4, "work")
	m.set("setting", 1, 5, testCalendar)
	m.addSheet(testSheet)
}

// scheduleRow writes a schedule row: title, start, end, description,
// calendar and event ID.
func scheduleRow(m *memorySheet, row int, title string, start, end time.Time, description, calendarID, eventID string) {
	itoa := strconv.Itoa
	m.setRow(testSheet, row,
		title,
		itoa(start.Year()), itoa(int(start.Month())), itoa(start.Day()), itoa(start.Hour()), itoa(start.Minute()),
		itoa(end.Year()), itoa(int(end.Month())), itoa(end.Day()), itoa(end.Hour()), itoa(end.Minute()),
		description, calendarID, eventID,
	)
}

func testSyncer(sheet *memorySheet, cal *memoryCalendar) *Syncer {
	return NewSyncer(sheet, NewCalendarGateway(singleResolver{cal}), SyncOptions{
		Location:     time.UTC,
		Now:          func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
		MonthsBefore: 1,
		MonthsAfter:  2,
	})
}
