package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
)

var errRecurringEvent = errors.New("recurring events are not synced")

// toRecord converts a calendar event into a record. The row is taken from
// the event's tags only when they point at sheetName of spreadsheetID.
func toRecord(ev *CalendarEvent, calendarID, spreadsheetID, sheetName string) Record {
	rec := Record{
		Kind:     ScheduleRow,
		Event:    NewEvent(ev.Summary, NewTimeSpan(ev.Start, ev.End), ev.Description),
		Key:      EventKey{CalendarID: calendarID, EventID: ev.ID},
		Metadata: copyTags(ev.Tags),
	}
	if ev.Tags[tagIsRecord] == "true" {
		rec.Kind = RecordRow
	}
	if namesSheet(ev, spreadsheetID, sheetName) {
		if row, err := strconv.Atoi(ev.Tags[tagRow]); err == nil && row > 0 {
			rec.Row = row
		}
	}
	return rec
}

func namesSheet(ev *CalendarEvent, spreadsheetID, sheetName string) bool {
	return ev.Tags[tagSpreadsheetID] == spreadsheetID && ev.Tags[tagSheetName] == sheetName
}

// latestEvent fetches the most recently modified event around now.
func latestEvent(calendars *CalendarGateway, calendarID string, opts SyncOptions) (*CalendarEvent, error) {
	ev, err := calendars.LastUpdated(calendarID, Window(opts.Now(), opts.MonthsBefore, opts.MonthsAfter))
	if err != nil {
		return nil, err
	}
	if ev != nil && ev.Recurring {
		return ev, fmt.Errorf("%w: %s", errRecurringEvent, ev.ID)
	}
	return ev, nil
}

// WriteEvent writes ev into its row of sheetName, appending a row when none
// can be found, and returns the row written.
func (s *Syncer) WriteEvent(sheetName string, kind RowKind, ev *CalendarEvent, calendarID string) (int, error) {
	rec := toRecord(ev, calendarID, s.sheet.SpreadsheetID(), sheetName)
	// The isRecord tag only decides the layout for events of other sheets.
	_, tagged := ev.Tags[tagIsRecord]
	if !tagged || namesSheet(ev, s.sheet.SpreadsheetID(), sheetName) {
		rec.Kind = kind
	}
	if rec.Event.Title() == "" {
		return 0, ErrEmptyTitle
	}
	if !rec.Event.Span().Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTime, ev.ID)
	}

	schema, layout, err := s.layout(sheetName, rec.Kind)
	if err != nil {
		return 0, err
	}
	rec.Row, err = s.resolveRow(sheetName, schema, layout, rec)
	if err != nil {
		return 0, err
	}

	existing, err := s.sheet.ReadRange(sheetName, rec.Row, schema.ColumnFront, 1, schema.RecordLength())
	if err != nil {
		return 0, err
	}
	cells := recordCells(rec, schema, layout, s.opts.Location, existing[0])
	if err := s.sheet.WriteCells(sheetName, cells); err != nil {
		return 0, err
	}
	printVerbosely(3, "      📝 Event %s written to row %d of %s\n", ev.ID, rec.Row, sheetName)

	// Keep the event's back-reference pointing at the row just written.
	tags := rowTags(s.sheet.SpreadsheetID(), sheetName, rec.Row, layout.Kind)
	if _, _, err := s.calendars.Push(rec.Key, rec.Event, tags); err != nil {
		log.Printf("Error updating back-reference of event %s: %v", ev.ID, err)
	}
	return rec.Row, nil
}

// resolveRow prefers the row stored on the event, then a scan of the event
// ID column, then a new row after the last one.
func (s *Syncer) resolveRow(sheetName string, schema *Schema, layout *Layout, rec Record) (int, error) {
	if rec.HasRow() && rec.Row >= schema.FirstLine {
		cells, err := s.sheet.ReadRange(sheetName, rec.Row, schema.ColumnFront, 1, schema.RecordLength())
		if err != nil {
			return 0, err
		}
		current := rowReader{cells: cells[0], front: schema.ColumnFront, layout: layout}
		switch id := current.get(FieldEventID); {
		case id == rec.Key.EventID:
			return rec.Row, nil
		case id == "" && current.get(FieldTitle) == "":
			return rec.Row, nil
		}
		printVerbosely(4, "      ⚠️ Row %d no longer holds event %s, scanning\n", rec.Row, rec.Key.EventID)
	}

	lastRow, err := s.sheet.LastRow(sheetName)
	if err != nil {
		return 0, err
	}
	if lastRow >= schema.FirstLine {
		column, _ := layout.Column(FieldEventID)
		ids, err := s.sheet.ReadRange(sheetName, schema.FirstLine, column, lastRow-schema.FirstLine+1, 1)
		if err != nil {
			return 0, err
		}
		for i, id := range ids {
			if strings.TrimSpace(id[0]) == rec.Key.EventID {
				return schema.FirstLine + i, nil
			}
		}
	}
	return max(lastRow+1, schema.FirstLine), nil
}

// chooseSheet picks the registered sheet an event belongs to: the one named
// by its tags, else the first sheet of the tagged kind, else the first one.
func chooseSheet(infos []SheetInfo, ev *CalendarEvent) (SheetInfo, bool) {
	if len(infos) == 0 {
		return SheetInfo{}, false
	}
	for _, info := range infos {
		if namesSheet(ev, info.SpreadsheetID, info.SheetName) {
			return info, true
		}
	}
	if isRecord, ok := ev.Tags[tagIsRecord]; ok {
		want := ScheduleRow
		if isRecord == "true" {
			want = RecordRow
		}
		for _, info := range infos {
			if info.Kind == want {
				return info, true
			}
		}
	}
	return infos[0], true
}

// pullCalendar writes the most recently changed event of calendarID back
// into its spreadsheet.
func pullCalendar(config *Config, calendarID string) {
	db, err := openDB(dbFileName)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	factory := NewCalendarFactory(context.Background(), config, db)
	if err := pullLatest(factory, db, calendarID); err != nil {
		log.Printf("Error pulling calendar %s: %v", calendarID, err)
	}
}

// calendarAccount picks the account calendarID is accessed with: the one
// configured for it, else the one that watches it, else the default account,
// else the account of the first registered sheet.
func calendarAccount(config *Config, db *sql.DB, calendarID string, infos []SheetInfo) string {
	if account := config.Calendars[calendarID].Account; account != "" {
		return account
	}
	if ch, err := getCalendarChannel(db, calendarID); err == nil && ch.AccountName != "" {
		return ch.AccountName
	}
	if config.General.DefaultAccount != "" {
		return config.General.DefaultAccount
	}
	if len(infos) > 0 {
		return infos[0].AccountName
	}
	return ""
}

func pullLatest(factory *CalendarFactory, db *sql.DB, calendarID string) error {
	infos, err := getSheetsFromDB(db)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return errors.New("no sheets registered, run add first")
	}

	printVerbosely(1, "📥 Pulling latest change of calendar %s\n", calendarID)
	opts := syncOptions(factory.config)
	gateway := NewCalendarGateway(factory.Resolver(calendarAccount(factory.config, db, calendarID, infos)))
	ev, err := latestEvent(gateway, calendarID, opts)
	if err != nil {
		if errors.Is(err, errRecurringEvent) {
			printVerbosely(4, "  ⏭️ %v\n", err)
			return nil
		}
		return err
	}
	if ev == nil {
		printVerbosely(2, "  📭 No events in window\n")
		return nil
	}

	info, _ := chooseSheet(infos, ev)
	sheet, err := factory.CreateSheetProvider(info.AccountName, info.SpreadsheetID)
	if err != nil {
		return err
	}
	// The back-reference is written with the account the event was read with.
	syncer := NewSyncer(sheet, gateway, opts)
	row, err := syncer.WriteEvent(info.SheetName, info.Kind, ev, calendarID)
	if err != nil {
		if errors.Is(err, errSyncDisabled) {
			printVerbosely(1, "  ⏸️ Sync disabled for %s\n", info.SpreadsheetID)
			return nil
		}
		return err
	}
	printVerbosely(1, "  ✅ %s written to %s row %d\n", ev.Summary, info.SheetName, row)
	return nil
}
