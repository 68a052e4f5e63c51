package main

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// DesyncSheet deletes the events of every row of sheetName that carries an
// event ID and clears those IDs, returning the number of events removed.
func (s *Syncer) DesyncSheet(sheetName string, kind RowKind) (int, error) {
	schema, layout, err := s.layout(sheetName, kind)
	if err != nil {
		return 0, err
	}
	lastRow, err := s.sheet.LastRow(sheetName)
	if err != nil {
		return 0, err
	}
	if lastRow < schema.FirstLine {
		return 0, nil
	}
	rows, err := s.sheet.ReadRange(sheetName, schema.FirstLine, schema.ColumnFront, lastRow-schema.FirstLine+1, schema.RecordLength())
	if err != nil {
		return 0, err
	}

	idColumn, _ := layout.Column(FieldEventID)
	var cleared []Cell
	removed := 0
	for i, cells := range rows {
		row := schema.FirstLine + i
		r := rowReader{cells: cells, front: schema.ColumnFront, layout: layout}
		eventID := r.get(FieldEventID)
		if eventID == "" {
			continue
		}
		calendarID := r.get(FieldCalendarID)
		if calendarID == "" && layout.Has(FieldTag) {
			calendarID = schema.ToCalendarID(r.get(FieldTag))
		}
		if calendarID == "" {
			printVerbosely(4, "    ⏭️ Row %d has no calendar, keeping %s\n", row, eventID)
			continue
		}

		err := s.calendars.Pop(EventKey{CalendarID: calendarID, EventID: eventID})
		switch {
		case err == nil:
			removed++
			printVerbosely(3, "      ✅ Event deleted: %s\n", eventID)
		case errors.Is(err, ErrEventNotFound):
			printVerbosely(4, "      ⚠️ Event not found in calendar: %s\n", eventID)
		default:
			log.Printf("❌ Error deleting event %s: %v", eventID, err)
			continue
		}
		cleared = append(cleared, Cell{Row: row, Column: idColumn, Value: "", Raw: true})
	}

	if len(cleared) > 0 {
		if err := s.sheet.WriteCells(sheetName, cleared); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func desyncSheets(config *Config) {
	db, err := openDB(dbFileName)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	infos, err := getSheetsFromDB(db)
	if err != nil {
		log.Fatalf("Error reading registered sheets: %v", err)
	}

	fmt.Println("🚀 Starting sheet desynchronization...")
	factory := NewCalendarFactory(context.Background(), config, db)
	for _, info := range infos {
		printVerbosely(1, "📄 Desyncing %s sheet %s (%s)\n", info.Kind, info.SheetName, info.SpreadsheetID)
		syncer, err := factory.Syncer(info)
		if err != nil {
			log.Printf("Error preparing sheet %s: %v", info.SheetName, err)
			continue
		}
		removed, err := syncer.DesyncSheet(info.SheetName, info.Kind)
		if err != nil {
			log.Printf("Error desyncing sheet %s: %v", info.SheetName, err)
			continue
		}
		fmt.Printf("  🗑️ %s: %d events deleted\n", info.SheetName, removed)
	}
	fmt.Println("Sheets desynced successfully")
}
