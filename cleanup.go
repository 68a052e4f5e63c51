package main

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// ReferencedEvents returns the event IDs held by the rows of sheetName.
func (s *Syncer) ReferencedEvents(sheetName string, kind RowKind) (map[string]bool, error) {
	schema, layout, err := s.layout(sheetName, kind)
	if err != nil {
		return nil, err
	}
	ids := map[string]bool{}
	lastRow, err := s.sheet.LastRow(sheetName)
	if err != nil {
		return nil, err
	}
	if lastRow < schema.FirstLine {
		return ids, nil
	}
	column, _ := layout.Column(FieldEventID)
	cells, err := s.sheet.ReadRange(sheetName, schema.FirstLine, column, lastRow-schema.FirstLine+1, 1)
	if err != nil {
		return nil, err
	}
	for _, c := range cells {
		if id := strings.TrimSpace(c[0]); id != "" {
			ids[id] = true
		}
	}
	return ids, nil
}

// orphanedEvents picks the events tagged with a registered sheet that no
// row of that sheet references any more. Untagged events are never orphans.
func orphanedEvents(events []*CalendarEvent, infos []SheetInfo, referenced func(SheetInfo) (map[string]bool, error)) ([]*CalendarEvent, error) {
	cache := map[SheetInfo]map[string]bool{}
	var orphans []*CalendarEvent
	for _, ev := range events {
		if ev.Recurring {
			continue
		}
		var owner *SheetInfo
		for i := range infos {
			if infos[i].SpreadsheetID == ev.Tags[tagSpreadsheetID] && infos[i].SheetName == ev.Tags[tagSheetName] {
				owner = &infos[i]
				break
			}
		}
		if owner == nil {
			continue
		}
		ids, ok := cache[*owner]
		if !ok {
			var err error
			ids, err = referenced(*owner)
			if err != nil {
				return nil, fmt.Errorf("sheet %s: %w", owner.SheetName, err)
			}
			cache[*owner] = ids
		}
		if !ids[ev.ID] {
			orphans = append(orphans, ev)
		}
	}
	return orphans, nil
}

// cleanupCalendar deletes events of calendarID that were pushed from a
// registered sheet whose rows no longer point at them.
func cleanupCalendar(config *Config, calendarID string) {
	db, err := openDB(dbFileName)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	infos, err := getSheetsFromDB(db)
	if err != nil {
		log.Fatalf("Error reading registered sheets: %v", err)
	}
	if len(infos) == 0 {
		fmt.Println("📭 No sheets registered, nothing to clean up")
		return
	}

	factory := NewCalendarFactory(context.Background(), config, db)
	gateway := NewCalendarGateway(factory.Resolver(calendarAccount(config, db, calendarID, infos)))
	opts := syncOptions(config)

	fmt.Printf("🧹 Cleaning up calendar %s...\n", calendarID)
	events, err := gateway.Events(calendarID, Window(opts.Now(), opts.MonthsBefore, opts.MonthsAfter))
	if err != nil {
		log.Fatalf("Error retrieving events: %v", err)
	}

	orphans, err := orphanedEvents(events, infos, func(info SheetInfo) (map[string]bool, error) {
		syncer, err := factory.Syncer(info)
		if err != nil {
			return nil, err
		}
		return syncer.ReferencedEvents(info.SheetName, info.Kind)
	})
	if err != nil {
		log.Fatalf("Error reading sheet references: %v", err)
	}

	for _, ev := range orphans {
		if err := gateway.Pop(EventKey{CalendarID: calendarID, EventID: ev.ID}); err != nil {
			log.Printf("❌ Error deleting orphaned event %s: %v", ev.ID, err)
			continue
		}
		printVerbosely(2, "  🗑️ Orphaned event deleted: %s (%s)\n", ev.Summary, ev.ID)
	}
	fmt.Printf("✅ %d orphaned events deleted from %s\n", len(orphans), calendarID)
}
