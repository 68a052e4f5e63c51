package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// alignColumns pads every cell but the last of a row to its column's
// display width; CJK cells count double.
func alignColumns(table [][]string) []string {
	var widths []int
	for _, row := range table {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	lines := make([]string, 0, len(table))
	for _, row := range table {
		var sb strings.Builder
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i < len(row)-1 {
				cell = runewidth.FillRight(cell, widths[i])
			}
			sb.WriteString(cell)
		}
		lines = append(lines, sb.String())
	}
	return lines
}

func listSheets() {
	db, err := openDB(dbFileName)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	infos, err := getSheetsFromDB(db)
	if err != nil {
		log.Fatalf("❌ Error retrieving sheets from database: %v", err)
	}
	if len(infos) == 0 {
		fmt.Println("📭 No sheets registered yet, run add first")
		return
	}

	fmt.Println("📋 Here's the list of sheets you are syncing:")
	table := [][]string{{"ACCOUNT", "SPREADSHEET", "SHEET", "KIND"}}
	for _, info := range infos {
		table = append(table, []string{info.AccountName, info.SpreadsheetID, info.SheetName, info.Kind.String()})
	}
	for _, line := range alignColumns(table) {
		fmt.Println("  " + line)
	}

	rows, err := db.Query("SELECT channel_id, calendar_id, expiration FROM channels ORDER BY calendar_id")
	if err != nil {
		log.Fatalf("❌ Error retrieving channels from database: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var channelID, calendarID string
		var expiration int64
		if err := rows.Scan(&channelID, &calendarID, &expiration); err != nil {
			log.Fatalf("❌ Unable to read channel record: %v", err)
		}
		state := "active"
		if expiration > 0 && time.UnixMilli(expiration).Before(time.Now()) {
			state = "expired"
		}
		fmt.Printf("  🔔 %s watched by channel %s (%s)\n", calendarID, channelID, state)
	}
}
