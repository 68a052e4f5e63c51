package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

var stdin = bufio.NewReader(os.Stdin)

// readLine reads a whole line so sheet names may contain spaces.
func readLine() string {
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func addSheet(config *Config) {
	db, err := openDB(dbFileName)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	fmt.Println("🚀 Starting sheet addition...")
	fmt.Print("👤 Enter account name: ")
	accountName := readLine()
	if accountName == "" {
		accountName = config.General.DefaultAccount
	}
	if accountName == "" {
		log.Fatalf("Error: an account name is required")
	}

	fmt.Print("📄 Enter spreadsheet ID: ")
	spreadsheetID := readLine()

	fmt.Print("📑 Enter sheet name: ")
	sheetName := readLine()

	fmt.Print("🗂️ Enter row kind (schedule or record) [schedule]: ")
	kind, err := parseRowKind(strings.ToLower(readLine()))
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	factory := NewCalendarFactory(context.Background(), config, db)
	sheet, err := factory.CreateSheetProvider(accountName, spreadsheetID)
	if err != nil {
		log.Fatalf("Error creating sheets client: %v", err)
	}
	found, err := sheet.HasSheet(sheetName)
	if err != nil {
		log.Fatalf("Error retrieving spreadsheet: %v", err)
	}
	if !found {
		log.Fatalf("Error: sheet %s not found in %s", sheetName, spreadsheetID)
	}

	// The settings sheet must parse before the sheet is worth registering.
	schema, err := LoadSchema(sheet, config.General.SettingsSheet)
	if err != nil {
		log.Fatalf("Error reading settings sheet %s: %v", config.General.SettingsSheet, err)
	}
	if _, ok := schema.Layout(kind); !ok {
		fmt.Printf("  ⚠️ No %s layout in settings, the other layout will be used\n", kind)
	}

	info := SheetInfo{AccountName: accountName, SpreadsheetID: spreadsheetID, SheetName: sheetName, Kind: kind}
	if err := addSheetToDB(db, info); err != nil {
		log.Fatalf("Error saving sheet: %v", err)
	}

	fmt.Printf("✅ %s sheet %s of %s added successfully for account %s\n", kind, sheetName, spreadsheetID, accountName)
}
