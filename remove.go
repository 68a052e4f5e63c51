package main

import (
	"database/sql"
	"fmt"
	"log"
)

func removeSheetFromDB(db *sql.DB, spreadsheetID, sheetName string) (bool, error) {
	res, err := db.Exec(`DELETE FROM sheets WHERE spreadsheet_id = ? AND sheet_name = ?`, spreadsheetID, sheetName)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// removeSheet unregisters a sheet. Its events stay in the calendar; run
// desync first to delete them.
func removeSheet() {
	db, err := openDB(dbFileName)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	fmt.Println("🚀 Starting sheet removal...")

	fmt.Print("📄 Enter spreadsheet ID: ")
	spreadsheetID := readLine()

	fmt.Print("📑 Enter sheet name: ")
	sheetName := readLine()

	fmt.Print("⚠️  Are you sure you want to stop syncing this sheet? (y/N): ")
	confirmation := readLine()

	if confirmation != "y" && confirmation != "Y" {
		fmt.Println("❌ Sheet removal cancelled")
		return
	}

	removed, err := removeSheetFromDB(db, spreadsheetID, sheetName)
	if err != nil {
		log.Fatalf("Error removing sheet: %v", err)
	}
	if !removed {
		fmt.Printf("❌ Sheet %s of %s is not registered\n", sheetName, spreadsheetID)
		return
	}
	fmt.Printf("✅ Sheet %s of %s removed successfully\n", sheetName, spreadsheetID)
}
