package main

import (
	"database/sql"
	"fmt"
)

func dbInit(db *sql.DB) error {
	var dbVersion int
	err := db.QueryRow("SELECT version FROM db_version WHERE name='sheetcal'").Scan(&dbVersion)
	if err != nil {
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS db_version (
			name TEXT PRIMARY KEY,
			version INTEGER
		)`)
		if err != nil {
			return fmt.Errorf("error creating db_version table: %w", err)
		}
		_, err = db.Exec(`INSERT OR IGNORE INTO db_version (name, version) VALUES ('sheetcal', 0)`)
		if err != nil {
			return fmt.Errorf("error initializing db_version table: %w", err)
		}
		dbVersion = 0
	}

	if dbVersion == 0 {
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS tokens (
		account_name TEXT PRIMARY KEY,
		token TEXT)`)
		if err != nil {
			return fmt.Errorf("error creating tokens table: %w", err)
		}

		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sheets (
		account_name TEXT,
		spreadsheet_id TEXT,
		sheet_name TEXT,
		kind TEXT,
		PRIMARY KEY (spreadsheet_id, sheet_name))`)
		if err != nil {
			return fmt.Errorf("error creating sheets table: %w", err)
		}

		dbVersion = 1
		_, err = db.Exec(`UPDATE db_version SET version = 1 WHERE name = 'sheetcal'`)
		if err != nil {
			return fmt.Errorf("error updating db_version table: %w", err)
		}
	}

	if dbVersion == 1 {
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS channels (
			channel_id TEXT PRIMARY KEY,
			resource_id TEXT,
			calendar_id TEXT,
			account_name TEXT,
			expiration INTEGER
		)`)
		if err != nil {
			return fmt.Errorf("error creating channels table: %w", err)
		}

		dbVersion = 2
		_, err = db.Exec(`UPDATE db_version SET version = 2 WHERE name = 'sheetcal'`)
		if err != nil {
			return fmt.Errorf("error updating db_version table: %w", err)
		}
	}
	return nil
}

// SheetInfo is one registered sheet.
type SheetInfo struct {
	AccountName   string
	SpreadsheetID string
	SheetName     string
	Kind          RowKind
}

func getSheetsFromDB(db *sql.DB) ([]SheetInfo, error) {
	rows, err := db.Query("SELECT account_name, spreadsheet_id, sheet_name, kind FROM sheets ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("error querying sheets: %w", err)
	}
	defer rows.Close()

	var result []SheetInfo
	for rows.Next() {
		var info SheetInfo
		var kind string
		if err := rows.Scan(&info.AccountName, &info.SpreadsheetID, &info.SheetName, &kind); err != nil {
			return nil, fmt.Errorf("error scanning sheet row: %w", err)
		}
		info.Kind, err = parseRowKind(kind)
		if err != nil {
			return nil, err
		}
		result = append(result, info)
	}
	return result, rows.Err()
}

func addSheetToDB(db *sql.DB, info SheetInfo) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO sheets (account_name, spreadsheet_id, sheet_name, kind) VALUES (?, ?, ?, ?)`,
		info.AccountName, info.SpreadsheetID, info.SheetName, info.Kind.String())
	return err
}

type ChannelInfo struct {
	ChannelID   string
	ResourceID  string
	CalendarID  string
	AccountName string
	Expiration  int64
}

func saveChannel(db *sql.DB, ch ChannelInfo) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO channels (channel_id, resource_id, calendar_id, account_name, expiration) VALUES (?, ?, ?, ?, ?)`,
		ch.ChannelID, ch.ResourceID, ch.CalendarID, ch.AccountName, ch.Expiration)
	return err
}

func getChannel(db *sql.DB, channelID string) (ChannelInfo, error) {
	ch := ChannelInfo{ChannelID: channelID}
	err := db.QueryRow("SELECT resource_id, calendar_id, account_name, expiration FROM channels WHERE channel_id = ?", channelID).
		Scan(&ch.ResourceID, &ch.CalendarID, &ch.AccountName, &ch.Expiration)
	return ch, err
}

// getCalendarChannel returns the channel of calendarID expiring last.
func getCalendarChannel(db *sql.DB, calendarID string) (ChannelInfo, error) {
	ch := ChannelInfo{CalendarID: calendarID}
	err := db.QueryRow("SELECT channel_id, resource_id, account_name, expiration FROM channels WHERE calendar_id = ? ORDER BY expiration DESC LIMIT 1", calendarID).
		Scan(&ch.ChannelID, &ch.ResourceID, &ch.AccountName, &ch.Expiration)
	return ch, err
}
