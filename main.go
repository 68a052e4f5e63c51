package main

import (
	"fmt"
	"log"
	"os"
)

const usage = `Usage: sheetcal <command> [arguments]

Commands:
  add                          register a sheet for syncing
  sync [sheet]                 push sheet rows into their calendars
  pull <calendarId>            write the latest calendar change into its sheet
  watch <calendarId> <address> subscribe address to calendar notifications
  serve                        sync periodically and receive notifications
  desync                       delete every synced event
  cleanup <calendarId>         delete events no row refers to any more
  remove                       unregister a sheet
  list                         list registered sheets`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	config, err := readConfig(configFileName)
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	initOAuthConfig(config)

	db, err := openDB(dbFileName)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	if err := dbInit(db); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	db.Close()

	command := os.Args[1]
	switch command {
	case "add":
		addSheet(config)
	case "sync":
		filter := ""
		if len(os.Args) > 2 {
			filter = os.Args[2]
		}
		syncSheets(config, filter)
	case "pull":
		requireArgs(3)
		pullCalendar(config, os.Args[2])
	case "watch":
		requireArgs(4)
		watchCalendar(config, os.Args[2], os.Args[3])
	case "serve":
		serve(config)
	case "desync":
		desyncSheets(config)
	case "cleanup":
		requireArgs(3)
		cleanupCalendar(config, os.Args[2])
	case "remove":
		removeSheet()
	case "list":
		listSheets()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func requireArgs(n int) {
	if len(os.Args) < n {
		fmt.Println(usage)
		os.Exit(1)
	}
}
