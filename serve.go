package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/robfig/cron/v3"
)

// notificationHandler receives Google Calendar push notifications and pulls
// the changed calendar. Runs are serialised through mu.
type notificationHandler struct {
	mu        *sync.Mutex
	calendars func(channelID string) (string, error)
	pull      func(calendarID string) error
}

func (h *notificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The first message of every channel only confirms the subscription.
	if r.Header.Get("X-Goog-Resource-State") == "sync" {
		w.WriteHeader(http.StatusOK)
		return
	}

	channelID := r.Header.Get("X-Goog-Channel-ID")
	calendarID, err := h.calendars(channelID)
	if err != nil || calendarID == "" {
		calendarID = r.Header.Get("X-Goog-Channel-Token")
	}
	if calendarID == "" {
		printVerbosely(4, "  ⚠️ Notification for unknown channel %q\n", channelID)
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}

	h.mu.Lock()
	err = h.pull(calendarID)
	h.mu.Unlock()
	if err != nil {
		log.Printf("Error pulling calendar %s: %v", calendarID, err)
	}
	// Failures are not retried; acknowledge so the sender does not back off.
	w.WriteHeader(http.StatusOK)
}

func channelCalendar(db *sql.DB) func(string) (string, error) {
	return func(channelID string) (string, error) {
		if channelID == "" {
			return "", errors.New("missing channel ID")
		}
		ch, err := getChannel(db, channelID)
		if err != nil {
			return "", err
		}
		return ch.CalendarID, nil
	}
}

func serve(config *Config) {
	db, err := openDB(dbFileName)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	if _, err := cron.ParseStandard(config.Serve.Schedule); err != nil {
		log.Fatalf("Error parsing schedule %q: %v", config.Serve.Schedule, err)
	}

	var mu sync.Mutex
	factory := NewCalendarFactory(context.Background(), config, db)
	factory.interactive = false

	scheduler := cron.New()
	_, err = scheduler.AddFunc(config.Serve.Schedule, func() {
		mu.Lock()
		defer mu.Unlock()
		infos, err := getSheetsFromDB(db)
		if err != nil {
			log.Printf("Error reading registered sheets: %v", err)
			return
		}
		for _, info := range infos {
			pushRegisteredSheet(factory, info)
		}
	})
	if err != nil {
		log.Fatalf("Error scheduling sync: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := http.NewServeMux()
	mux.Handle("/notifications", &notificationHandler{
		mu:        &mu,
		calendars: channelCalendar(db),
		pull: func(calendarID string) error {
			return pullLatest(factory, db, calendarID)
		},
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	fmt.Printf("🚀 Listening on %s, syncing on %q\n", config.Serve.Listen, config.Serve.Schedule)
	if err := http.ListenAndServe(config.Serve.Listen, mux); err != nil {
		log.Fatalf("Error serving: %v", err)
	}
}
