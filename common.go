package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/sheets/v4"
)

const (
	configFileName = ".sheetcal.toml"
	dbFileName     = ".sheetcal.db"
)

type Config struct {
	General   GeneralConfig             `toml:"general"`
	Serve     ServeConfig               `toml:"serve"`
	CalDAVs   map[string]CalDAVConfig   `toml:"caldav_servers"`
	Calendars map[string]CalendarConfig `toml:"calendars"`
}

type GeneralConfig struct {
	ClientID           string `toml:"client_id"`
	ClientSecret       string `toml:"client_secret"`
	VerbosityLevel     int    `toml:"verbosity_level"`
	Timezone           string `toml:"timezone"`
	SettingsSheet      string `toml:"settings_sheet"`
	WindowMonthsBefore int    `toml:"window_months_before"`
	WindowMonthsAfter  int    `toml:"window_months_after"`
	DefaultAccount     string `toml:"default_account"`
}

type ServeConfig struct {
	Listen   string `toml:"listen"`
	Schedule string `toml:"schedule"`
}

type CalDAVConfig struct {
	Name      string `toml:"name"`
	ServerURL string `toml:"server_url"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// CalendarConfig routes one calendar ID to a backend. Calendars without an
// entry are Google calendars of the default account.
type CalendarConfig struct {
	Provider string `toml:"provider"`
	Server   string `toml:"server"`
	Account  string `toml:"account"`
}

var oauthConfig *oauth2.Config
var configDir string
var verbosityLevel int

func initOAuthConfig(config *Config) {
	oauthConfig = &oauth2.Config{
		ClientID:     config.General.ClientID,
		ClientSecret: config.General.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{calendar.CalendarScope, sheets.SpreadsheetsScope},
	}
}

// readConfig tries the current dir, then $HOME, then $HOME/.config/sheetcal/.
func readConfig(filename string) (*Config, error) {
	home := os.Getenv("HOME")
	candidates := []string{
		filename,
		filepath.Join(home, filename),
		filepath.Join(home, ".config", "sheetcal", filename),
	}

	var errs []error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		config, err := parseConfig(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", candidate, err)
		}
		configDir = filepath.Dir(candidate)
		verbosityLevel = config.General.VerbosityLevel
		return config, nil
	}
	return nil, errors.Join(errs...)
}

func parseConfig(data []byte) (*Config, error) {
	var config Config
	md, err := toml.Decode(string(data), &config)
	if err != nil {
		return nil, err
	}

	if config.General.SettingsSheet == "" {
		config.General.SettingsSheet = "setting"
	}
	if !md.IsDefined("general", "window_months_before") {
		config.General.WindowMonthsBefore = 1
	}
	if !md.IsDefined("general", "window_months_after") {
		config.General.WindowMonthsAfter = 2
	}
	if config.Serve.Listen == "" {
		config.Serve.Listen = "127.0.0.1:8080"
	}
	if config.Serve.Schedule == "" {
		config.Serve.Schedule = "*/15 * * * *"
	}
	if _, err := loadLocation(config.General.Timezone); err != nil {
		return nil, err
	}

	for calendarID, cal := range config.Calendars {
		switch strings.ToLower(cal.Provider) {
		case "", "google":
		case "caldav":
			if _, ok := config.CalDAVs[cal.Server]; !ok {
				return nil, fmt.Errorf("calendar %s: CalDAV server '%s' not found in configuration", calendarID, cal.Server)
			}
		default:
			return nil, fmt.Errorf("calendar %s: unsupported provider type: %s", calendarID, cal.Provider)
		}
	}
	return &config, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

func syncOptions(config *Config) SyncOptions {
	loc, err := loadLocation(config.General.Timezone)
	if err != nil {
		loc = time.Local
	}
	return SyncOptions{
		Location:      loc,
		Now:           time.Now,
		MonthsBefore:  config.General.WindowMonthsBefore,
		MonthsAfter:   config.General.WindowMonthsAfter,
		SettingsSheet: config.General.SettingsSheet,
	}
}

func openDB(filename string) (*sql.DB, error) {
	// Prefer the directory the config file was found in.
	if configDir != "" {
		if db, err := sql.Open("sqlite3", filepath.Join(configDir, filename)); err == nil {
			return db, nil
		}
	}
	return sql.Open("sqlite3", filename)
}

func getTokenFromWeb(config *oauth2.Config) *oauth2.Token {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the "+
		"authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		log.Fatalf("Unable to read authorization code: %v", err)
	}

	tok, err := config.Exchange(context.TODO(), authCode)
	if err != nil {
		log.Fatalf("Unable to retrieve token from web: %v", err)
	}
	return tok
}

func saveToken(db *sql.DB, accountName string, token *oauth2.Token) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return err
	}

	_, err = db.Exec("INSERT OR REPLACE INTO tokens (account_name, token) VALUES (?, ?)", accountName, tokenJSON)
	return err
}

func loadToken(db *sql.DB, accountName string) (*oauth2.Token, error) {
	var tokenJSON []byte
	err := db.QueryRow("SELECT token FROM tokens WHERE account_name = ?", accountName).Scan(&tokenJSON)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("error unmarshaling token: %w", err)
	}
	return &token, nil
}

// errAuthorizationRequired means the account has no usable token and the
// user has to go through the consent flow again.
var errAuthorizationRequired = errors.New("authorization required")

// tokenClient builds an authorized client from the stored token without
// prompting, refreshing and saving the token when needed.
func tokenClient(ctx context.Context, config *oauth2.Config, db *sql.DB, accountName string) (*http.Client, error) {
	token, err := loadToken(db, accountName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no token found for account %s", errAuthorizationRequired, accountName)
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving token from database: %w", err)
	}

	newToken, err := config.TokenSource(ctx, token).Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if (errors.As(err, &rerr) && rerr.ErrorCode == "invalid_grant") ||
			strings.Contains(err.Error(), "Token has been expired or revoked") {
			return nil, fmt.Errorf("%w: token expired or revoked for account %s", errAuthorizationRequired, accountName)
		}
		return nil, fmt.Errorf("error retrieving token from token source: %w", err)
	}

	if newToken.AccessToken != token.AccessToken {
		printVerbosely(3, "Token refreshed for account %s.\n", accountName)
		if err := saveToken(db, accountName, newToken); err != nil {
			log.Printf("Error saving token: %v", err)
		}
	}
	return config.Client(ctx, newToken), nil
}

// getClient is tokenClient for interactive commands: it asks for a new
// authorization code when the account has no usable token.
func getClient(ctx context.Context, config *oauth2.Config, db *sql.DB, accountName string) *http.Client {
	client, err := tokenClient(ctx, config, db, accountName)
	if err == nil {
		return client
	}
	if !errors.Is(err, errAuthorizationRequired) {
		log.Fatalf("Error authorizing account %s: %v", accountName, err)
	}

	fmt.Printf("  ❗️ %v. Obtaining a new token.\n", err)
	token := getTokenFromWeb(config)
	if err := saveToken(db, accountName, token); err != nil {
		log.Printf("Error saving token: %v", err)
	}
	return config.Client(ctx, token)
}

func printVerbosely(verbosity int, format string, a ...interface{}) {
	// verbosityLevel is set in the config file
	// 0 - no output, other than critical errors
	// 1 - only list sheets and calendars being synced
	// 2 - list rows and events being synced
	// 3 - report on events created/updated/written back
	// 4 - report on rows and events skipped
	// 5 - report everything
	if verbosity <= verbosityLevel {
		fmt.Printf(format, a...)
	}
}
