package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
)

// CalendarFactory handles creation and caching of calendar and sheet providers
type CalendarFactory struct {
	config    *Config
	db        *sql.DB
	ctx       context.Context
	clients   map[string]*http.Client
	providers map[string]CalendarProvider

	// interactive commands may prompt for an authorization code; serve may not.
	interactive bool

	newSheet    func(accountName, spreadsheetID string) (SheetProvider, error)
	newResolver func(accountName string) ProviderResolver
}

// NewCalendarFactory creates a new calendar factory instance
func NewCalendarFactory(ctx context.Context, config *Config, db *sql.DB) *CalendarFactory {
	return &CalendarFactory{
		config:      config,
		db:          db,
		ctx:         ctx,
		clients:     make(map[string]*http.Client),
		providers:   make(map[string]CalendarProvider),
		interactive: true,
	}
}

func (cf *CalendarFactory) client(accountName string) (*http.Client, error) {
	if c, ok := cf.clients[accountName]; ok {
		return c, nil
	}
	if cf.interactive {
		c := getClient(cf.ctx, oauthConfig, cf.db, accountName)
		cf.clients[accountName] = c
		return c, nil
	}
	c, err := tokenClient(cf.ctx, oauthConfig, cf.db, accountName)
	if err != nil {
		return nil, err
	}
	cf.clients[accountName] = c
	return c, nil
}

// Resolver returns a ProviderResolver whose Google calendars default to
// accountName unless the configuration routes them elsewhere.
func (cf *CalendarFactory) Resolver(accountName string) ProviderResolver {
	if cf.config.General.DefaultAccount != "" && accountName == "" {
		accountName = cf.config.General.DefaultAccount
	}
	if cf.newResolver != nil {
		return cf.newResolver(accountName)
	}
	return accountResolver{factory: cf, account: accountName}
}

type accountResolver struct {
	factory *CalendarFactory
	account string
}

func (r accountResolver) ProviderFor(calendarID string) (CalendarProvider, error) {
	cal := r.factory.config.Calendars[calendarID]
	account := r.account
	if cal.Account != "" {
		account = cal.Account
	}
	return r.factory.CreateCalendarProvider(cal.Provider, account, cal.Server)
}

// CreateCalendarProvider creates (or reuses) a specific calendar provider
func (cf *CalendarFactory) CreateCalendarProvider(providerType string, accountName string, serverName string) (CalendarProvider, error) {
	switch strings.ToLower(providerType) {
	case "", "google":
		if accountName == "" {
			return nil, fmt.Errorf("no account for Google calendar provider")
		}
		key := "google-" + accountName
		if p, ok := cf.providers[key]; ok {
			return p, nil
		}
		client, err := cf.client(accountName)
		if err != nil {
			return nil, err
		}
		p, err := NewGoogleCalendarProvider(cf.ctx, client)
		if err != nil {
			return nil, fmt.Errorf("error creating Google calendar provider: %w", err)
		}
		cf.providers[key] = p
		return p, nil

	case "caldav":
		if serverName == "" || serverName == "default" {
			return nil, fmt.Errorf("no server name provided for CalDAV provider")
		}
		server, ok := cf.config.CalDAVs[serverName]
		if !ok {
			return nil, fmt.Errorf("CalDAV server '%s' not found in configuration", serverName)
		}
		key := "caldav-" + serverName
		if p, ok := cf.providers[key]; ok {
			return p, nil
		}
		p, err := NewCalDAVProvider(cf.ctx, server.ServerURL, server.Username, server.Password)
		if err != nil {
			return nil, fmt.Errorf("error connecting to CalDAV server %s: %w", serverName, err)
		}
		cf.providers[key] = p
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

func (cf *CalendarFactory) CreateSheetProvider(accountName, spreadsheetID string) (SheetProvider, error) {
	if cf.newSheet != nil {
		return cf.newSheet(accountName, spreadsheetID)
	}
	client, err := cf.client(accountName)
	if err != nil {
		return nil, err
	}
	return NewGoogleSheetsProvider(cf.ctx, client, spreadsheetID)
}

// Syncer builds a reconciler for one registered sheet.
func (cf *CalendarFactory) Syncer(info SheetInfo) (*Syncer, error) {
	sheet, err := cf.CreateSheetProvider(info.AccountName, info.SpreadsheetID)
	if err != nil {
		return nil, err
	}
	return NewSyncer(sheet, NewCalendarGateway(cf.Resolver(info.AccountName)), syncOptions(cf.config)), nil
}
