package main

import (
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	config, err := parseConfig([]byte(`
[general]
client_id = "id"
client_secret = "secret"
`))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	g := config.General
	if g.SettingsSheet != "setting" || g.WindowMonthsBefore != 1 || g.WindowMonthsAfter != 2 {
		t.Errorf("general = %+v", g)
	}
	if config.Serve.Listen != "127.0.0.1:8080" || config.Serve.Schedule != "*/15 * * * *" {
		t.Errorf("serve = %+v", config.Serve)
	}
}

func TestParseConfigExplicitZeroWindow(t *testing.T) {
	config, err := parseConfig([]byte(`
[general]
window_months_before = 0
window_months_after = 6
timezone = "Asia/Tokyo"
`))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if config.General.WindowMonthsBefore != 0 || config.General.WindowMonthsAfter != 6 {
		t.Errorf("window = %d/%d", config.General.WindowMonthsBefore, config.General.WindowMonthsAfter)
	}
	opts := syncOptions(config)
	if opts.Location.String() != "Asia/Tokyo" {
		t.Errorf("Location = %v", opts.Location)
	}
}

func TestParseConfigCalendars(t *testing.T) {
	config, err := parseConfig([]byte(`
[caldav_servers.home]
server_url = "https://dav.example.com/"
username = "me"

[calendars."https://dav.example.com/calendars/me/work/"]
provider = "caldav"
server = "home"

[calendars."team@example.com"]
account = "work"
`))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if config.Calendars["team@example.com"].Account != "work" {
		t.Errorf("calendars = %+v", config.Calendars)
	}
	if config.CalDAVs["home"].Username != "me" {
		t.Errorf("caldav servers = %+v", config.CalDAVs)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := map[string]string{
		"bad timezone": `
[general]
timezone = "Mars/Olympus"`,
		"unknown server": `
[calendars."x"]
provider = "caldav"
server = "missing"`,
		"unknown provider": `
[calendars."x"]
provider = "outlook"`,
		"bad toml": `[general`,
	}
	wants := map[string]string{
		"bad timezone":     "invalid timezone",
		"unknown server":   "not found in configuration",
		"unknown provider": "unsupported provider type",
		"bad toml":         "",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseConfig([]byte(data))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), wants[name]) {
				t.Errorf("error %q does not mention %q", err, wants[name])
			}
		})
	}
}
