package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func TestValueUpdates(t *testing.T) {
	reqs := valueUpdates("plan", []Cell{
		{Row: 2, Column: 1, Value: "=IMPORTXML(\"x\")", Raw: true},
		{Row: 2, Column: 2, Value: 2024},
		{Row: 2, Column: 5, Value: "09:00"},
		{Row: 2, Column: 14, Value: "evt-1", Raw: true},
	})
	if len(reqs) != 2 {
		t.Fatalf("got %d batches, want 2", len(reqs))
	}
	entered, raw := reqs[0], reqs[1]
	if entered.ValueInputOption != "USER_ENTERED" || len(entered.Data) != 2 {
		t.Errorf("entered = %s with %d ranges", entered.ValueInputOption, len(entered.Data))
	}
	if raw.ValueInputOption != "RAW" || len(raw.Data) != 2 {
		t.Fatalf("raw = %s with %d ranges", raw.ValueInputOption, len(raw.Data))
	}
	if raw.Data[0].Range != "'plan'!A2" || raw.Data[1].Range != "'plan'!N2" {
		t.Errorf("raw ranges = %s, %s", raw.Data[0].Range, raw.Data[1].Range)
	}

	if reqs := valueUpdates("plan", []Cell{{Row: 1, Column: 1, Value: "x", Raw: true}}); len(reqs) != 1 || reqs[0].ValueInputOption != "RAW" {
		t.Errorf("text only = %+v", reqs)
	}
	if reqs := valueUpdates("plan", nil); len(reqs) != 0 {
		t.Errorf("no cells = %+v", reqs)
	}
}

func TestGoogleSheetsWriteCells(t *testing.T) {
	var mu sync.Mutex
	var got []sheets.BatchUpdateValuesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/values:batchUpdate") {
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
			return
		}
		var req sheets.BatchUpdateValuesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		got = append(got, req)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	service, err := sheets.NewService(ctx, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	g := &GoogleSheetsProvider{service: service, ctx: ctx, spreadsheetID: testSpreadsheet}

	err = g.WriteCells(testSheet, []Cell{
		{Row: 3, Column: 1, Value: "2024-06-01", Raw: true},
		{Row: 3, Column: 2, Value: 2024},
	})
	if err != nil {
		t.Fatalf("WriteCells: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d requests, want 2", len(got))
	}
	if got[0].ValueInputOption != "USER_ENTERED" || got[1].ValueInputOption != "RAW" {
		t.Errorf("options = %s, %s", got[0].ValueInputOption, got[1].ValueInputOption)
	}
	if v := got[1].Data[0].Values[0][0]; v != "2024-06-01" {
		t.Errorf("raw value = %v", v)
	}
}
