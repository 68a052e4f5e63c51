package main

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type GoogleSheetsProvider struct {
	service       *sheets.Service
	ctx           context.Context
	spreadsheetID string
}

func NewGoogleSheetsProvider(ctx context.Context, client *http.Client, spreadsheetID string) (*GoogleSheetsProvider, error) {
	service, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &GoogleSheetsProvider{
		service:       service,
		ctx:           ctx,
		spreadsheetID: spreadsheetID,
	}, nil
}

func (g *GoogleSheetsProvider) SpreadsheetID() string {
	return g.spreadsheetID
}

func (g *GoogleSheetsProvider) HasSheet(sheet string) (bool, error) {
	spreadsheet, err := g.service.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets.properties.title").
		Context(g.ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil && s.Properties.Title == sheet {
			return true, nil
		}
	}
	return false, nil
}

func (g *GoogleSheetsProvider) ReadRange(sheet string, row, column, numRows, numColumns int) ([][]string, error) {
	if numRows <= 0 || numColumns <= 0 {
		return nil, nil
	}
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, a1Range(sheet, row, column, numRows, numColumns)).
		ValueRenderOption("FORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(g.ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range: %w", err)
	}
	return padGrid(stringGrid(resp.Values), numRows, numColumns), nil
}

func (g *GoogleSheetsProvider) LastRow(sheet string) (int, error) {
	// The API trims trailing empty rows, so the row count of the whole
	// sheet's values is the last row with content.
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, quoteSheet(sheet)).
		MajorDimension("ROWS").
		Context(g.ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet: %w", err)
	}
	return len(resp.Values), nil
}

func (g *GoogleSheetsProvider) WriteCells(sheet string, cells []Cell) error {
	for _, req := range valueUpdates(sheet, cells) {
		_, err := g.service.Spreadsheets.Values.BatchUpdate(g.spreadsheetID, req).Context(g.ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to write cells: %w", err)
		}
	}
	return nil
}

// valueUpdates splits cells into one batch per value input option. Free
// text goes in RAW so it never turns into a formula or a date.
func valueUpdates(sheet string, cells []Cell) []*sheets.BatchUpdateValuesRequest {
	var entered, raw []*sheets.ValueRange
	for _, c := range cells {
		vr := &sheets.ValueRange{
			Range:  a1Range(sheet, c.Row, c.Column, 1, 1),
			Values: [][]interface{}{{c.Value}},
		}
		if c.Raw {
			raw = append(raw, vr)
		} else {
			entered = append(entered, vr)
		}
	}

	var reqs []*sheets.BatchUpdateValuesRequest
	if len(entered) > 0 {
		reqs = append(reqs, &sheets.BatchUpdateValuesRequest{ValueInputOption: "USER_ENTERED", Data: entered})
	}
	if len(raw) > 0 {
		reqs = append(reqs, &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: raw})
	}
	return reqs
}

func stringGrid(values [][]interface{}) [][]string {
	grid := make([][]string, len(values))
	for i, row := range values {
		grid[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				grid[i][j] = fmt.Sprint(v)
			}
		}
	}
	return grid
}
