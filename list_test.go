package main

import (
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestAlignColumnsUsesDisplayWidth(t *testing.T) {
	lines := alignColumns([][]string{
		{"SHEET", "KIND"},
		{"予定表", "schedule"},
		{"log", "record"},
	})
	if len(lines) != 3 {
		t.Fatalf("got %d lines", len(lines))
	}
	want := []string{
		"SHEET   KIND",
		"予定表  schedule",
		"log     record",
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if runewidth.StringWidth(lines[1][:len("予定表")]) != 6 {
		t.Error("CJK cells should count double width")
	}
}
