package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row validation failures. A row failing any of them is skipped whole.
var (
	ErrEmptyTitle   = errors.New("empty title")
	ErrNoCalendar   = errors.New("no calendar")
	ErrInvalidTime  = errors.New("invalid time")
	ErrReversedSpan = errors.New("end before start")
)

// Metadata tags stored on every pushed event so the event can find its way
// back to its row.
const (
	tagSpreadsheetID = "spreadSheetId"
	tagSheetName     = "sheetName"
	tagRow           = "row"
	tagIsRecord      = "isRecord"
)

// Record is the spreadsheet-row projection of an event.
type Record struct {
	Kind     RowKind
	Event    Event
	Key      EventKey
	Row      int // 0 when the row is unknown
	Metadata map[string]string
}

func (r Record) HasRow() bool {
	return r.Row > 0
}

type rowSkip struct {
	Row int
	Err error
}

func rowTags(spreadsheetID, sheetName string, row int, kind RowKind) map[string]string {
	return map[string]string{
		tagSpreadsheetID: spreadsheetID,
		tagSheetName:     sheetName,
		tagRow:           strconv.Itoa(row),
		tagIsRecord:      strconv.FormatBool(kind == RecordRow),
	}
}

// rowReader reads fields of one row returned by a range read that starts at
// the schema's front column.
type rowReader struct {
	cells  []string
	front  int
	layout *Layout
}

func (r rowReader) get(f Field) string {
	c, ok := r.layout.Column(f)
	if !ok {
		return ""
	}
	i := c - r.front
	if i < 0 || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

// getRecords turns rows read from firstRow onwards into candidate records,
// applying the validity gates in order.
func getRecords(rows [][]string, firstRow int, schema *Schema, layout *Layout, loc *time.Location) ([]Record, []rowSkip) {
	var records []Record
	var skips []rowSkip
	for i, cells := range rows {
		row := firstRow + i
		r := rowReader{cells: cells, front: schema.ColumnFront, layout: layout}

		rec, err := toRowRecord(r, schema, loc)
		if err != nil {
			skips = append(skips, rowSkip{Row: row, Err: err})
			continue
		}
		rec.Row = row
		records = append(records, rec)
	}
	return records, skips
}

func toRowRecord(r rowReader, schema *Schema, loc *time.Location) (Record, error) {
	title := r.get(FieldTitle)
	if title == "" {
		return Record{}, ErrEmptyTitle
	}

	calendarID := r.get(FieldCalendarID)
	if calendarID == "" && r.layout.Has(FieldTag) {
		calendarID = schema.ToCalendarID(r.get(FieldTag))
	}
	if calendarID == "" {
		return Record{}, ErrNoCalendar
	}

	start, err := readDateTime(r, FieldStartYear, FieldStartMonth, FieldStartDay, FieldStartTime, FieldStartHour, FieldStartMinute, loc)
	if err != nil {
		return Record{}, fmt.Errorf("start: %w", err)
	}
	end, err := readDateTime(r, FieldEndYear, FieldEndMonth, FieldEndDay, FieldEndTime, FieldEndHour, FieldEndMinute, loc)
	if err != nil {
		return Record{}, fmt.Errorf("end: %w", err)
	}
	span := NewTimeSpan(start, end)
	if !span.Valid() {
		return Record{}, ErrReversedSpan
	}

	description := r.get(FieldDescription)
	if !r.layout.Has(FieldDescription) {
		description = composeDescription(descriptionParts{
			Expectation:  r.get(FieldExpectation),
			ActualAction: r.get(FieldActualAction),
			Emotion:      r.get(FieldEmotion),
			Remarks:      r.get(FieldRemarks),
		})
	}

	return Record{
		Kind:  r.layout.Kind,
		Event: NewEvent(title, span, description),
		Key:   EventKey{CalendarID: calendarID, EventID: r.get(FieldEventID)},
	}, nil
}

func readDateTime(r rowReader, year, month, day, clock, hour, minute Field, loc *time.Location) (time.Time, error) {
	y, err := atoiField(r, year)
	if err != nil {
		return time.Time{}, err
	}
	m, err := atoiField(r, month)
	if err != nil {
		return time.Time{}, err
	}
	d, err := atoiField(r, day)
	if err != nil {
		return time.Time{}, err
	}

	var h, mi int
	if r.layout.Has(clock) {
		h, mi, err = parseClock(r.get(clock))
	} else {
		h, err = atoiField(r, hour)
		if err == nil {
			mi, err = atoiField(r, minute)
		}
	}
	if err != nil {
		return time.Time{}, err
	}
	return dateIn(y, m, d, h, mi, loc)
}

// dateIn builds a timestamp and rejects values time.Date would normalise,
// such as February 30th.
func dateIn(y, m, d, h, mi int, loc *time.Location) (time.Time, error) {
	if m < 1 || m > 12 || h < 0 || h > 23 || mi < 0 || mi > 59 {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d", ErrInvalidTime, y, m, d, h, mi)
	}
	t := time.Date(y, time.Month(m), d, h, mi, 0, 0, loc)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidTime, y, m, d)
	}
	return t, nil
}

func atoiField(r rowReader, f Field) (int, error) {
	raw := r.get(f)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidTime, f, raw)
	}
	return n, nil
}

// parseClock accepts "H:mm", "HH:mm" and "HH:mm:ss".
func parseClock(raw string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrInvalidTime, raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrInvalidTime, raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: clock %q", ErrInvalidTime, raw)
	}
	return h, m, nil
}

func formatClock(t time.Time) string {
	return t.Format("15:04")
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%d:%02d", sign, minutes/60, minutes%60)
}

type descriptionParts struct {
	Expectation  string
	ActualAction string
	Emotion      string
	Remarks      string
}

func (p descriptionParts) empty() bool {
	return p.Expectation == "" && p.ActualAction == "" && p.Emotion == "" && p.Remarks == ""
}

var descriptionLabels = []string{"expectation", "action", "emotion", "remarks"}

func (p *descriptionParts) slot(label string) *string {
	switch label {
	case "expectation":
		return &p.Expectation
	case "action":
		return &p.ActualAction
	case "emotion":
		return &p.Emotion
	case "remarks":
		return &p.Remarks
	}
	return nil
}

// composeDescription renders the non-empty parts as "label: value" lines.
// Continuation lines that would read as a label, or that start with a
// backslash, are prefixed with a backslash.
func composeDescription(p descriptionParts) string {
	var lines []string
	for _, label := range descriptionLabels {
		v := *p.slot(label)
		if v == "" {
			continue
		}
		for i, line := range strings.Split(v, "\n") {
			switch {
			case i == 0:
				line = label + ": " + line
			case strings.HasPrefix(line, `\`) || isLabelLine(line):
				line = `\` + line
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func isLabelLine(line string) bool {
	label, _, ok := strings.Cut(line, ": ")
	return ok && (&descriptionParts{}).slot(label) != nil
}

// decomposeDescription reverses composeDescription. Text before the first
// label is kept as remarks. A leading backslash is dropped from any line,
// so free text lines starting with one lose it.
func decomposeDescription(description string) descriptionParts {
	var p descriptionParts
	var current *string
	var loose []string
	for _, line := range strings.Split(description, "\n") {
		if escaped, ok := strings.CutPrefix(line, `\`); ok {
			line = escaped
		} else if label, value, ok := strings.Cut(line, ": "); ok {
			if s := p.slot(label); s != nil {
				current = s
				*current = value
				continue
			}
		}
		if current == nil {
			loose = append(loose, line)
			continue
		}
		*current += "\n" + line
	}
	if text := strings.TrimSpace(strings.Join(loose, "\n")); text != "" {
		if p.Remarks != "" {
			text += "\n" + p.Remarks
		}
		p.Remarks = text
	}
	return p
}

// recordCells lays out a record on its row. existing holds the current row
// values starting at the schema's front column; description cells that
// already hold text are left alone.
func recordCells(rec Record, schema *Schema, layout *Layout, loc *time.Location, existing []string) []Cell {
	var cells []Cell
	put := func(f Field, v interface{}) {
		if c, ok := layout.Column(f); ok {
			cells = append(cells, Cell{Row: rec.Row, Column: c, Value: v})
		}
	}
	putText := func(f Field, v string) {
		if c, ok := layout.Column(f); ok {
			cells = append(cells, Cell{Row: rec.Row, Column: c, Value: v, Raw: true})
		}
	}
	current := rowReader{cells: existing, front: schema.ColumnFront, layout: layout}

	start, end := rec.Event.Start().In(loc), rec.Event.End().In(loc)
	putText(FieldTitle, rec.Event.Title())
	putDateTime := func(t time.Time, year, month, day, clock, hour, minute Field) {
		put(year, t.Year())
		put(month, int(t.Month()))
		put(day, t.Day())
		put(clock, formatClock(t))
		put(hour, t.Hour())
		put(minute, t.Minute())
	}
	putDateTime(start, FieldStartYear, FieldStartMonth, FieldStartDay, FieldStartTime, FieldStartHour, FieldStartMinute)
	putDateTime(end, FieldEndYear, FieldEndMonth, FieldEndDay, FieldEndTime, FieldEndHour, FieldEndMinute)
	put(FieldDuration, formatDuration(rec.Event.Span().Duration()))
	putText(FieldCalendarID, rec.Key.CalendarID)
	if tag := schema.ToTag(rec.Key.CalendarID); tag != "" {
		putText(FieldTag, tag)
	}
	putText(FieldEventID, rec.Key.EventID)

	if layout.Has(FieldDescription) {
		if current.get(FieldDescription) == "" {
			putText(FieldDescription, rec.Event.Description())
		}
		return cells
	}

	manual := descriptionParts{
		Expectation:  current.get(FieldExpectation),
		ActualAction: current.get(FieldActualAction),
		Emotion:      current.get(FieldEmotion),
		Remarks:      current.get(FieldRemarks),
	}
	if !manual.empty() {
		return cells
	}
	parts := decomposeDescription(rec.Event.Description())
	if parts.Expectation != "" {
		putText(FieldExpectation, parts.Expectation)
	}
	if parts.ActualAction != "" {
		putText(FieldActualAction, parts.ActualAction)
	}
	if parts.Emotion != "" {
		putText(FieldEmotion, parts.Emotion)
	}
	if parts.Remarks != "" {
		putText(FieldRemarks, parts.Remarks)
	}
	return cells
}
