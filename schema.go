package main

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var ErrSettingsNotFound = errors.New("settings sheet not found")

// RowKind selects which column layout a sheet's rows follow.
type RowKind int

const (
	ScheduleRow RowKind = iota
	RecordRow
)

func (k RowKind) String() string {
	if k == RecordRow {
		return "record"
	}
	return "schedule"
}

func (k RowKind) prefix() string {
	return k.String() + "."
}

func parseRowKind(s string) (RowKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "schedule", "":
		return ScheduleRow, nil
	case "record":
		return RecordRow, nil
	}
	return ScheduleRow, fmt.Errorf("unknown row kind %q (must be 'schedule' or 'record')", s)
}

// Field names a semantic column of a row layout.
type Field string

const (
	FieldTag          Field = "tag"
	FieldTitle        Field = "title"
	FieldDescription  Field = "description"
	FieldExpectation  Field = "expectation"
	FieldActualAction Field = "actual_action"
	FieldEmotion      Field = "emotion"
	FieldRemarks      Field = "remarks"
	FieldEventID      Field = "event_id"
	FieldCalendarID   Field = "calendar_id"
	FieldDuration     Field = "duration"

	FieldStartYear   Field = "start.year"
	FieldStartMonth  Field = "start.month"
	FieldStartDay    Field = "start.day"
	FieldStartTime   Field = "start.time"
	FieldStartHour   Field = "start.hour"
	FieldStartMinute Field = "start.minute"

	FieldEndYear   Field = "end.year"
	FieldEndMonth  Field = "end.month"
	FieldEndDay    Field = "end.day"
	FieldEndTime   Field = "end.time"
	FieldEndHour   Field = "end.hour"
	FieldEndMinute Field = "end.minute"
)

type settingKey struct {
	name     string
	required bool
}

// settingKeys is listed in the order of the legacy positional layout
// (B1 downwards), so an unlabeled value is still resolved by its row.
var settingKeys = []settingKey{
	{"sync", true},
	{"emotion.row", false},
	{"emotion.column", false},
	{"emotion.length", false},
	{"tag.row", true},
	{"tag.column", true},
	{"tag.length", true},
	{"first_line", true},
	{"column_front", true},
	{"column_end", true},
	{"record.tag", false},
	{"record.start.year", false},
	{"record.start.month", false},
	{"record.start.day", false},
	{"record.start.time", false},
	{"record.end.year", false},
	{"record.end.month", false},
	{"record.end.day", false},
	{"record.end.time", false},
	{"record.title", false},
	{"record.expectation", false},
	{"record.actual_action", false},
	{"record.emotion", false},
	{"record.remarks", false},
	{"record.event_id", false},
	{"schedule.start.year", false},
	{"schedule.start.month", false},
	{"schedule.start.day", false},
	{"schedule.start.hour", false},
	{"schedule.start.minute", false},
	{"schedule.end.year", false},
	{"schedule.end.month", false},
	{"schedule.end.day", false},
	{"schedule.end.hour", false},
	{"schedule.end.minute", false},
	{"schedule.title", false},
	{"schedule.description", false},
	{"schedule.event_id", false},
	{"schedule.calendar_id", false},
	{"record.duration", false},
}

// settingsRows bounds how far down the settings sheet labeled keys are looked for.
const settingsRows = 64

func knownSettingKey(name string) bool {
	for _, k := range settingKeys {
		if k.name == name {
			return true
		}
	}
	return false
}

// Layout maps the fields of one row kind to 1-based sheet columns.
type Layout struct {
	Kind    RowKind
	columns map[Field]int
}

func (l *Layout) Column(f Field) (int, bool) {
	c, ok := l.columns[f]
	return c, ok
}

func (l *Layout) Has(f Field) bool {
	_, ok := l.columns[f]
	return ok
}

// WritingAreaLength is the width spanned by the layout's columns.
func (l *Layout) WritingAreaLength() int {
	if len(l.columns) == 0 {
		return 0
	}
	lo, hi := math.MaxInt, math.MinInt
	for _, c := range l.columns {
		lo = min(lo, c)
		hi = max(hi, c)
	}
	return hi - lo + 1
}

func (l *Layout) validate(front, end int) error {
	var errs []error
	for _, f := range []Field{FieldTitle, FieldEventID,
		FieldStartYear, FieldStartMonth, FieldStartDay,
		FieldEndYear, FieldEndMonth, FieldEndDay} {
		if !l.Has(f) {
			errs = append(errs, fmt.Errorf("%s layout: missing %s", l.Kind, f))
		}
	}
	if !l.Has(FieldStartTime) && !(l.Has(FieldStartHour) && l.Has(FieldStartMinute)) {
		errs = append(errs, fmt.Errorf("%s layout: missing start.time or start.hour/start.minute", l.Kind))
	}
	if !l.Has(FieldEndTime) && !(l.Has(FieldEndHour) && l.Has(FieldEndMinute)) {
		errs = append(errs, fmt.Errorf("%s layout: missing end.time or end.hour/end.minute", l.Kind))
	}
	if !l.Has(FieldCalendarID) && !l.Has(FieldTag) {
		errs = append(errs, fmt.Errorf("%s layout: missing calendar_id or tag", l.Kind))
	}

	fields := make([]string, 0, len(l.columns))
	for f := range l.columns {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	for _, f := range fields {
		c := l.columns[Field(f)]
		if c < front || c > end {
			errs = append(errs, fmt.Errorf("%s layout: %s column %d outside %d..%d", l.Kind, f, c, front, end))
		}
	}
	return errors.Join(errs...)
}

type calendarTag struct {
	Tag        string
	CalendarID string
}

// Schema is the resolved settings of one workbook. It is read once per run
// and never modified.
type Schema struct {
	SyncEnabled bool
	FirstLine   int
	ColumnFront int
	ColumnEnd   int
	EmotionList []string
	TagList     []string

	tagging []calendarTag
	layouts map[RowKind]*Layout
}

func (s *Schema) Layout(kind RowKind) (*Layout, bool) {
	l, ok := s.layouts[kind]
	return l, ok
}

// RecordLength is the number of columns read per row.
func (s *Schema) RecordLength() int {
	return s.ColumnEnd - s.ColumnFront + 1
}

// ToTag returns the tag mapped to calendarID, or "" when there is none.
func (s *Schema) ToTag(calendarID string) string {
	for _, t := range s.tagging {
		if t.CalendarID == calendarID {
			return t.Tag
		}
	}
	return ""
}

func (s *Schema) ToCalendarID(tag string) string {
	for _, t := range s.tagging {
		if t.Tag == tag {
			return t.CalendarID
		}
	}
	return ""
}

// LoadSchema reads and validates the settings sheet of a workbook.
func LoadSchema(sp SheetProvider, settingsSheet string) (*Schema, error) {
	found, err := sp.HasSheet(settingsSheet)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSettingsNotFound, settingsSheet)
	}

	rows, err := sp.ReadRange(settingsSheet, 1, 1, settingsRows, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	values, err := parseSettings(rows)
	if err != nil {
		return nil, err
	}
	schema, err := buildSchema(values)
	if err != nil {
		return nil, err
	}

	tags, err := sp.ReadRange(settingsSheet, values["tag.row"], values["tag.column"], values["tag.length"], 2)
	if err != nil {
		return nil, fmt.Errorf("failed to read tag list: %w", err)
	}
	for _, row := range tags {
		tag, calendarID := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if tag == "" {
			continue
		}
		schema.TagList = append(schema.TagList, tag)
		if calendarID != "" {
			schema.tagging = append(schema.tagging, calendarTag{Tag: tag, CalendarID: calendarID})
		}
	}

	if values["emotion.row"] > 0 && values["emotion.column"] > 0 && values["emotion.length"] > 0 {
		emotions, err := sp.ReadRange(settingsSheet, values["emotion.row"], values["emotion.column"], values["emotion.length"], 1)
		if err != nil {
			return nil, fmt.Errorf("failed to read emotion list: %w", err)
		}
		for _, row := range emotions {
			if e := strings.TrimSpace(row[0]); e != "" {
				schema.EmotionList = append(schema.EmotionList, e)
			}
		}
	}

	return schema, nil
}

// parseSettings resolves label/value rows into named integers. Labeled rows
// win over positional ones.
func parseSettings(rows [][]string) (map[string]int, error) {
	values := make(map[string]int)
	var errs []error

	set := func(key, raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		n, err := parseSettingValue(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("setting %s: %w", key, err))
			return
		}
		values[key] = n
	}

	labeled := make(map[string]bool)
	for _, row := range rows {
		if len(row) >= 2 && knownSettingKey(strings.TrimSpace(row[0])) {
			labeled[strings.TrimSpace(row[0])] = true
		}
	}
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		label := strings.TrimSpace(row[0])
		switch {
		case knownSettingKey(label):
			set(label, row[1])
		case i < len(settingKeys) && !labeled[settingKeys[i].name]:
			set(settingKeys[i].name, row[1])
		}
	}
	return values, errors.Join(errs...)
}

func parseSettingValue(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	return int(f), nil
}

func buildSchema(values map[string]int) (*Schema, error) {
	var errs []error
	for _, k := range settingKeys {
		if !k.required {
			continue
		}
		v, ok := values[k.name]
		if !ok {
			errs = append(errs, fmt.Errorf("missing setting %s", k.name))
			continue
		}
		if k.name != "sync" && v <= 0 {
			errs = append(errs, fmt.Errorf("setting %s must be positive, got %d", k.name, v))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	schema := &Schema{
		SyncEnabled: values["sync"] == 1,
		FirstLine:   values["first_line"],
		ColumnFront: values["column_front"],
		ColumnEnd:   values["column_end"],
		layouts:     make(map[RowKind]*Layout),
	}
	if schema.ColumnEnd < schema.ColumnFront {
		return nil, fmt.Errorf("column_end %d is before column_front %d", schema.ColumnEnd, schema.ColumnFront)
	}

	for _, kind := range []RowKind{ScheduleRow, RecordRow} {
		columns := make(map[Field]int)
		for name, v := range values {
			// A zero column marks the field as unused.
			if strings.HasPrefix(name, kind.prefix()) && v > 0 {
				columns[Field(strings.TrimPrefix(name, kind.prefix()))] = v
			}
		}
		if len(columns) == 0 {
			continue
		}
		layout := &Layout{Kind: kind, columns: columns}
		if err := layout.validate(schema.ColumnFront, schema.ColumnEnd); err != nil {
			errs = append(errs, err)
			continue
		}
		schema.layouts[kind] = layout
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if len(schema.layouts) == 0 {
		return nil, errors.New("settings define neither a record nor a schedule layout")
	}
	return schema, nil
}
