package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHistoryQuery_Matches(t *testing.T) {
	event := ScanEvent{
		ID:        "0190a6f2-0000-7000-8000-000000000001",
		ProductID: "8901234567890",
		Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name     string
		query    HistoryQuery
		expected bool
	}{
		{
			name:     "Empty query matches all",
			query:    HistoryQuery{},
			expected: true,
		},
		{
			name:     "Product filter matches",
			query:    HistoryQuery{ProductIDs: []string{"8901111222333", "8901234567890"}},
			expected: true,
		},
		{
			name:     "Product filter doesn't match",
			query:    HistoryQuery{ProductIDs: []string{"8901111222333"}},
			expected: false,
		},
		{
			name:     "Since filter matches",
			query:    HistoryQuery{Since: time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)},
			expected: true,
		},
		{
			name:     "Since filter doesn't match",
			query:    HistoryQuery{Since: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)},
			expected: false,
		},
		{
			name:     "Until filter doesn't match",
			query:    HistoryQuery{Until: time.Date(2024, 1, 15, 9, 59, 0, 0, time.UTC)},
			expected: false,
		},
		{
			name: "Range is inclusive",
			query: HistoryQuery{
				Since: event.Timestamp,
				Until: event.Timestamp,
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(event); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestHistoryQuery_Page(t *testing.T) {
	events := make([]ScanEvent, 5)
	for i := range events {
		events[i].ProductID = string(rune('a' + i))
	}

	tests := []struct {
		name   string
		query  HistoryQuery
		first  string
		length int
	}{
		{"No paging", HistoryQuery{}, "a", 5},
		{"Limit", HistoryQuery{Limit: 2}, "a", 2},
		{"Offset", HistoryQuery{Offset: 3}, "d", 2},
		{"Offset and limit", HistoryQuery{Offset: 1, Limit: 3}, "b", 3},
		{"Offset past end", HistoryQuery{Offset: 9}, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.query.Page(events)
			if len(got) != tt.length {
				t.Fatalf("Expected %d events, got %d", tt.length, len(got))
			}
			if tt.length > 0 && got[0].ProductID != tt.first {
				t.Errorf("Expected first %q, got %q", tt.first, got[0].ProductID)
			}
		})
	}
}

func TestScanEvent_JSONOmitsMissingSnapshot(t *testing.T) {
	event := ScanEvent{ID: "x", ProductID: "y", Timestamp: time.Unix(0, 0).UTC()}
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["product"]; ok {
		t.Errorf("product key should be omitted when no snapshot: %s", data)
	}
}

func TestProduct_Snapshot(t *testing.T) {
	p := Product{ID: "1", Name: "Bottle", Brand: "AquaPure", Image: "img", Score: 25, Grade: GradeE}
	s := p.Snapshot()
	if s.Name != "Bottle" || s.Brand != "AquaPure" || s.Image != "img" || s.Score != 25 || s.Grade != GradeE {
		t.Errorf("unexpected snapshot %+v", s)
	}
}

func TestGrade_Valid(t *testing.T) {
	for _, g := range []Grade{GradeA, GradeB, GradeC, GradeD, GradeE} {
		if !g.Valid() {
			t.Errorf("%s should be valid", g)
		}
	}
	for _, g := range []Grade{"", "F", "a"} {
		if g.Valid() {
			t.Errorf("%q should be invalid", g)
		}
	}
}
