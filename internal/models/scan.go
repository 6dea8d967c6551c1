package models

import "time"

// ScanEvent records one resolution appended to the ledger
type ScanEvent struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	Timestamp time.Time        `json:"timestamp"`
	Product   *ProductSnapshot `json:"product,omitempty"`
}

// HistoryQuery represents query parameters for filtering scan history
type HistoryQuery struct {
	ProductIDs []string  `json:"product_ids"`
	Since      time.Time `json:"since"`
	Until      time.Time `json:"until"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}

// Matches checks if an event matches the query criteria.
// Limit and Offset are applied by the caller.
func (q HistoryQuery) Matches(event ScanEvent) bool {
	if len(q.ProductIDs) > 0 && !contains(q.ProductIDs, event.ProductID) {
		return false
	}
	if !q.Since.IsZero() && event.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && event.Timestamp.After(q.Until) {
		return false
	}
	return true
}

// Page applies Offset and Limit to an already filtered slice
func (q HistoryQuery) Page(events []ScanEvent) []ScanEvent {
	if q.Offset > 0 {
		if q.Offset >= len(events) {
			return []ScanEvent{}
		}
		events = events[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(events) {
		events = events[:q.Limit]
	}
	return events
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
