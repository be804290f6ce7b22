package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	EventUploaded   = "uploaded"
	EventReconciled = "reconciled"
	EventFailed     = "failed"
	EventDeleted    = "deleted"
)

// Event is an entry in a host's history.
type Event struct {
	ID        int64     `json:"id"`
	Host      string    `json:"host"`
	EventType string    `json:"event_type"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RecordEvent appends an event to host's history.
func (s *Store) RecordEvent(ctx context.Context, host, eventType string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		b, err := json.Marshal(details)
		if err == nil {
			detailsJSON = sql.NullString{String: string(b), Valid: true}
		}
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO host_events (fqdn, event_type, details, timestamp)
		VALUES (?, ?, ?, ?)
	`, host, eventType, detailsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return nil
}

// HostEvents returns the most recent events for host, newest first.
func (s *Store) HostEvents(ctx context.Context, host string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, fqdn, event_type, details, timestamp
		FROM host_events
		WHERE fqdn = ?
		ORDER BY id DESC
		LIMIT ?
	`, host, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query host events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		var event Event
		var details sql.NullString

		err := rows.Scan(&event.ID, &event.Host, &event.EventType, &details, &event.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Details = details.String

		events = append(events, &event)
	}

	return events, rows.Err()
}
