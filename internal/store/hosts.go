package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/beevans/integrated-manager-for-lustre/internal/device"
)

// HostRecord describes a stored tree without decoding it.
type HostRecord struct {
	Host      string    `json:"host"`
	Nodes     int       `json:"nodes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Save stores tree as the latest snapshot for host, replacing any previous one.
func (s *Store) Save(ctx context.Context, host string, tree device.Device) error {
	return s.save(ctx, s.conn, host, tree)
}

// SaveAll stores every snapshot in a single transaction.
func (s *Store) SaveAll(ctx context.Context, snapshots []device.Snapshot) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, snap := range snapshots {
		if err := s.save(ctx, tx, snap.Host, snap.Tree); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) save(ctx context.Context, db execer, host string, tree device.Device) error {
	if host == "" {
		return fmt.Errorf("failed to save devices: empty host")
	}
	if tree == nil {
		return fmt.Errorf("failed to save devices for %s: empty tree", host)
	}

	data, err := device.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to encode devices for %s: %w", host, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO host_devices (fqdn, devices, nodes, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fqdn) DO UPDATE SET
			devices = excluded.devices,
			nodes = excluded.nodes,
			updated_at = excluded.updated_at
	`, host, string(data), device.Count(tree), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save devices for %s: %w", host, err)
	}

	return nil
}

// Get returns the stored tree for host, or ErrNotFound.
func (s *Store) Get(ctx context.Context, host string) (device.Device, error) {
	var data string
	err := s.conn.QueryRowContext(ctx, "SELECT devices FROM host_devices WHERE fqdn = ?", host).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("host %s: %w", host, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query devices for %s: %w", host, err)
	}

	tree, err := device.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode devices for %s: %w", host, err)
	}
	return tree, nil
}

// LoadAll returns every stored snapshot ordered by host.
func (s *Store) LoadAll(ctx context.Context) ([]device.Snapshot, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT fqdn, devices FROM host_devices ORDER BY fqdn
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	return s.scanSnapshots(ctx, rows)
}

// LoadAllExcept returns every stored snapshot other than host's, ordered by
// host.
func (s *Store) LoadAllExcept(ctx context.Context, host string) ([]device.Snapshot, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT fqdn, devices FROM host_devices WHERE fqdn != ? ORDER BY fqdn
	`, host)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	return s.scanSnapshots(ctx, rows)
}

// scanSnapshots decodes every row and closes rows. A row that no longer
// decodes is skipped and recorded as a failed event for its host.
func (s *Store) scanSnapshots(ctx context.Context, rows *sql.Rows) ([]device.Snapshot, error) {
	var (
		snapshots []device.Snapshot
		broken    = map[string]error{}
	)
	for rows.Next() {
		var host, data string
		if err := rows.Scan(&host, &data); err != nil {
			rows.Close()
			return nil, err
		}
		tree, err := device.Unmarshal([]byte(data))
		if err != nil {
			broken[host] = err
			continue
		}
		snapshots = append(snapshots, device.Snapshot{Host: host, Tree: tree})
	}
	err := rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// Events go through the same single connection, so they are written
	// only after rows is closed.
	for host, decodeErr := range broken {
		s.log.Error(decodeErr, "Skipping undecodable devices", "host", host)
		if err := s.RecordEvent(ctx, host, EventFailed, map[string]any{"error": decodeErr.Error()}); err != nil {
			s.log.Error(err, "Failed to record event", "host", host)
		}
	}
	return snapshots, nil
}

// List returns a summary of every stored host.
func (s *Store) List(ctx context.Context) ([]*HostRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT fqdn, nodes, updated_at FROM host_devices ORDER BY fqdn
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query hosts: %w", err)
	}
	defer rows.Close()

	var hosts []*HostRecord
	for rows.Next() {
		h := &HostRecord{}
		if err := rows.Scan(&h.Host, &h.Nodes, &h.UpdatedAt); err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// Delete removes the stored tree for host, or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, host string) error {
	result, err := s.conn.ExecContext(ctx, "DELETE FROM host_devices WHERE fqdn = ?", host)
	if err != nil {
		return fmt.Errorf("failed to delete devices for %s: %w", host, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("host %s: %w", host, ErrNotFound)
	}
	return nil
}
