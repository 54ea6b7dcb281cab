// Package store persists the nodes seen behind each gateway in SQLite so they can be announced to Home Assistant again
// after a restart, before their next frame arrives.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Node is a persisted node registration.
type Node struct {
	// Gateway is the normalized MAC address of the gateway the node reports through.
	Gateway  string
	NodeID   uint16
	NodeType uint8

	FirstSeen time.Time
	LastSeen  time.Time
}

// Store persists Node records in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at dsn (a path or ":memory:") and runs migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn, err)
	}

	// SQLite allows a single writer, and every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// New wraps an already opened database, running migrations on first use.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS nodes (
			gateway    TEXT    NOT NULL,
			node_id    INTEGER NOT NULL,
			node_type  INTEGER NOT NULL,
			first_seen INTEGER NOT NULL,
			last_seen  INTEGER NOT NULL,
			PRIMARY KEY (gateway, node_id)
		)
	`)
	return err
}

// SaveNode inserts n, or refreshes the node type and last_seen of an existing record. first_seen is kept from the
// original insert.
func (s *Store) SaveNode(ctx context.Context, n Node) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes (gateway, node_id, node_type, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (gateway, node_id) DO UPDATE SET
			node_type = excluded.node_type,
			last_seen = excluded.last_seen
	`, n.Gateway, n.NodeID, n.NodeType, n.FirstSeen.UnixMilli(), n.LastSeen.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: save node %s/%d: %w", n.Gateway, n.NodeID, err)
	}

	return nil
}

// Nodes returns every persisted node ordered by gateway and node id.
func (s *Store) Nodes(ctx context.Context) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT gateway, node_id, node_type, first_seen, last_seen
		FROM nodes
		ORDER BY gateway, node_id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list nodes: %w", err)
	}
	defer rows.Close()

	var result []Node
	for rows.Next() {
		var (
			n                   Node
			firstSeen, lastSeen int64
		)

		if err := rows.Scan(&n.Gateway, &n.NodeID, &n.NodeType, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("store: scan node: %w", err)
		}

		n.FirstSeen, n.LastSeen = time.UnixMilli(firstSeen).UTC(), time.UnixMilli(lastSeen).UTC()
		result = append(result, n)
	}

	return result, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
