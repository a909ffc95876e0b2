// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package subdomains

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/devcode1981/stacks-blockchain/lib/sqlitepool"
)

// ErrNotFound is returned for subdomains that do not exist.
var ErrNotFound = errors.New("subdomains: not found")

const storeSchema = `
CREATE TABLE IF NOT EXISTS subdomains (
    fqn            TEXT PRIMARY KEY,
    domain         TEXT NOT NULL,
    owner          BLOB NOT NULL,
    seqn           INTEGER NOT NULL,
    zonefile       BLOB NOT NULL,
    updated_height INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS subdomains_by_domain ON subdomains(domain, fqn);

CREATE TABLE IF NOT EXISTS scanned_zonefiles (
    idx            INTEGER PRIMARY KEY,
    zonefile_hash  TEXT NOT NULL,
    domain         TEXT NOT NULL,
    scanned_height INTEGER NOT NULL
);
`

// Subdomain is the current state of one subdomain.
type Subdomain struct {
	FQN           string            `json:"fqn" cbor:"fqn"`
	Domain        string            `json:"domain" cbor:"domain"`
	Owner         ed25519.PublicKey `json:"owner" cbor:"owner"`
	Seqn          uint64            `json:"seqn" cbor:"seqn"`
	Zonefile      []byte            `json:"zonefile" cbor:"zonefile"`
	UpdatedHeight uint64            `json:"updated_height" cbor:"updated_height"`
}

// Store is the subdomain index.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// OpenStore opens (creating if necessary) the subdomain index at path.
func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			if err := sqlitex.ExecuteScript(conn, storeSchema, nil); err != nil {
				return fmt.Errorf("subdomains: initializing schema: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("subdomains: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the store.
func (s *Store) Close() error { return s.pool.Close() }

// Apply folds one record into the index, enforcing the ownership
// chain: sequence 0 creates a subdomain (self-signed, name must be
// free), and sequence n must follow n-1 and carry a signature from the
// owner as of n-1.
func (s *Store) Apply(ctx context.Context, record *Record, height uint64) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	existing, err := getSubdomain(conn, record.FQN)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if existing == nil {
		if record.Seqn != 0 {
			return fmt.Errorf("subdomains: %s does not exist; first record must have seqn 0, got %d",
				record.FQN, record.Seqn)
		}
		if err := record.Verify(record.Owner); err != nil {
			return err
		}
	} else {
		if record.Seqn != existing.Seqn+1 {
			return fmt.Errorf("subdomains: %s is at seqn %d; record has seqn %d",
				record.FQN, existing.Seqn, record.Seqn)
		}
		if err := record.Verify(existing.Owner); err != nil {
			return err
		}
	}

	err = sqlitex.Execute(conn, `
		INSERT OR REPLACE INTO subdomains
		(fqn, domain, owner, seqn, zonefile, updated_height)
		VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			record.FQN, record.Domain, []byte(record.Owner),
			int64(record.Seqn), record.Zonefile, int64(height),
		}})
	if err != nil {
		return fmt.Errorf("subdomains: writing %s: %w", record.FQN, err)
	}
	return nil
}

// Get returns the current state of a subdomain.
func (s *Store) Get(ctx context.Context, fqn string) (*Subdomain, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)
	return getSubdomain(conn, fqn)
}

// ListForDomain returns the subdomains under one on-chain name,
// alphabetical.
func (s *Store) ListForDomain(ctx context.Context, domain string) ([]string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var fqns []string
	err = sqlitex.Execute(conn, `
		SELECT fqn FROM subdomains WHERE domain = ? ORDER BY fqn`,
		&sqlitex.ExecOptions{
			Args: []any{domain},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fqns = append(fqns, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("subdomains: listing for %s: %w", domain, err)
	}
	return fqns, nil
}

// ScanCursor returns the highest zonefile index position that has
// been replayed into the index, 0 before any scan.
func (s *Store) ScanCursor(ctx context.Context) (uint64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	var cursor uint64
	err = sqlitex.Execute(conn, `
		SELECT COALESCE(MAX(idx), 0) FROM scanned_zonefiles`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				cursor = uint64(stmt.ColumnInt64(0))
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("subdomains: reading scan cursor: %w", err)
	}
	return cursor, nil
}

// MarkScanned records that the zonefile at an index position has been
// replayed.
func (s *Store) MarkScanned(ctx context.Context, index uint64, zonefileHash, domain string, height uint64) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT OR REPLACE INTO scanned_zonefiles (idx, zonefile_hash, domain, scanned_height)
		VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{int64(index), zonefileHash, domain, int64(height)}})
	if err != nil {
		return fmt.Errorf("subdomains: marking zonefile scanned: %w", err)
	}
	return nil
}

func getSubdomain(conn *sqlite.Conn, fqn string) (*Subdomain, error) {
	var sub *Subdomain
	err := sqlitex.Execute(conn, `
		SELECT domain, owner, seqn, zonefile, updated_height
		FROM subdomains WHERE fqn = ?`,
		&sqlitex.ExecOptions{
			Args: []any{fqn},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				owner := make([]byte, stmt.ColumnLen(1))
				stmt.ColumnBytes(1, owner)
				zonefile := make([]byte, stmt.ColumnLen(3))
				stmt.ColumnBytes(3, zonefile)
				sub = &Subdomain{
					FQN:           fqn,
					Domain:        stmt.ColumnText(0),
					Owner:         ed25519.PublicKey(owner),
					Seqn:          uint64(stmt.ColumnInt64(2)),
					Zonefile:      zonefile,
					UpdatedHeight: uint64(stmt.ColumnInt64(4)),
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("subdomains: reading %s: %w", fqn, err)
	}
	if sub == nil {
		return nil, fmt.Errorf("subdomain %q: %w", fqn, ErrNotFound)
	}
	return sub, nil
}
