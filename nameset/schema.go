// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package nameset

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS chain_tip (
    id         INTEGER PRIMARY KEY CHECK (id = 0),
    height     INTEGER NOT NULL,
    block_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS consensus_hashes (
    height         INTEGER PRIMARY KEY,
    consensus_hash TEXT NOT NULL,
    ops_digest     TEXT NOT NULL,
    ops            BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS namespaces (
    namespace_id TEXT PRIMARY KEY,
    revealer     TEXT NOT NULL,
    reveal_block INTEGER NOT NULL,
    ready_block  INTEGER,
    lifetime     INTEGER NOT NULL,
    price_curve  BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS names (
    fqn              TEXT PRIMARY KEY,
    namespace_id     TEXT NOT NULL REFERENCES namespaces(namespace_id),
    owner            TEXT NOT NULL,
    zonefile_hash    TEXT,
    revoked          INTEGER NOT NULL DEFAULT 0,
    imported         INTEGER NOT NULL DEFAULT 0,
    registered_block INTEGER NOT NULL,
    renewed_block    INTEGER NOT NULL,
    expire_block     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS names_by_owner ON names(owner);
CREATE INDEX IF NOT EXISTS names_by_namespace ON names(namespace_id, fqn);

CREATE TABLE IF NOT EXISTS preorders (
    preorder_hash TEXT PRIMARY KEY,
    kind          TEXT NOT NULL,
    sender        TEXT NOT NULL,
    height        INTEGER NOT NULL,
    fee           INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS zonefile_index (
    idx           INTEGER PRIMARY KEY AUTOINCREMENT,
    zonefile_hash TEXT NOT NULL,
    fqn           TEXT NOT NULL,
    height        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS zonefile_index_by_hash ON zonefile_index(zonefile_hash);

CREATE TABLE IF NOT EXISTS history (
    fqn           TEXT NOT NULL,
    height        INTEGER NOT NULL,
    vtxindex      INTEGER NOT NULL,
    opcode        TEXT NOT NULL,
    txid          TEXT NOT NULL,
    owner         TEXT NOT NULL,
    zonefile_hash TEXT,
    PRIMARY KEY (fqn, height, vtxindex)
);
`

// preorder kinds in the preorders table.
const (
	preorderKindName      = "name"
	preorderKindNamespace = "namespace"
)

func initSchema(conn *sqlite.Conn) error {
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("nameset: initializing schema: %w", err)
	}
	return nil
}
