// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool used by the
// name database, the atlas peer table, and the subdomain index. All
// three stores share one pragma configuration so their durability and
// concurrency behavior stays uniform.
package sqlitepool
