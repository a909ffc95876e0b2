// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package nameset is the name database: the authoritative record of
// every namespace, name, preorder, and consensus hash, derived by
// replaying name operations from the chain in canonical order.
//
// All state lives in a single SQLite database. ProcessBlock is the
// only writer; it applies one block atomically and advances the
// consensus hash. Queries run concurrently on pooled read connections.
package nameset
