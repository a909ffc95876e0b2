// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the single place CBOR is configured. The atlas wire
// protocol, the block replay journal, the snapshot manifest, and the
// per-block operations digest all encode through this package, so they
// all share one deterministic encoder configuration.
package codec
