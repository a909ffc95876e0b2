// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package atlas replicates zonefiles between nodes.
//
// The name database only commits to zonefile hashes; the zonefile
// bodies travel out of band through an unstructured peer network.
// Every node advertises a paged bit-vector inventory over the sorted
// set of zonefile hashes the name database currently references. A
// crawler pulls missing zonefiles from peers whose inventories have
// them, and a pusher offers fresh zonefiles to a few healthy
// neighbors so new data spreads without waiting to be crawled.
//
// Peer health is tracked with an exponentially weighted moving
// average of request outcomes; unhealthy peers age out of the table.
package atlas
